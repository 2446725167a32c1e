package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/workoutlog/internal/analytics"
	"example.com/workoutlog/internal/events"
)

// TotalsStore applies one workout to the per-day calorie projection. It
// reports false when the workout was already applied.
type TotalsStore interface {
	ApplyWorkout(ctx context.Context, workoutID, ownerID string, day time.Time, calories float64) (bool, error)
}

// TotalsHandler maintains daily_calorie_totals from workout.logged events.
type TotalsHandler struct {
	store TotalsStore
	loc   *time.Location
}

// NewTotalsHandler returns a handler bucketing workouts by calendar day in loc.
func NewTotalsHandler(store TotalsStore, loc *time.Location) *TotalsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TotalsHandler{store: store, loc: loc}
}

// Handle implements Handler. Events of other types are ignored.
func (h *TotalsHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.WorkoutLoggedType {
		return nil
	}

	var event events.WorkoutLogged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode workout payload: %w", err)
	}
	if event.WorkoutID == "" || event.OwnerID == "" {
		return errors.New("workout payload missing identifiers")
	}

	day := analytics.DayStart(event.OccurredAt, h.loc)
	applied, err := h.store.ApplyWorkout(ctx, event.WorkoutID, event.OwnerID, day, event.CaloriesBurned)
	if err != nil {
		return err
	}
	if !applied {
		recordDuplicate(msg.EventType)
	}
	return nil
}

// PostgresTotalsStore writes the projection alongside a consumed-event ledger
// so redelivered events are counted once.
type PostgresTotalsStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTotalsStore wraps the provided pool.
func NewPostgresTotalsStore(pool *pgxpool.Pool) *PostgresTotalsStore {
	return &PostgresTotalsStore{pool: pool}
}

// ApplyWorkout implements TotalsStore.
func (s *PostgresTotalsStore) ApplyWorkout(ctx context.Context, workoutID, ownerID string, day time.Time, calories float64) (applied bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO consumed_workout_events (workout_id) VALUES ($1) ON CONFLICT (workout_id) DO NOTHING`,
		workoutID,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		err = tx.Commit(ctx)
		return false, err
	}

	// DATE columns carry no zone, so pass the local calendar date.
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	if _, err = tx.Exec(ctx,
		`INSERT INTO daily_calorie_totals (owner_id, day, total_calories, workout_count, updated_at)
         VALUES ($1, $2, $3, 1, NOW())
         ON CONFLICT (owner_id, day) DO UPDATE
         SET total_calories = daily_calorie_totals.total_calories + EXCLUDED.total_calories,
             workout_count = daily_calorie_totals.workout_count + 1,
             updated_at = NOW()`,
		ownerID, date, calories,
	); err != nil {
		return false, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
