package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/events"
	"example.com/workoutlog/internal/observability"
)

// Repository provides Postgres-backed persistence for workouts and outbox events.
type Repository struct {
	pool            *pgxpool.Pool
	projectedTotals bool
}

// Option configures optional behaviour for the Repository.
type Option func(*Repository)

// WithProjectedTotals makes DailyTotals read whole-day windows from the
// daily_calorie_totals projection kept by the consumer. The projection lags
// ingestion by the Kafka round trip.
func WithProjectedTotals() Option {
	return func(r *Repository) {
		r.projectedTotals = true
	}
}

var (
	_ domain.WorkoutRepository = (*Repository)(nil)
	_ domain.BatchInserter     = (*Repository)(nil)
	_ domain.AccountDirectory  = (*Repository)(nil)
)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const workoutColumns = `workout_id, owner_id, category, name, sets, reps, weight_kg, duration_min, calories_burned, occurred_at, created_at`

// Insert persists the workout and its outbox event inside a single transaction.
func (r *Repository) Insert(ctx context.Context, workout domain.Workout) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if err = r.insertTx(ctx, tx, workout); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordWorkoutPersisted(workout.CreatedAt)
	return nil
}

// InsertBatch persists every workout of a submission in one transaction.
func (r *Repository) InsertBatch(ctx context.Context, workouts []domain.Workout) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	for _, workout := range workouts {
		if err = r.insertTx(ctx, tx, workout); err != nil {
			return err
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	if n := len(workouts); n > 0 {
		observability.RecordWorkoutPersisted(workouts[n-1].CreatedAt)
	}
	return nil
}

func (r *Repository) insertTx(ctx context.Context, tx pgx.Tx, workout domain.Workout) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO accounts (owner_id, display_name) VALUES ($1, $1) ON CONFLICT (owner_id) DO NOTHING`,
		workout.OwnerID,
	); err != nil {
		return fmt.Errorf("register owner: %w", err)
	}

	_, err := tx.Exec(ctx, `INSERT INTO workouts (`+workoutColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		workout.ID,
		workout.OwnerID,
		workout.Category,
		workout.Name,
		workout.Sets,
		workout.Reps,
		workout.WeightKg,
		workout.DurationMin,
		workout.CaloriesBurned,
		workout.OccurredAt,
		workout.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}

	return r.insertOutbox(ctx, tx, workout, events.WorkoutLoggedType, events.WorkoutLogged{
		WorkoutID:      workout.ID,
		OwnerID:        workout.OwnerID,
		Category:       workout.Category,
		Name:           workout.Name,
		Sets:           workout.Sets,
		Reps:           workout.Reps,
		WeightKg:       workout.WeightKg,
		DurationMin:    workout.DurationMin,
		CaloriesBurned: workout.CaloriesBurned,
		OccurredAt:     workout.OccurredAt,
	})
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, workout domain.Workout, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"workout",
		workout.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(workout),
		body,
		fmt.Sprintf("%s:%s", workout.ID, eventType),
	)
	if err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}

// UpsertAccount implements domain.AccountDirectory.
func (r *Repository) UpsertAccount(ctx context.Context, account domain.Account) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (owner_id, display_name, avatar_url) VALUES ($1, $2, $3)
        ON CONFLICT (owner_id) DO UPDATE SET display_name = EXCLUDED.display_name, avatar_url = EXCLUDED.avatar_url`,
		account.ID, account.DisplayName, account.AvatarURL,
	)
	return err
}

// ListByOwnerRange returns an owner's workouts in [start, end), oldest first.
func (r *Repository) ListByOwnerRange(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Workout, error) {
	query := `SELECT ` + workoutColumns + `
        FROM workouts WHERE owner_id=$1 AND occurred_at >= $2 AND occurred_at < $3
        ORDER BY occurred_at ASC, seq ASC`

	rows, err := r.pool.Query(ctx, query, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkouts(rows, 0)
}

// ListByOwner returns an owner's workouts newest first using keyset pagination.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, cursor *domain.Cursor, limit int) ([]domain.Workout, *domain.Cursor, error) {
	args := []any{ownerID, limit}
	query := `SELECT ` + workoutColumns + `
        FROM workouts WHERE owner_id=$1`

	if cursor != nil {
		query += ` AND (occurred_at, workout_id) < ($3, $4)`
		args = append(args, cursor.OccurredAt, cursor.ID)
	}

	query += ` ORDER BY occurred_at DESC, workout_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results, err := scanWorkouts(rows, limit)
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return results, nextCursor, nil
}

// DailyTotals sums calories per account for [start, end). Accounts without
// workouts in the window are included with zero totals.
func (r *Repository) DailyTotals(ctx context.Context, start, end time.Time, limit int) ([]domain.OwnerTotal, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	if r.projectedTotals && end.Equal(start.AddDate(0, 0, 1)) {
		// DATE columns carry no zone, so pass the local calendar date.
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		const projected = `SELECT a.owner_id, a.display_name, a.avatar_url,
                COALESCE(t.total_calories, 0), COALESCE(t.workout_count, 0)
            FROM accounts a
            LEFT JOIN daily_calorie_totals t ON t.owner_id = a.owner_id AND t.day = $1
            ORDER BY 4 DESC, a.owner_id ASC
            LIMIT $2`
		rows, err := r.pool.Query(ctx, projected, day, limitArg)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanTotals(rows)
	}

	const query = `SELECT a.owner_id, a.display_name, a.avatar_url,
            COALESCE(t.total_calories, 0), COALESCE(t.workout_count, 0)
        FROM accounts a
        LEFT JOIN (
            SELECT owner_id, SUM(calories_burned) AS total_calories, COUNT(*) AS workout_count
            FROM workouts
            WHERE occurred_at >= $1 AND occurred_at < $2
            GROUP BY owner_id
        ) t ON t.owner_id = a.owner_id
        ORDER BY 4 DESC, a.owner_id ASC
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, start, end, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTotals(rows)
}

func scanTotals(rows pgx.Rows) ([]domain.OwnerTotal, error) {
	totals := make([]domain.OwnerTotal, 0)
	for rows.Next() {
		var total domain.OwnerTotal
		if err := rows.Scan(&total.Account.ID, &total.Account.DisplayName, &total.Account.AvatarURL, &total.TotalCalories, &total.WorkoutCount); err != nil {
			return nil, err
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

func scanWorkouts(rows pgx.Rows, capacity int) ([]domain.Workout, error) {
	results := make([]domain.Workout, 0, capacity)
	for rows.Next() {
		var w domain.Workout
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Category, &w.Name, &w.Sets, &w.Reps, &w.WeightKg, &w.DurationMin, &w.CaloriesBurned, &w.OccurredAt, &w.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.Workout) string
}

var eventCatalog = map[string]EventMetadata{
	events.WorkoutLoggedType: {
		Topic:         events.WorkoutLoggedTopic,
		SchemaSubject: events.WorkoutLoggedSubject,
		PartitionKeyFn: func(w domain.Workout) string {
			return w.OwnerID
		},
	},
}
