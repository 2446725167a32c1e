// Package sqlite implements the workout store on an embedded SQLite database.
// Timestamps are stored as UTC unix nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/observability"
)

// Store is a SQLite-backed domain.WorkoutRepository.
type Store struct {
	db *sql.DB
}

var (
	_ domain.WorkoutRepository = (*Store)(nil)
	_ domain.BatchInserter     = (*Store)(nil)
	_ domain.AccountDirectory  = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const workoutColumns = `workout_id, owner_id, category, name, sets, reps, weight_kg, duration_min, calories_burned, occurred_at, created_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Insert implements domain.WorkoutRepository.
func (s *Store) Insert(ctx context.Context, workout domain.Workout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	if err := insertWorkout(ctx, tx, workout); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	observability.RecordWorkoutPersisted(workout.CreatedAt)
	return nil
}

// InsertBatch stores every workout in one transaction.
func (s *Store) InsertBatch(ctx context.Context, workouts []domain.Workout) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	for _, workout := range workouts {
		if err := insertWorkout(ctx, tx, workout); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	if n := len(workouts); n > 0 {
		observability.RecordWorkoutPersisted(workouts[n-1].CreatedAt)
	}
	return nil
}

func insertWorkout(ctx context.Context, ex execer, w domain.Workout) error {
	if _, err := ex.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts(owner_id, display_name) VALUES(?, ?)`,
		w.OwnerID, w.OwnerID,
	); err != nil {
		return fmt.Errorf("register owner: %w", err)
	}
	if _, err := ex.ExecContext(ctx,
		`INSERT INTO workouts(`+workoutColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.OwnerID, w.Category, w.Name, w.Sets, w.Reps, w.WeightKg, w.DurationMin, w.CaloriesBurned,
		w.OccurredAt.UnixNano(), w.CreatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("insert workout: %w", err)
	}
	return nil
}

// UpsertAccount implements domain.AccountDirectory.
func (s *Store) UpsertAccount(ctx context.Context, account domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts(owner_id, display_name, avatar_url) VALUES(?, ?, ?)
ON CONFLICT(owner_id) DO UPDATE SET display_name = excluded.display_name, avatar_url = excluded.avatar_url`,
		account.ID, account.DisplayName, account.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// ListByOwnerRange implements domain.WorkoutRepository.
func (s *Store) ListByOwnerRange(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Workout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts
WHERE owner_id = ? AND occurred_at >= ? AND occurred_at < ?
ORDER BY occurred_at ASC, seq ASC`,
		ownerID, start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()
	return scanWorkouts(rows)
}

// ListByOwner implements domain.WorkoutRepository.
func (s *Store) ListByOwner(ctx context.Context, ownerID string, cursor *domain.Cursor, limit int) ([]domain.Workout, *domain.Cursor, error) {
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE owner_id = ?`
	args := []any{ownerID}
	if cursor != nil {
		query += ` AND (occurred_at, workout_id) < (?, ?)`
		args = append(args, cursor.OccurredAt.UnixNano(), cursor.ID)
	}
	query += ` ORDER BY occurred_at DESC, workout_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	results, err := scanWorkouts(rows)
	if err != nil {
		return nil, nil, err
	}
	var next *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
	}
	return results, next, nil
}

// DailyTotals implements domain.WorkoutRepository.
func (s *Store) DailyTotals(ctx context.Context, start, end time.Time, limit int) ([]domain.OwnerTotal, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT a.owner_id, a.display_name, a.avatar_url,
       COALESCE(t.total_calories, 0.0), COALESCE(t.workout_count, 0)
FROM accounts a
LEFT JOIN (
  SELECT owner_id, SUM(calories_burned) AS total_calories, COUNT(1) AS workout_count
  FROM workouts
  WHERE occurred_at >= ? AND occurred_at < ?
  GROUP BY owner_id
) t ON t.owner_id = a.owner_id
ORDER BY 4 DESC, a.owner_id ASC
LIMIT ?`, start.UnixNano(), end.UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	totals := make([]domain.OwnerTotal, 0)
	for rows.Next() {
		var total domain.OwnerTotal
		if err := rows.Scan(&total.Account.ID, &total.Account.DisplayName, &total.Account.AvatarURL, &total.TotalCalories, &total.WorkoutCount); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}
	return totals, nil
}

func scanWorkouts(rows *sql.Rows) ([]domain.Workout, error) {
	results := make([]domain.Workout, 0)
	for rows.Next() {
		var (
			w                     domain.Workout
			occurredAt, createdAt int64
		)
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Category, &w.Name, &w.Sets, &w.Reps, &w.WeightKg, &w.DurationMin, &w.CaloriesBurned, &occurredAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		w.OccurredAt = time.Unix(0, occurredAt).UTC()
		w.CreatedAt = time.Unix(0, createdAt).UTC()
		results = append(results, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workouts: %w", err)
	}
	return results, nil
}
