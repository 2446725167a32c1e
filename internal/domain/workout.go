package domain

import (
	"context"
	"time"
)

// Workout is the canonical exercise record persisted by the ingestion pipeline.
// Records are immutable once stored.
type Workout struct {
	ID             string
	OwnerID        string
	Category       string
	Name           string
	Sets           int
	Reps           int
	WeightKg       float64
	DurationMin    float64
	CaloriesBurned float64
	OccurredAt     time.Time
	CreatedAt      time.Time
}

// Account carries the display fields of a workout owner shown on the leaderboard.
type Account struct {
	ID          string
	DisplayName string
	AvatarURL   string
}

// OwnerTotal is one row of the cross-owner daily totals query.
type OwnerTotal struct {
	Account       Account
	TotalCalories float64
	WorkoutCount  int
}

// Cursor models the history pagination token.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

// WorkoutRepository captures persistence operations.
type WorkoutRepository interface {
	// Insert stores one workout and registers its owner in the account directory.
	Insert(ctx context.Context, workout Workout) error
	// ListByOwnerRange returns workouts with start <= OccurredAt < end, oldest first.
	ListByOwnerRange(ctx context.Context, ownerID string, start, end time.Time) ([]Workout, error)
	// ListByOwner pages through an owner's history, newest first.
	ListByOwner(ctx context.Context, ownerID string, cursor *Cursor, limit int) ([]Workout, *Cursor, error)
	// DailyTotals sums calories per known account for [start, end), including
	// accounts without workouts. Rows come back ordered by total descending,
	// then owner id ascending, capped at limit when limit > 0.
	DailyTotals(ctx context.Context, start, end time.Time, limit int) ([]OwnerTotal, error)
}

// BatchInserter is implemented by repositories able to store a whole
// submission atomically.
type BatchInserter interface {
	InsertBatch(ctx context.Context, workouts []Workout) error
}

// AccountDirectory stores the display fields of workout owners. Owners that
// never registered appear under their raw id.
type AccountDirectory interface {
	UpsertAccount(ctx context.Context, account Account) error
}
