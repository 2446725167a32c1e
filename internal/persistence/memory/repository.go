// Package memory provides an in-process workout store for local development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/workoutlog/internal/domain"
	"example.com/workoutlog/internal/observability"
)

// ErrDuplicateWorkout is returned when a workout id is inserted twice.
var ErrDuplicateWorkout = errors.New("workout already exists")

// Repository stores workouts in memory.
type Repository struct {
	mu       sync.RWMutex
	workouts []domain.Workout
	ids      map[string]struct{}
	accounts map[string]domain.Account
}

var (
	_ domain.WorkoutRepository = (*Repository)(nil)
	_ domain.BatchInserter     = (*Repository)(nil)
	_ domain.AccountDirectory  = (*Repository)(nil)
)

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		ids:      make(map[string]struct{}),
		accounts: make(map[string]domain.Account),
	}
}

// UpsertAccount adds or replaces an entry in the account directory.
func (r *Repository) UpsertAccount(ctx context.Context, account domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	return nil
}

// Insert implements domain.WorkoutRepository.
func (r *Repository) Insert(ctx context.Context, workout domain.Workout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLocked(workout); err != nil {
		return err
	}
	r.appendLocked(workout)
	return nil
}

// InsertBatch stores all workouts or none of them.
func (r *Repository) InsertBatch(ctx context.Context, workouts []domain.Workout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(workouts))
	for _, w := range workouts {
		if err := r.checkLocked(w); err != nil {
			return err
		}
		if _, dup := seen[w.ID]; dup {
			return ErrDuplicateWorkout
		}
		seen[w.ID] = struct{}{}
	}
	for _, w := range workouts {
		r.appendLocked(w)
	}
	return nil
}

func (r *Repository) checkLocked(workout domain.Workout) error {
	if strings.TrimSpace(workout.ID) == "" || strings.TrimSpace(workout.OwnerID) == "" {
		return errors.New("workout id and owner id are required")
	}
	if _, exists := r.ids[workout.ID]; exists {
		return ErrDuplicateWorkout
	}
	return nil
}

func (r *Repository) appendLocked(workout domain.Workout) {
	r.workouts = append(r.workouts, workout)
	r.ids[workout.ID] = struct{}{}
	if _, ok := r.accounts[workout.OwnerID]; !ok {
		r.accounts[workout.OwnerID] = domain.Account{ID: workout.OwnerID, DisplayName: workout.OwnerID}
	}
	observability.RecordWorkoutPersisted(workout.CreatedAt)
}

// ListByOwnerRange implements domain.WorkoutRepository.
func (r *Repository) ListByOwnerRange(ctx context.Context, ownerID string, start, end time.Time) ([]domain.Workout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Workout, 0)
	for _, w := range r.workouts {
		if w.OwnerID != ownerID || w.OccurredAt.Before(start) || !w.OccurredAt.Before(end) {
			continue
		}
		out = append(out, w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

// ListByOwner implements domain.WorkoutRepository.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, cursor *domain.Cursor, limit int) ([]domain.Workout, *domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make([]domain.Workout, 0)
	for _, w := range r.workouts {
		if w.OwnerID == ownerID {
			owned = append(owned, w)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].OccurredAt.Equal(owned[j].OccurredAt) {
			return owned[i].OccurredAt.After(owned[j].OccurredAt)
		}
		return owned[i].ID > owned[j].ID
	})

	page := make([]domain.Workout, 0, limit)
	var next *domain.Cursor
	for _, w := range owned {
		if cursor != nil && !pastCursor(w, *cursor) {
			continue
		}
		if len(page) == limit {
			last := page[len(page)-1]
			next = &domain.Cursor{OccurredAt: last.OccurredAt, ID: last.ID}
			break
		}
		page = append(page, w)
	}
	return page, next, nil
}

// pastCursor reports whether w sorts after the cursor position in newest-first order.
func pastCursor(w domain.Workout, c domain.Cursor) bool {
	if w.OccurredAt.Equal(c.OccurredAt) {
		return w.ID < c.ID
	}
	return w.OccurredAt.Before(c.OccurredAt)
}

// DailyTotals implements domain.WorkoutRepository.
func (r *Repository) DailyTotals(ctx context.Context, start, end time.Time, limit int) ([]domain.OwnerTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[string]*domain.OwnerTotal, len(r.accounts))
	for id, account := range r.accounts {
		totals[id] = &domain.OwnerTotal{Account: account}
	}
	for _, w := range r.workouts {
		if w.OccurredAt.Before(start) || !w.OccurredAt.Before(end) {
			continue
		}
		total := totals[w.OwnerID]
		total.TotalCalories += w.CaloriesBurned
		total.WorkoutCount++
	}

	out := make([]domain.OwnerTotal, 0, len(totals))
	for _, total := range totals {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCalories != out[j].TotalCalories {
			return out[i].TotalCalories > out[j].TotalCalories
		}
		return out[i].Account.ID < out[j].Account.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
