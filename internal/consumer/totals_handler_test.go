package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/workoutlog/internal/events"
)

type appliedCall struct {
	workoutID string
	ownerID   string
	day       time.Time
	calories  float64
}

type fakeTotalsStore struct {
	seen  map[string]bool
	calls []appliedCall
	err   error
}

func (s *fakeTotalsStore) ApplyWorkout(_ context.Context, workoutID, ownerID string, day time.Time, calories float64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[workoutID] {
		return false, nil
	}
	s.seen[workoutID] = true
	s.calls = append(s.calls, appliedCall{workoutID, ownerID, day, calories})
	return true, nil
}

func workoutEvent(t *testing.T, id string, at time.Time, kcal float64) Message {
	t.Helper()
	payload, err := json.Marshal(events.WorkoutLogged{
		WorkoutID:      id,
		OwnerID:        "owner-1",
		Category:       "Legs",
		Name:           "Squat",
		Sets:           3,
		Reps:           10,
		WeightKg:       40,
		DurationMin:    12,
		CaloriesBurned: kcal,
		OccurredAt:     at,
	})
	require.NoError(t, err)
	return Message{EventType: events.WorkoutLoggedType, Topic: events.WorkoutLoggedTopic, Payload: payload}
}

func TestTotalsHandlerAppliesWorkoutToLocalDay(t *testing.T) {
	store := &fakeTotalsStore{}
	loc := time.FixedZone("UTC+2", 2*60*60)
	handler := NewTotalsHandler(store, loc)

	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	require.NoError(t, handler.Handle(context.Background(), workoutEvent(t, "w-1", at, 300)))

	require.Len(t, store.calls, 1)
	got := store.calls[0]
	require.Equal(t, "w-1", got.workoutID)
	require.Equal(t, "owner-1", got.ownerID)
	require.InDelta(t, 300, got.calories, 1e-9)
	require.True(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc).Equal(got.day))
}

func TestTotalsHandlerCountsRedeliveryOnce(t *testing.T) {
	store := &fakeTotalsStore{}
	handler := NewTotalsHandler(store, nil)
	msg := workoutEvent(t, "w-1", time.Now(), 10)

	require.NoError(t, handler.Handle(context.Background(), msg))
	require.NoError(t, handler.Handle(context.Background(), msg))
	require.Len(t, store.calls, 1)
}

func TestTotalsHandlerIgnoresOtherEvents(t *testing.T) {
	store := &fakeTotalsStore{}
	handler := NewTotalsHandler(store, nil)

	require.NoError(t, handler.Handle(context.Background(), Message{EventType: "workout.deleted", Payload: []byte(`not json`)}))
	require.Empty(t, store.calls)
}

func TestTotalsHandlerRejectsBadPayloads(t *testing.T) {
	handler := NewTotalsHandler(&fakeTotalsStore{}, nil)

	err := handler.Handle(context.Background(), Message{EventType: events.WorkoutLoggedType, Payload: []byte(`{`)})
	require.Error(t, err)

	err = handler.Handle(context.Background(), Message{EventType: events.WorkoutLoggedType, Payload: []byte(`{"owner_id":"o"}`)})
	require.Error(t, err)
}

func TestTotalsHandlerPropagatesStoreErrors(t *testing.T) {
	storeErr := errors.New("db down")
	handler := NewTotalsHandler(&fakeTotalsStore{err: storeErr}, nil)

	err := handler.Handle(context.Background(), workoutEvent(t, "w-1", time.Now(), 1))
	require.ErrorIs(t, err, storeErr)
}
