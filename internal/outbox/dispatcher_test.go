package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/workoutlog/internal/events"
)

type stubProducer struct {
	mu     sync.Mutex
	err    error
	writes []writtenBatch
}

type writtenBatch struct {
	topic    string
	messages []kafka.Message
}

func (s *stubProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	copied := make([]kafka.Message, len(msgs))
	copy(copied, msgs)
	s.writes = append(s.writes, writtenBatch{topic: topic, messages: copied})
	return nil
}

type stubRegistry struct {
	mu    sync.Mutex
	id    int
	err   error
	calls []string
}

func (s *stubRegistry) EnsureSchema(ctx context.Context, subject string, schema string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, subject)
	if s.err != nil {
		return 0, s.err
	}
	return s.id, nil
}

func workoutMessage(t *testing.T, eventID int64, owner string) Message {
	t.Helper()
	payload, err := json.Marshal(events.WorkoutLogged{
		WorkoutID:      "w-1",
		OwnerID:        owner,
		Category:       "Legs",
		Name:           "Squat",
		Sets:           3,
		Reps:           10,
		WeightKg:       50,
		DurationMin:    30,
		CaloriesBurned: 7500,
		OccurredAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	return Message{
		EventID:       eventID,
		AggregateType: "workout",
		AggregateID:   "w-1",
		EventType:     events.WorkoutLoggedType,
		Topic:         events.WorkoutLoggedTopic,
		SchemaSubject: events.WorkoutLoggedSubject,
		PartitionKey:  owner,
		Payload:       payload,
	}
}

func TestDeliverFramesAndGroupsByTopic(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	messages := []Message{workoutMessage(t, 1, "u1"), workoutMessage(t, 2, "u2")}
	require.NoError(t, d.deliver(context.Background(), messages))

	require.Len(t, producer.writes, 1)
	batch := producer.writes[0]
	require.Equal(t, events.WorkoutLoggedTopic, batch.topic)
	require.Len(t, batch.messages, 2)
	require.Equal(t, []byte("u1"), batch.messages[0].Key)

	schemaID, payload, err := DecodeWireFormat(batch.messages[0].Value)
	require.NoError(t, err)
	require.Equal(t, 42, schemaID)
	require.JSONEq(t, string(messages[0].Payload), string(payload))

	headers := map[string]string{}
	for _, h := range batch.messages[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, events.WorkoutLoggedType, headers[HeaderEventType])
	require.Equal(t, events.WorkoutLoggedSubject, headers[HeaderSchemaSubject])

	require.Len(t, registry.calls, 1, "schema id should be cached across the batch")
	require.NoError(t, d.deliver(context.Background(), messages[:1]))
	require.Len(t, registry.calls, 1)
}

func TestDeliverUnknownEventType(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 1}
	d := NewDispatcher(nil, producer, registry, time.Second, 10)

	msg := workoutMessage(t, 1, "u1")
	msg.EventType = "workout.unknown"
	err := d.deliver(context.Background(), []Message{msg})
	require.ErrorContains(t, err, "no schema metadata for event_type=workout.unknown")
	require.Empty(t, producer.writes)
	require.Empty(t, registry.calls)
}

func TestDeliverPropagatesFailures(t *testing.T) {
	d := NewDispatcher(nil, &stubProducer{}, &stubRegistry{err: errors.New("registry down")}, time.Second, 10)
	require.ErrorContains(t, d.deliver(context.Background(), []Message{workoutMessage(t, 1, "u1")}), "registry down")

	d = NewDispatcher(nil, &stubProducer{err: errors.New("broker down")}, &stubRegistry{id: 3}, time.Second, 10)
	require.ErrorContains(t, d.deliver(context.Background(), []Message{workoutMessage(t, 1, "u1")}), "broker down")
}

func TestWireFormat(t *testing.T) {
	frame := EncodeWireFormat(258, []byte(`{}`))
	require.Equal(t, []byte{0, 0, 0, 1, 2, '{', '}'}, frame)

	id, payload, err := DecodeWireFormat(frame)
	require.NoError(t, err)
	require.Equal(t, 258, id)
	require.Equal(t, []byte(`{}`), payload)

	_, _, err = DecodeWireFormat([]byte{0, 1})
	require.Error(t, err)
	_, _, err = DecodeWireFormat([]byte{9, 0, 0, 0, 1})
	require.Error(t, err)
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	m := NewDLQManager(nil, 5, time.Minute, nil)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 2*time.Minute, m.backoffDelay(2))
	require.Equal(t, 16*time.Minute, m.backoffDelay(5))
	require.Equal(t, MaxBackoff, m.backoffDelay(7))
	require.Equal(t, MaxBackoff, m.backoffDelay(64))
}
