// Package events defines the payloads published by the workout outbox.
package events

import "time"

// Event types and their Kafka routing.
const (
	WorkoutLoggedType    = "workout.logged"
	WorkoutLoggedTopic   = "workout_events"
	WorkoutLoggedSubject = "workout_events-value"
)

// WorkoutLogged is emitted once for every workout record accepted by ingestion.
type WorkoutLogged struct {
	WorkoutID      string    `json:"workout_id"`
	OwnerID        string    `json:"owner_id"`
	Category       string    `json:"category"`
	Name           string    `json:"name"`
	Sets           int       `json:"sets"`
	Reps           int       `json:"reps"`
	WeightKg       float64   `json:"weight_kg"`
	DurationMin    float64   `json:"duration_min"`
	CaloriesBurned float64   `json:"calories_burned"`
	OccurredAt     time.Time `json:"occurred_at"`
}
