package outbox

const workoutLoggedSchema = `{
  "type": "object",
  "title": "WorkoutLogged",
  "properties": {
    "workout_id": {"type": "string"},
    "owner_id": {"type": "string"},
    "category": {"type": "string"},
    "name": {"type": "string"},
    "sets": {"type": "integer", "minimum": 1},
    "reps": {"type": "integer", "minimum": 1},
    "weight_kg": {"type": "number", "minimum": 0},
    "duration_min": {"type": "number", "minimum": 0},
    "calories_burned": {"type": "number", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["workout_id", "owner_id", "category", "name", "sets", "reps", "weight_kg", "duration_min", "calories_burned", "occurred_at"],
  "additionalProperties": false
}`
