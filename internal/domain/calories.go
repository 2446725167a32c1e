package domain

import (
	"errors"
	"math"
)

// CaloriesPerKgMinute is the flat burn rate applied to every workout.
const CaloriesPerKgMinute = 5

// ErrCalorieOverflow is returned when calories cannot be derived as a finite, non-negative value.
var ErrCalorieOverflow = errors.New("calories out of range")

// Calories derives calories burned from duration and weight. Both inputs are
// truncated toward zero before multiplying.
func Calories(durationMin, weightKg float64) (float64, error) {
	if !validMeasure(durationMin) || !validMeasure(weightKg) {
		return 0, ErrCalorieOverflow
	}
	kcal := math.Trunc(durationMin) * math.Trunc(weightKg) * CaloriesPerKgMinute
	if math.IsInf(kcal, 0) || math.IsNaN(kcal) {
		return 0, ErrCalorieOverflow
	}
	return kcal, nil
}

func validMeasure(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
