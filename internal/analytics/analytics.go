// Package analytics computes dashboard aggregates over workout samples.
// Everything here is a pure function; callers fetch the samples.
package analytics

import (
	"sort"
	"time"
)

// DayLabelLayout formats the stable identifier of a day in a series.
const DayLabelLayout = "2006-01-02"

// Sample is the slice of a workout record the aggregates need.
type Sample struct {
	OccurredAt time.Time
	Category   string
	Calories   float64
}

// CategoryTotal is the calorie sum of one category within a day.
type CategoryTotal struct {
	Category string  `json:"category"`
	Calories float64 `json:"calories"`
	// Share is Calories divided by the day's total, 0 when the total is 0.
	Share float64 `json:"share"`
}

// DailySummary aggregates one owner's workouts over one calendar day.
type DailySummary struct {
	OwnerID         string          `json:"owner_id"`
	Day             time.Time       `json:"day"`
	Label           string          `json:"label"`
	TotalCalories   float64         `json:"total_calories"`
	WorkoutCount    int             `json:"workout_count"`
	AverageCalories float64         `json:"average_calories"`
	Categories      []CategoryTotal `json:"categories"`
}

// DayStart returns midnight of the calendar day containing t in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayWindow returns the half-open interval [start, end) covering the day of t.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := DayStart(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// Summarize builds the summary for the day containing day, using only the
// samples that fall inside that day.
func Summarize(ownerID string, day time.Time, loc *time.Location, samples []Sample) DailySummary {
	start, end := DayWindow(day, loc)
	summary := DailySummary{
		OwnerID:    ownerID,
		Day:        start,
		Label:      start.Format(DayLabelLayout),
		Categories: []CategoryTotal{},
	}

	byCategory := make(map[string]float64)
	for _, s := range samples {
		if s.OccurredAt.Before(start) || !s.OccurredAt.Before(end) {
			continue
		}
		summary.TotalCalories += s.Calories
		summary.WorkoutCount++
		byCategory[s.Category] += s.Calories
	}

	if summary.WorkoutCount > 0 {
		summary.AverageCalories = summary.TotalCalories / float64(summary.WorkoutCount)
	}

	for category, kcal := range byCategory {
		share := 0.0
		if summary.TotalCalories > 0 {
			share = kcal / summary.TotalCalories
		}
		summary.Categories = append(summary.Categories, CategoryTotal{Category: category, Calories: kcal, Share: share})
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Category < summary.Categories[j].Category
	})
	return summary
}

// Series returns exactly days summaries ending on the day of endDay, oldest
// first. Days without samples are present with zero totals.
func Series(ownerID string, endDay time.Time, days int, loc *time.Location, samples []Sample) []DailySummary {
	if days <= 0 {
		return []DailySummary{}
	}
	last := DayStart(endDay, loc)
	out := make([]DailySummary, 0, days)
	for i := days - 1; i >= 0; i-- {
		out = append(out, Summarize(ownerID, last.AddDate(0, 0, -i), loc, samples))
	}
	return out
}
