package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayWindowUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	instant := time.Date(2026, time.March, 3, 20, 30, 0, 0, time.UTC) // 05:30 on the 4th in UTC+9

	start, end := DayWindow(instant, loc)
	require.Equal(t, time.Date(2026, time.March, 4, 0, 0, 0, 0, loc), start)
	require.Equal(t, time.Date(2026, time.March, 5, 0, 0, 0, 0, loc), end)
}

func TestSummarizeEmptyDayHasZeroAverage(t *testing.T) {
	day := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	summary := Summarize("owner-1", day, time.UTC, nil)

	require.Equal(t, "2026-05-01", summary.Label)
	require.Zero(t, summary.WorkoutCount)
	require.Zero(t, summary.TotalCalories)
	require.Zero(t, summary.AverageCalories)
	require.NotNil(t, summary.Categories)
	require.Empty(t, summary.Categories)
}

func TestSummarizeFiltersWindowAndGroupsCategories(t *testing.T) {
	day := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	samples := []Sample{
		{OccurredAt: day.Add(-time.Nanosecond), Category: "Legs", Calories: 1000},
		{OccurredAt: day, Category: "Legs", Calories: 300},
		{OccurredAt: day.Add(6 * time.Hour), Category: "Arms", Calories: 100},
		{OccurredAt: day.Add(23 * time.Hour), Category: "Legs", Calories: 200},
		{OccurredAt: day.Add(24 * time.Hour), Category: "Arms", Calories: 999},
	}

	summary := Summarize("owner-1", day, time.UTC, samples)
	require.Equal(t, 3, summary.WorkoutCount)
	require.InDelta(t, 600, summary.TotalCalories, 1e-9)
	require.InDelta(t, 200, summary.AverageCalories, 1e-9)

	require.Len(t, summary.Categories, 2)
	require.Equal(t, "Arms", summary.Categories[0].Category)
	require.InDelta(t, 100, summary.Categories[0].Calories, 1e-9)
	require.Equal(t, "Legs", summary.Categories[1].Category)
	require.InDelta(t, 500, summary.Categories[1].Calories, 1e-9)

	var sum, shares float64
	for _, c := range summary.Categories {
		sum += c.Calories
		shares += c.Share
	}
	require.InDelta(t, summary.TotalCalories, sum, 1e-9)
	require.InDelta(t, 1, shares, 1e-9)
}

func TestSeriesAlwaysHasSevenOldestFirst(t *testing.T) {
	end := time.Date(2026, time.March, 2, 18, 0, 0, 0, time.UTC)
	samples := []Sample{
		{OccurredAt: time.Date(2026, time.February, 24, 9, 0, 0, 0, time.UTC), Category: "Legs", Calories: 50},
		{OccurredAt: time.Date(2026, time.February, 28, 9, 0, 0, 0, time.UTC), Category: "Legs", Calories: 70},
		{OccurredAt: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC), Category: "Arms", Calories: 30},
		{OccurredAt: time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC), Category: "Arms", Calories: 500},
	}

	series := Series("owner-1", end, 7, time.UTC, samples)
	require.Len(t, series, 7)

	labels := make([]string, 0, len(series))
	for _, day := range series {
		labels = append(labels, day.Label)
	}
	require.Equal(t, []string{
		"2026-02-24", "2026-02-25", "2026-02-26", "2026-02-27",
		"2026-02-28", "2026-03-01", "2026-03-02",
	}, labels)

	for _, day := range series {
		independent := Summarize("owner-1", day.Day, time.UTC, samples)
		require.Equal(t, independent.TotalCalories, day.TotalCalories, "day %s", day.Label)
		require.Equal(t, independent.WorkoutCount, day.WorkoutCount, "day %s", day.Label)
	}
	require.InDelta(t, 50, series[0].TotalCalories, 1e-9)
	require.Zero(t, series[1].TotalCalories)
	require.InDelta(t, 30, series[6].TotalCalories, 1e-9)
}

func TestSeriesWithoutSamples(t *testing.T) {
	series := Series("owner-1", time.Now(), 7, time.UTC, nil)
	require.Len(t, series, 7)
	for _, day := range series {
		require.Zero(t, day.TotalCalories)
		require.Zero(t, day.AverageCalories)
	}
	require.Empty(t, Series("owner-1", time.Now(), 0, time.UTC, nil))
}

func TestRankOrdersAndBreaksTies(t *testing.T) {
	entries := []LeaderboardEntry{
		{OwnerID: "carol", DailyXP: 100},
		{OwnerID: "bob", DailyXP: 250},
		{OwnerID: "alice", DailyXP: 100},
		{OwnerID: "dave", DailyXP: 0},
	}

	ranked := Rank(entries, 0)
	require.Len(t, ranked, 4)
	require.Equal(t, "bob", ranked[0].OwnerID)
	require.Equal(t, "alice", ranked[1].OwnerID)
	require.Equal(t, "carol", ranked[2].OwnerID)
	require.Equal(t, "dave", ranked[3].OwnerID)
	for i, e := range ranked {
		require.Equal(t, i+1, e.Rank)
		require.Nil(t, e.Streak)
	}
	require.Equal(t, "carol", entries[0].OwnerID, "input must not be reordered")
}

func TestRankTruncates(t *testing.T) {
	entries := make([]LeaderboardEntry, 0, 60)
	for i := 0; i < 60; i++ {
		entries = append(entries, LeaderboardEntry{OwnerID: fmt.Sprintf("owner-%02d", i), DailyXP: float64(i % 7)})
	}

	ranked := Rank(entries, 50)
	require.Len(t, ranked, 50)
	for i := 1; i < len(ranked); i++ {
		prev, cur := ranked[i-1], ranked[i]
		require.GreaterOrEqual(t, prev.DailyXP, cur.DailyXP)
		if prev.DailyXP == cur.DailyXP {
			require.Less(t, prev.OwnerID, cur.OwnerID)
		}
	}
}
