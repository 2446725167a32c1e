package analytics

import "sort"

// LeaderboardEntry is one ranked owner for a single day.
type LeaderboardEntry struct {
	Rank         int     `json:"rank"`
	OwnerID      string  `json:"owner_id"`
	DisplayName  string  `json:"display_name"`
	AvatarURL    string  `json:"avatar_url,omitempty"`
	DailyXP      float64 `json:"daily_xp"`
	WorkoutCount int     `json:"workout_count"`
	// Streak stays nil: consecutive-day activity is not computed yet.
	Streak *int `json:"streak"`
}

// Rank orders entries by DailyXP descending, breaking ties by owner id
// ascending, keeps at most limit entries (all when limit <= 0) and assigns
// 1-based positions. The input slice is not modified.
func Rank(entries []LeaderboardEntry, limit int) []LeaderboardEntry {
	ranked := make([]LeaderboardEntry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DailyXP != ranked[j].DailyXP {
			return ranked[i].DailyXP > ranked[j].DailyXP
		}
		return ranked[i].OwnerID < ranked[j].OwnerID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
