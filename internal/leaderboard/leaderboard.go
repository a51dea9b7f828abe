package leaderboard

import (
	"sort"

	"examPrepAPI/internal/types/progress"
)

const DefaultLimit = 10

type Entry struct {
	UserID        string `json:"user_id"`
	TotalPoints   int    `json:"total_points"`
	CurrentStreak int    `json:"current_streak"`
	Rank          int    `json:"rank"`
}

type Leaderboard struct {
	Entries    []*Entry `json:"entries"`
	TotalUsers int      `json:"total_users"`
}

// Top ranks a store snapshot by total points descending, truncated to
// limit. The sort is stable, so users with equal totals keep the
// snapshot's order. Ties share a rank, matching RANK() semantics.
func Top(snapshot map[string]*progress.UserProgress, limit int) *Leaderboard {
	if limit <= 0 {
		limit = DefaultLimit
	}

	entries := make([]*Entry, 0, len(snapshot))
	for userID, p := range snapshot {
		entries = append(entries, &Entry{
			UserID:        userID,
			TotalPoints:   p.TotalPoints,
			CurrentStreak: p.CurrentStreak,
		})
	}

	// Map iteration order is random; pin it before the stable sort so
	// tie-breaks are deterministic run to run.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UserID < entries[j].UserID
	})
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalPoints > entries[j].TotalPoints
	})

	total := len(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}

	for i, e := range entries {
		if i > 0 && e.TotalPoints == entries[i-1].TotalPoints {
			e.Rank = entries[i-1].Rank
		} else {
			e.Rank = i + 1
		}
	}

	return &Leaderboard{Entries: entries, TotalUsers: total}
}
