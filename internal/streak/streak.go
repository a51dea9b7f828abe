package streak

import (
	"time"

	"examPrepAPI/internal/types/progress"
)

// Advance applies one completion on day today to a user's streak state.
// It is a pure function; the complete transition is its only caller.
//
// Rules, at calendar-day granularity:
//   - same day as the last completion: nothing changes (two completions
//     in one day do not double-count)
//   - exactly one day after the last completion: streak grows by one
//   - anything else (first ever completion, a gap, or a clock that
//     moved backwards): streak restarts at 1
func Advance(lastCompletedDate string, today time.Time, currentStreak int) (int, string) {
	todayStr := today.Format(progress.DateLayout)

	if lastCompletedDate == todayStr {
		return currentStreak, lastCompletedDate
	}

	if lastCompletedDate != "" {
		if last, err := time.Parse(progress.DateLayout, lastCompletedDate); err == nil {
			todayDay, _ := time.Parse(progress.DateLayout, todayStr)
			if int(todayDay.Sub(last).Hours()/24) == 1 {
				return currentStreak + 1, todayStr
			}
		}
	}

	return 1, todayStr
}
