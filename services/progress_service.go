package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"time"

	"examPrepAPI/internal/leaderboard"
	"examPrepAPI/internal/metrics"
	"examPrepAPI/internal/store"
	"examPrepAPI/internal/streak"
	"examPrepAPI/internal/types/progress"
)

// ErrTaskNotFound is returned when a done/undo references a task ID
// that is not in the user's ledger. Surfaced to the caller as a
// non-fatal rejection.
var ErrTaskNotFound = errors.New("task not found")

// GoalPoints is the point target the stats progress bar is drawn
// against on the gateway side.
const GoalPoints = 1000

// ProgressService owns every transition on a user's ledger: add,
// complete, undo, list, stats. All mutations go through the store's
// per-user critical section and are persisted before returning.
type ProgressService struct {
	store *store.Store

	// undoRevertsStreak enables the stricter undo semantics; see the
	// config field of the same name.
	undoRevertsStreak bool

	// now is swapped out in tests to pin the calendar.
	now func() time.Time
}

func NewProgressService(st *store.Store, undoRevertsStreak bool, loc *time.Location) *ProgressService {
	return &ProgressService{
		store:             st,
		undoRevertsStreak: undoRevertsStreak,
		now:               func() time.Time { return time.Now().In(loc) },
	}
}

// AddTask creates a task in the user's ledger. Nothing is validated
// beyond defaulting the category: name, points and deadline are stored
// as supplied, matching the permissive add the community relies on.
func (s *ProgressService) AddTask(ctx context.Context, userID, name string, points int, category, deadline string) (progress.Task, error) {
	if category == "" {
		category = progress.DefaultCategory
	}

	var task progress.Task
	err := s.store.Update(ctx, userID, func(p *progress.UserProgress) error {
		task = progress.Task{
			ID:       s.freshTaskID(p),
			Name:     name,
			Points:   points,
			Category: category,
			Deadline: deadline,
		}
		p.Tasks[task.ID] = task
		return nil
	})
	if err != nil {
		return progress.Task{}, fmt.Errorf("failed to add task for user %s: %w", userID, err)
	}
	return task, nil
}

// freshTaskID returns a millisecond creation timestamp, bumped past
// any ID already in the ledger so rapid adds never collide. IDs are
// never reused; numeric order is insertion order.
func (s *ProgressService) freshTaskID(p *progress.UserProgress) string {
	id := s.now().UnixMilli()
	for {
		candidate := strconv.FormatInt(id, 10)
		if _, exists := p.Tasks[candidate]; !exists {
			return candidate
		}
		id++
	}
}

// CompleteResult is what the done command reports back to the gateway.
type CompleteResult struct {
	Task          progress.Task `json:"task"`
	TotalPoints   int           `json:"total_points"`
	CurrentStreak int           `json:"current_streak"`
}

// CompleteTask marks the task done, credits its points and advances
// the daily streak. Completing an already-completed task is a no-op
// for points, so the total always equals the sum over completed tasks.
func (s *ProgressService) CompleteTask(ctx context.Context, userID, taskID string) (*CompleteResult, error) {
	var result CompleteResult
	err := s.store.Update(ctx, userID, func(p *progress.UserProgress) error {
		task, ok := p.Tasks[taskID]
		if !ok {
			return ErrTaskNotFound
		}

		today := s.now()
		if !task.Completed {
			task.Completed = true
			task.CompletedOn = today.Format(progress.DateLayout)
			p.Tasks[taskID] = task
			p.TotalPoints += task.Points
		}

		p.CurrentStreak, p.LastCompletedDate = streak.Advance(p.LastCompletedDate, today, p.CurrentStreak)

		result = CompleteResult{
			Task:          task,
			TotalPoints:   p.TotalPoints,
			CurrentStreak: p.CurrentStreak,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.TasksCompletedTotal.Inc()
	return &result, nil
}

// UndoTask flips a completed task back to open and debits its points.
// The streak is left alone unless undoRevertsStreak is set, in which
// case undoing the only completion recorded for the streak's current
// day rolls the streak back one day as well.
func (s *ProgressService) UndoTask(ctx context.Context, userID, taskID string) (*CompleteResult, error) {
	var result CompleteResult
	err := s.store.Update(ctx, userID, func(p *progress.UserProgress) error {
		task, ok := p.Tasks[taskID]
		if !ok {
			return ErrTaskNotFound
		}

		if task.Completed {
			undoneDay := task.CompletedOn
			task.Completed = false
			task.CompletedOn = ""
			p.Tasks[taskID] = task
			p.TotalPoints -= task.Points

			if s.undoRevertsStreak {
				s.revertStreak(p, undoneDay)
			}
		}

		result = CompleteResult{
			Task:          task,
			TotalPoints:   p.TotalPoints,
			CurrentStreak: p.CurrentStreak,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// revertStreak rolls the streak back when the undone task was the last
// completion left on the streak's most recent day.
func (s *ProgressService) revertStreak(p *progress.UserProgress, undoneDay string) {
	if undoneDay == "" || undoneDay != p.LastCompletedDate {
		return
	}

	previous := ""
	for _, t := range p.Tasks {
		if t.Completed && t.CompletedOn == undoneDay {
			// Another completion still holds the day.
			return
		}
		if t.Completed && t.CompletedOn > previous && t.CompletedOn < undoneDay {
			previous = t.CompletedOn
		}
	}

	if previous == "" {
		p.CurrentStreak = 0
		p.LastCompletedDate = ""
		return
	}

	if consecutiveDays(previous, undoneDay) {
		// The undone completion had extended the run by one day, so a
		// decrement restores it.
		if p.CurrentStreak > 0 {
			p.CurrentStreak--
		}
	} else {
		// The undone completion had started a fresh run after a gap;
		// restore the run that ends on the previous completion day.
		p.CurrentStreak = runEndingAt(p, previous)
	}
	p.LastCompletedDate = previous
}

// consecutiveDays reports whether b is exactly one day after a.
func consecutiveDays(a, b string) bool {
	da, errA := time.Parse(progress.DateLayout, a)
	db, errB := time.Parse(progress.DateLayout, b)
	if errA != nil || errB != nil {
		return false
	}
	return db.Sub(da) == 24*time.Hour
}

// runEndingAt counts the consecutive completion days ending on day,
// walking backwards over the remaining completion history.
func runEndingAt(p *progress.UserProgress, day string) int {
	days := make(map[string]bool)
	for _, t := range p.Tasks {
		if t.Completed && t.CompletedOn != "" {
			days[t.CompletedOn] = true
		}
	}

	d, err := time.Parse(progress.DateLayout, day)
	if err != nil {
		return 1
	}
	run := 0
	for days[d.Format(progress.DateLayout)] {
		run++
		d = d.AddDate(0, 0, -1)
	}
	return run
}

// ListActive yields the user's open tasks in insertion order. The
// sequence is restartable; each range re-reads nothing and allocates
// nothing beyond the snapshot taken here.
func (s *ProgressService) ListActive(userID string) iter.Seq[progress.Task] {
	var active []progress.Task
	s.store.View(userID, func(p *progress.UserProgress) {
		for _, task := range p.Tasks {
			if !task.Completed {
				active = append(active, task)
			}
		}
	})
	sort.Slice(active, func(i, j int) bool {
		a, _ := strconv.ParseInt(active[i].ID, 10, 64)
		b, _ := strconv.ParseInt(active[j].ID, 10, 64)
		return a < b
	})

	return func(yield func(progress.Task) bool) {
		for _, task := range active {
			if !yield(task) {
				return
			}
		}
	}
}

// Leaderboard ranks all users over a store snapshot.
func (s *ProgressService) Leaderboard(limit int) *leaderboard.Leaderboard {
	return leaderboard.Top(s.store.Snapshot(), limit)
}

// UserStats is the data behind the stats command; rendering (progress
// bar, emoji) belongs to the gateway.
type UserStats struct {
	TotalPoints       int     `json:"total_points"`
	CurrentStreak     int     `json:"current_streak"`
	LastCompletedDate string  `json:"last_completed_date,omitempty"`
	ActiveTasks       int     `json:"active_tasks"`
	CompletedTasks    int     `json:"completed_tasks"`
	GoalPoints        int     `json:"goal_points"`
	GoalProgress      float64 `json:"goal_progress"`
}

func (s *ProgressService) Stats(userID string) *UserStats {
	stats := &UserStats{GoalPoints: GoalPoints}
	s.store.View(userID, func(p *progress.UserProgress) {
		stats.TotalPoints = p.TotalPoints
		stats.CurrentStreak = p.CurrentStreak
		stats.LastCompletedDate = p.LastCompletedDate
		stats.CompletedTasks = p.CompletedCount()
		stats.ActiveTasks = len(p.Tasks) - stats.CompletedTasks
	})
	stats.GoalProgress = float64(stats.TotalPoints) / float64(GoalPoints)
	return stats
}
