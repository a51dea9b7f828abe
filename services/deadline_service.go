package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"examPrepAPI/internal/store"
	"examPrepAPI/internal/types/notification"
	"examPrepAPI/internal/types/progress"
)

// DeadlineService is the daily sweep over every ledger for incomplete
// tasks whose deadline has passed. It reads a snapshot, so the scan
// never holds up command handling, and it emits one intent per overdue
// task with failures isolated per recipient.
type DeadlineService struct {
	store *store.Store
	sink  IntentSink

	now func() time.Time
}

func NewDeadlineService(st *store.Store, sink IntentSink, loc *time.Location) *DeadlineService {
	return &DeadlineService{
		store: st,
		sink:  sink,
		now:   func() time.Time { return time.Now().In(loc) },
	}
}

// Run scans all users. A malformed deadline or an undeliverable user
// skips that task only; the sweep always completes.
func (s *DeadlineService) Run(ctx context.Context) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	snapshot := s.store.Snapshot()
	emitted := 0

	for userID, p := range snapshot {
		for _, task := range p.Tasks {
			if task.Completed || task.Deadline == "" {
				continue
			}

			deadline, err := time.ParseInLocation(progress.DateLayout, task.Deadline, now.Location())
			if err != nil {
				log.Printf("Deadline sweep: task %s for user %s has unparsable deadline %q, skipping", task.ID, userID, task.Deadline)
				continue
			}
			if !deadline.Before(today) {
				continue
			}

			intent := notification.NewUserIntent(
				notification.KindTaskOverdue,
				userID,
				"Task overdue",
				fmt.Sprintf("Task overdue: %s (was due %s)", task.Name, task.Deadline),
				map[string]any{
					"task_id":  task.ID,
					"deadline": task.Deadline,
				},
			)
			s.sink.Dispatch(ctx, intent)
			emitted++
		}
	}

	log.Printf("Deadline sweep: scanned %d users, emitted %d overdue intents", len(snapshot), emitted)
}
