package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"examPrepAPI/internal/store"
	"examPrepAPI/internal/types/notification"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	medium := store.NewFileMedium(filepath.Join(t.TempDir(), "tasks.json"))
	return store.Open(context.Background(), medium)
}

func fixedDay(s string) func() time.Time {
	day, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return day }
}

// captureSink records dispatched intents synchronously.
type captureSink struct {
	mu      sync.Mutex
	intents []*notification.Intent
}

func (s *captureSink) Dispatch(_ context.Context, intent *notification.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, intent)
}

func (s *captureSink) all() []*notification.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*notification.Intent(nil), s.intents...)
}
