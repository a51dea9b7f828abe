package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"examPrepAPI/internal/types/progress"
)

// ErrPersistence marks a failed write to the persistence medium. The
// in-memory transition has already been applied when this is returned;
// callers surface it rather than pretend the data is safe on disk.
var ErrPersistence = errors.New("persistence medium unavailable")

// Medium is the durable mapping from user ID to progress record. Load
// must degrade to an empty mapping when the medium is absent or
// unparsable; only genuine I/O faults are errors.
type Medium interface {
	Load(ctx context.Context) (map[string]*progress.UserProgress, error)
	Save(ctx context.Context, state map[string]*progress.UserProgress) error
}

// Store owns the in-memory progress state and persists it through a
// Medium after every mutating transition.
//
// Locking: userLocks serializes transitions for the same user end to
// end (mutation plus persist), so a command handler and a background
// job can never interleave on one ledger. mu guards the state map
// itself and is held only for the in-memory part of a transition;
// saveMu serializes medium writes so concurrent savers cannot
// interleave partial file writes.
type Store struct {
	mu    sync.RWMutex
	users map[string]*progress.UserProgress

	lockMu    sync.Mutex
	userLocks map[string]*sync.Mutex

	saveMu sync.Mutex
	medium Medium
}

// Open loads the persisted state and returns a ready Store. A medium
// that cannot be read at all starts the store empty rather than
// failing the process.
func Open(ctx context.Context, medium Medium) *Store {
	users, err := medium.Load(ctx)
	if err != nil {
		log.Printf("Store: load failed, starting empty: %v", err)
		users = make(map[string]*progress.UserProgress)
	}
	if users == nil {
		users = make(map[string]*progress.UserProgress)
	}
	for _, p := range users {
		p.Normalize()
	}
	log.Printf("Store: loaded %d user records", len(users))

	return &Store{
		users:     users,
		userLocks: make(map[string]*sync.Mutex),
		medium:    medium,
	}
}

func (s *Store) userLock(userID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// Update runs fn against the user's record inside that user's critical
// section, creating the record lazily on first interaction. When fn
// succeeds the full state is persisted before Update returns, so a
// restart observes every acknowledged transition. When fn fails the
// record is left untouched and nothing is written.
func (s *Store) Update(ctx context.Context, userID string, fn func(p *progress.UserProgress) error) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	p, ok := s.users[userID]
	if !ok {
		p = progress.NewUserProgress()
		s.users[userID] = p
	}
	err := fn(p)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	if err := s.save(ctx); err != nil {
		log.Printf("Store: save failed after update for user %s: %v", userID, err)
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// View runs fn against a read-only copy of the user's record. The copy
// is lazily created (but not stored or persisted) for unknown users,
// matching the lazy-record semantics of every user-facing operation.
func (s *Store) View(userID string, fn func(p *progress.UserProgress)) {
	s.mu.RLock()
	p, ok := s.users[userID]
	var c *progress.UserProgress
	if ok {
		c = p.Clone()
	}
	s.mu.RUnlock()

	if c == nil {
		c = progress.NewUserProgress()
	}
	fn(c)
}

// Snapshot deep-copies the whole state for read-only consumers
// (leaderboard, deadline sweep). The copy never aliases live records.
func (s *Store) Snapshot() map[string]*progress.UserProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[string]*progress.UserProgress, len(s.users))
	for userID, p := range s.users {
		snap[userID] = p.Clone()
	}
	return snap
}

func (s *Store) save(ctx context.Context) error {
	snap := s.Snapshot()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.medium.Save(ctx, snap)
}
