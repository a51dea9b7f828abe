package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"examPrepAPI/internal/config"
)

func TestNextOccurrenceLaterToday(t *testing.T) {
	now := time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)
	next := NextOccurrence(now, config.TriggerTime{Hour: 9, Minute: 0})

	want := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Expected %v, got %v", want, next)
	}
}

func TestNextOccurrenceAlreadyPassedRollsToTomorrow(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 1, 0, time.UTC)
	next := NextOccurrence(now, config.TriggerTime{Hour: 9, Minute: 0})

	want := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Missed firings are not backfilled; expected %v, got %v", want, next)
	}
}

func TestNextOccurrenceExactlyNowRollsToTomorrow(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	next := NextOccurrence(now, config.TriggerTime{Hour: 8, Minute: 0})

	if !next.After(now) {
		t.Errorf("Next occurrence must be strictly in the future, got %v", next)
	}
	if next.Day() != 11 {
		t.Errorf("Expected tomorrow, got %v", next)
	}
}

func TestNextOccurrenceKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Sofia")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	now := time.Date(2025, 3, 10, 7, 0, 0, 0, loc)
	next := NextOccurrence(now, config.TriggerTime{Hour: 8, Minute: 0})
	if next.Location() != loc {
		t.Errorf("Expected trigger in %v, got %v", loc, next.Location())
	}
}

func TestSchedulerPanickingJobDoesNotKillProcess(t *testing.T) {
	s := NewScheduler(time.UTC)

	// Exercise runJob directly; the loop around it is plain timer wiring.
	s.runJob(dailyJob{
		name: "explosive",
		at:   config.TriggerTime{Hour: 0, Minute: 0},
		run:  func(ctx context.Context) { panic("boom") },
	})
	// Reaching here means the recover worked.
}

func TestSchedulerStopHaltsLoops(t *testing.T) {
	s := NewScheduler(time.UTC)

	var runs atomic.Int32
	s.AddDaily("never-fires", config.TriggerTime{Hour: 23, Minute: 59}, func(ctx context.Context) {
		runs.Add(1)
	})
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduler.Stop did not return")
	}
}
