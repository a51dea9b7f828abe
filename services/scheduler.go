package services

import (
	"context"
	"log"
	"sync"
	"time"

	"examPrepAPI/internal/config"
)

// Job is one unit of scheduled work. The context carries a per-run
// timeout; jobs must be safe to run on their own goroutine.
type Job func(ctx context.Context)

type dailyJob struct {
	name string
	at   config.TriggerTime
	run  Job
}

// Scheduler fires each registered job at its daily wall-clock time in
// the configured location. Triggers are re-registered on every process
// start and firings missed while the process was down are not backfilled:
// a job always waits for its next occurrence.
type Scheduler struct {
	loc      *time.Location
	jobs     []dailyJob
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(loc *time.Location) *Scheduler {
	return &Scheduler{
		loc:      loc,
		stopChan: make(chan struct{}),
	}
}

// AddDaily registers a job. Must be called before Start.
func (s *Scheduler) AddDaily(name string, at config.TriggerTime, run Job) {
	s.jobs = append(s.jobs, dailyJob{name: name, at: at, run: run})
}

// Start launches one goroutine per job.
func (s *Scheduler) Start() {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(j)
		log.Printf("Scheduler: registered %s at %s daily", j.name, j.at)
	}
}

func (s *Scheduler) loop(j dailyJob) {
	defer s.wg.Done()
	for {
		next := NextOccurrence(time.Now().In(s.loc), j.at)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			s.runJob(j)
		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

// runJob isolates each firing: a panicking job logs and the schedule
// keeps going.
func (s *Scheduler) runJob(j dailyJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Scheduler: job %s panicked: %v", j.name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Printf("Scheduler: running %s", j.name)
	j.run(ctx)
}

// Stop halts all job loops. In-flight runs finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	log.Println("Scheduler stopped")
}

// NextOccurrence returns the first instant strictly after now that
// lands on the trigger's wall-clock time.
func NextOccurrence(now time.Time, at config.TriggerTime) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
