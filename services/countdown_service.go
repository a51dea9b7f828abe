package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"examPrepAPI/internal/types/notification"
	"examPrepAPI/internal/types/progress"
)

// UrgencyThresholdDays flips the daily countdown into urgent mode for
// the final stretch before the event.
const UrgencyThresholdDays = 30

// IntentSink accepts notification intents for asynchronous delivery.
// Implementations never block the caller beyond enqueueing and never
// propagate delivery failures back.
type IntentSink interface {
	Dispatch(ctx context.Context, intent *notification.Intent)
}

// CountdownService computes days-to-event and drives both the daily
// broadcast job and the synchronous countdown command.
type CountdownService struct {
	eventDate time.Time
	channel   string
	sink      IntentSink

	now func() time.Time
}

func NewCountdownService(eventDate time.Time, channel string, sink IntentSink, loc *time.Location) *CountdownService {
	return &CountdownService{
		eventDate: eventDate,
		channel:   channel,
		sink:      sink,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// DaysRemaining is the whole-day distance from today to the event
// date. Negative once the event has passed.
func (s *CountdownService) DaysRemaining() int {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	event := time.Date(s.eventDate.Year(), s.eventDate.Month(), s.eventDate.Day(), 0, 0, 0, 0, now.Location())
	// Round, don't truncate: a DST transition makes one day 23 or 25
	// hours long.
	return int(math.Round(event.Sub(today).Hours() / 24))
}

// CountdownStatus is the data behind the countdown command.
type CountdownStatus struct {
	DaysRemaining int    `json:"days_remaining"`
	Urgent        bool   `json:"urgent"`
	Phase         string `json:"phase"` // "countdown", "event_day", "post_event"
	EventDate     string `json:"event_date"`
}

func (s *CountdownService) Status() *CountdownStatus {
	days := s.DaysRemaining()
	status := &CountdownStatus{
		DaysRemaining: days,
		EventDate:     s.eventDate.Format(progress.DateLayout),
	}

	switch {
	case days > 0:
		status.Phase = "countdown"
		status.Urgent = days <= UrgencyThresholdDays
	case days == 0:
		status.Phase = "event_day"
	default:
		status.Phase = "post_event"
	}
	return status
}

// Run is the daily scheduled job: one broadcast intent per day, phase
// chosen by the sign of the remaining-day count. Delivery problems are
// the dispatcher's to log; nothing here can fail the scheduler.
func (s *CountdownService) Run(ctx context.Context) {
	status := s.Status()
	log.Printf("Countdown job: %d days remaining (phase %s)", status.DaysRemaining, status.Phase)

	var intent *notification.Intent
	switch status.Phase {
	case "countdown":
		intent = notification.NewChannelIntent(
			notification.KindCountdown,
			s.channel,
			"Event countdown",
			fmt.Sprintf("%d days remaining until %s!", status.DaysRemaining, status.EventDate),
			map[string]any{
				"days_remaining": status.DaysRemaining,
				"urgent":         status.Urgent,
			},
		)
	case "event_day":
		intent = notification.NewChannelIntent(
			notification.KindEventDay,
			s.channel,
			"Event day",
			"The big day is here. Good luck today!",
			nil,
		)
	default:
		intent = notification.NewChannelIntent(
			notification.KindPostEvent,
			s.channel,
			"Event finished",
			"The event is over. Hope it went well!",
			nil,
		)
	}

	s.sink.Dispatch(ctx, intent)
}
