package config

import (
	"fmt"
	"os"
	"time"

	"examPrepAPI/internal/types/progress"
)

// TriggerTime is a daily wall-clock firing time for a scheduled job.
type TriggerTime struct {
	Hour   int
	Minute int
}

func (t TriggerTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Config is read once at startup and immutable afterwards.
type Config struct {
	// EventDate is the fixed date the community is counting down to.
	EventDate time.Time

	// CountdownChannel is the broadcast channel (FCM topic) the daily
	// countdown is published to.
	CountdownChannel string

	CountdownTime     TriggerTime
	DeadlineSweepTime TriggerTime

	// Location is the time zone both daily triggers and all calendar
	// arithmetic use.
	Location *time.Location

	// DataFile is the JSON persistence path. Ignored when DatabaseURL
	// is set, which selects the Postgres medium instead.
	DataFile    string
	DatabaseURL string

	Port string

	// UndoRevertsStreak controls whether undoing the day's only
	// completion also rolls back currentStreak/lastCompletedDate.
	// Off by default: the historical behavior keeps the streak day.
	UndoRevertsStreak bool
}

// Load builds the Config from the environment. EVENT_DATE is the only
// required key; everything else has a default.
func Load() (*Config, error) {
	eventDateStr := os.Getenv("EVENT_DATE")
	if eventDateStr == "" {
		return nil, fmt.Errorf("EVENT_DATE environment variable is not set")
	}

	locName := getEnv("TIME_ZONE", "UTC")
	loc, err := time.LoadLocation(locName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", locName, err)
	}

	eventDate, err := time.ParseInLocation(progress.DateLayout, eventDateStr, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid EVENT_DATE %q (want YYYY-MM-DD): %w", eventDateStr, err)
	}

	countdownAt, err := ParseTriggerTime(getEnv("COUNTDOWN_TIME", "08:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid COUNTDOWN_TIME: %w", err)
	}

	sweepAt, err := ParseTriggerTime(getEnv("DEADLINE_SWEEP_TIME", "09:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEADLINE_SWEEP_TIME: %w", err)
	}

	return &Config{
		EventDate:         eventDate,
		CountdownChannel:  getEnv("COUNTDOWN_CHANNEL", "countdown"),
		CountdownTime:     countdownAt,
		DeadlineSweepTime: sweepAt,
		Location:          loc,
		DataFile:          getEnv("DATA_FILE", "tasks.json"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Port:              getEnv("PORT", "3333"),
		UndoRevertsStreak: os.Getenv("UNDO_REVERTS_STREAK") == "true",
	}, nil
}

// ParseTriggerTime parses an HH:MM wall-clock time.
func ParseTriggerTime(s string) (TriggerTime, error) {
	var t TriggerTime
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return t, fmt.Errorf("want HH:MM, got %q", s)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return t, fmt.Errorf("out of range trigger time %q", s)
	}
	return t, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
