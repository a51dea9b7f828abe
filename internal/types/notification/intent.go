package notification

import (
	"time"

	"github.com/google/uuid"
)

type IntentKind string

const (
	KindTaskOverdue IntentKind = "task_overdue"
	KindCountdown   IntentKind = "countdown"
	KindEventDay    IntentKind = "event_day"
	KindPostEvent   IntentKind = "post_event"
)

// Intent is a message waiting to be delivered, decoupled from the
// delivery mechanics. Exactly one of TargetUserID / Channel is set:
// overdue alerts address a single user, countdown messages broadcast
// to the community channel.
type Intent struct {
	ID           uuid.UUID      `json:"id"`
	Kind         IntentKind     `json:"kind"`
	TargetUserID string         `json:"target_user_id,omitempty"`
	Channel      string         `json:"channel,omitempty"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	Data         map[string]any `json:"data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewUserIntent builds an intent addressed to one user.
func NewUserIntent(kind IntentKind, userID, title, body string, data map[string]any) *Intent {
	return &Intent{
		ID:           uuid.New(),
		Kind:         kind,
		TargetUserID: userID,
		Title:        title,
		Body:         body,
		Data:         data,
		CreatedAt:    time.Now(),
	}
}

// NewChannelIntent builds a broadcast intent for a channel.
func NewChannelIntent(kind IntentKind, channel, title, body string, data map[string]any) *Intent {
	return &Intent{
		ID:        uuid.New(),
		Kind:      kind,
		Channel:   channel,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now(),
	}
}
