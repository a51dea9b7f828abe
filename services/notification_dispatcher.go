package services

import (
	"context"
	"log"
	"sync"
	"time"

	"examPrepAPI/internal/metrics"
	"examPrepAPI/internal/types/notification"
)

// PushProvider delivers notifications to their final destination. The
// real implementation talks to FCM; tests inject fakes.
type PushProvider interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]any) error
	SendToChannel(ctx context.Context, channel, title, body string, data map[string]any) error
}

// NotificationDispatcher decouples intent emission from delivery: jobs
// and command handlers enqueue, a fixed worker pool delivers. A failed
// or slow delivery never reaches back into the emitting job, and one
// user's failure never affects another's.
type NotificationDispatcher struct {
	provider PushProvider
	workers  int
	jobQueue chan *notification.Intent
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewNotificationDispatcher() *NotificationDispatcher {
	d := &NotificationDispatcher{
		workers:  5, // 5 workers is plenty for now
		jobQueue: make(chan *notification.Intent, 100),
		stopChan: make(chan struct{}),
	}

	d.startWorkers()

	return d
}

// SetPushProvider injects the real delivery provider from main.go.
// Until one is set, intents are logged and dropped.
func (d *NotificationDispatcher) SetPushProvider(provider PushProvider) {
	d.provider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case intent := <-d.jobQueue:
			d.deliver(intent)
		case <-d.stopChan:
			// Deliver whatever is still queued before exiting so a
			// shutdown never drops accepted intents.
			for {
				select {
				case intent := <-d.jobQueue:
					d.deliver(intent)
				default:
					return
				}
			}
		}
	}
}

// Dispatch queues an intent for delivery. A full queue drops the
// intent with a log line; emitters are never blocked for long and
// never see an error.
func (d *NotificationDispatcher) Dispatch(_ context.Context, intent *notification.Intent) {
	metrics.IntentsDispatchedTotal.WithLabelValues(string(intent.Kind)).Inc()

	select {
	case d.jobQueue <- intent:
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue intent %s (%s): queue full", intent.ID, intent.Kind)
		metrics.DeliveryFailuresTotal.WithLabelValues(string(intent.Kind)).Inc()
	}
}

func (d *NotificationDispatcher) deliver(intent *notification.Intent) {
	if d.provider == nil {
		log.Printf("No push provider set, dropping intent %s (%s)", intent.ID, intent.Kind)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if intent.Channel != "" {
		err = d.provider.SendToChannel(ctx, intent.Channel, intent.Title, intent.Body, intent.Data)
	} else {
		err = d.provider.SendToUser(ctx, intent.TargetUserID, intent.Title, intent.Body, intent.Data)
	}

	if err != nil {
		log.Printf("Delivery failed for intent %s (%s): %v", intent.ID, intent.Kind, err)
		metrics.DeliveryFailuresTotal.WithLabelValues(string(intent.Kind)).Inc()
	}
}

// Stop the dispatcher gracefully
func (d *NotificationDispatcher) Stop() {
	log.Println("Stopping notification dispatcher...")
	close(d.stopChan)
	d.wg.Wait()
	log.Println("Notification dispatcher stopped")
}

// MockPushProvider logs instead of delivering. Used in tests and when
// FCM credentials are absent.
type MockPushProvider struct{}

func (m *MockPushProvider) SendToUser(_ context.Context, userID, title, body string, _ map[string]any) error {
	log.Printf("MOCK PUSH: user %s: %s - %s", userID, title, body)
	return nil
}

func (m *MockPushProvider) SendToChannel(_ context.Context, channel, title, body string, _ map[string]any) error {
	log.Printf("MOCK PUSH: channel %s: %s - %s", channel, title, body)
	return nil
}
