// Package metrics holds the engine-side Prometheus counters. HTTP
// request metrics live in the middleware package; everything the
// services layer increments lives here.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TasksCompletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_completed_total",
			Help: "Total number of task completions",
		},
	)
	IntentsDispatchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_intents_dispatched_total",
			Help: "Notification intents handed to the dispatcher",
		},
		[]string{"kind"},
	)
	DeliveryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_delivery_failures_total",
			Help: "Notification deliveries that failed",
		},
		[]string{"kind"},
	)
)

// Register the counters. Call this from main.go
func Register() {
	prometheus.MustRegister(TasksCompletedTotal)
	prometheus.MustRegister(IntentsDispatchedTotal)
	prometheus.MustRegister(DeliveryFailuresTotal)
}
