// Package metrics exposes prometheus instruments for the lead pipeline.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TransitionsTotal     *prometheus.CounterVec
	TransitionConflicts  prometheus.Counter
	AssignmentsTotal     *prometheus.CounterVec
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	NotificationsDropped prometheus.Counter
	RemindersSent        prometheus.Counter
	SweepDuration        prometheus.Histogram
}

// New registers the pipeline instruments on reg. Passing nil uses the
// default prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leads_pipeline_transitions_total",
			Help: "Committed pipeline transitions by source and target status",
		}, []string{"from", "to"}),
		TransitionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "leads_pipeline_stale_state_total",
			Help: "Transitions or assignments rejected by the compare-and-swap check",
		}),
		AssignmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leads_assignments_total",
			Help: "Committed lead assignments by method",
		}, []string{"method"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leads_notifications_sent_total",
			Help: "Notifications delivered by kind",
		}, []string{"kind"}),
		NotificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leads_notifications_failed_total",
			Help: "Notifications whose single delivery attempt failed, by kind",
		}, []string{"kind"}),
		NotificationsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "leads_notifications_dropped_total",
			Help: "Notifications dropped because the dispatch buffer was full",
		}),
		RemindersSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "leads_reminders_sent_total",
			Help: "Reminder notifications emitted by the sweep",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "leads_reminder_sweep_duration_seconds",
			Help:    "Wall time of a reminder sweep",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// NewNop returns instruments registered on a private registry, for tests and
// tools that do not expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
