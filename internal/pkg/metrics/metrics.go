// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "respondnow"

var (
	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status_code"},
	)

	// DBPoolConnections tracks database connection pool state.
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Number of database connections by state",
		},
		[]string{"state"},
	)

	// IncidentMutations counts incident lifecycle changes by change type.
	IncidentMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incident",
			Name:      "mutations_total",
			Help:      "Number of incident mutations by change type",
		},
		[]string{"change_type"},
	)

	// BootstrapSteps counts bootstrap saga step outcomes.
	BootstrapSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "steps_total",
			Help:      "Number of bootstrap saga steps by outcome",
		},
		[]string{"step", "outcome"},
	)

	// BootstrapCompensations counts bootstrap rollback actions.
	BootstrapCompensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "compensations_total",
			Help:      "Number of bootstrap compensation actions",
		},
		[]string{"step"},
	)

	// NotificationsSent counts notification delivery outcomes.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Number of notifications by delivery outcome",
		},
		[]string{"status"},
	)

	// NotificationDuration tracks notification delivery latency.
	NotificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Notification send duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// RecordIncidentMutation records a lifecycle change of the given type.
func RecordIncidentMutation(changeType string) {
	IncidentMutations.WithLabelValues(changeType).Inc()
}

// RecordBootstrapStep records the outcome of one bootstrap saga step.
func RecordBootstrapStep(step string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	BootstrapSteps.WithLabelValues(step, outcome).Inc()
}

// RecordBootstrapCompensation records one bootstrap rollback action.
func RecordBootstrapCompensation(step string) {
	BootstrapCompensations.WithLabelValues(step).Inc()
}

// RecordNotificationSent records a notification delivery outcome.
func RecordNotificationSent(status string) {
	NotificationsSent.WithLabelValues(status).Inc()
}

// RecordNotificationDuration records how long a delivery took.
func RecordNotificationDuration(d time.Duration) {
	NotificationDuration.Observe(d.Seconds())
}
