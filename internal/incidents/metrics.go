package incidents

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sentineldesk/responder/internal/domain"
)

const namespace = "responder"

var (
	incidentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "created_total",
			Help:      "Total incidents created by type and severity",
		},
		[]string{"type", "severity"},
	)

	statusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "incidents",
			Name:      "status_changes_total",
			Help:      "Total status transitions by target status",
		},
		[]string{"status"},
	)

	actionsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "containment",
			Name:      "actions_total",
			Help:      "Containment actions by name and outcome",
		},
		[]string{"action", "status"},
	)

	actionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "containment",
			Name:      "action_duration_seconds",
			Help:      "Time to execute a containment action",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"action"},
	)
)

func recordIncidentCreated(t domain.IncidentType, s domain.Severity) {
	incidentsCreated.WithLabelValues(string(t), string(s)).Inc()
}

func recordStatusChange(s domain.IncidentStatus) {
	statusChanges.WithLabelValues(string(s)).Inc()
}

func recordActionExecuted(action string, status domain.ActionStatus) {
	actionsExecuted.WithLabelValues(action, string(status)).Inc()
}

func recordActionDuration(action string, d time.Duration) {
	actionDuration.WithLabelValues(action).Observe(d.Seconds())
}
