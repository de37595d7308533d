package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var escalationsFired = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "responder",
		Subsystem: "escalation",
		Name:      "fired_total",
		Help:      "Escalation events emitted, by severity and tier.",
	},
	[]string{"severity", "tier"},
)

func recordEscalation(severity, tier string) {
	escalationsFired.WithLabelValues(severity, tier).Inc()
}
