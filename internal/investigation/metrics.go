package investigation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var evidenceCollected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "responder",
		Subsystem: "investigation",
		Name:      "evidence_collected_total",
		Help:      "Evidence records vaulted, by type.",
	},
	[]string{"type"},
)

func recordEvidenceCollected(evidenceType string) {
	evidenceCollected.WithLabelValues(evidenceType).Inc()
}
