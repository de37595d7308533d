package reporting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reportsGenerated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "responder",
		Subsystem: "reporting",
		Name:      "generated_total",
		Help:      "Incident reports generated, by type.",
	},
	[]string{"type"},
)

func recordReportGenerated(reportType string) {
	reportsGenerated.WithLabelValues(reportType).Inc()
}
