package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "responder",
			Subsystem: "notify",
			Name:      "deliveries_total",
			Help:      "Notification delivery attempts, by sender and outcome.",
		},
		[]string{"sender", "status"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "responder",
			Subsystem: "notify",
			Name:      "delivery_duration_seconds",
			Help:      "Notification delivery latency, by sender.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sender"},
	)
)

func recordDelivery(sender, status string) {
	deliveries.WithLabelValues(sender, status).Inc()
}

func recordDeliveryDuration(sender string, d time.Duration) {
	deliveryDuration.WithLabelValues(sender).Observe(d.Seconds())
}
