package bus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "responder",
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Events delivered to subscriber queues.",
		},
		[]string{"subscriber"},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "responder",
			Subsystem: "bus",
			Name:      "events_dropped_total",
			Help:      "Events dropped because a subscriber queue was full.",
		},
		[]string{"subscriber"},
	)
)

func recordPublished(subscriber string) {
	eventsPublished.WithLabelValues(subscriber).Inc()
}

func recordDropped(subscriber string) {
	eventsDropped.WithLabelValues(subscriber).Inc()
}
