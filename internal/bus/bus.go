// Package bus is the in-process publish/subscribe layer carrying
// lifecycle events to external collaborators. Delivery is best-effort:
// a slow subscriber drops events rather than blocking publishers.
package bus

import (
	"log/slog"
	"sync"

	"github.com/sentineldesk/responder/internal/domain"
)

const defaultBuffer = 256

type subscriber struct {
	name string
	ch   chan domain.NotificationEvent
}

// Bus fans lifecycle events out to named subscribers over bounded
// queues. Publish never blocks.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	closed bool
}

// New creates an event bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a named subscriber with its own bounded queue.
// The returned channel is closed by Close.
func (b *Bus) Subscribe(name string, buffer int) <-chan domain.NotificationEvent {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{name: name, ch: make(chan domain.NotificationEvent, buffer)}
	b.subs = append(b.subs, sub)
	return sub.ch
}

// Publish delivers the event to every subscriber. A full queue drops
// the event for that subscriber only.
func (b *Bus) Publish(ev domain.NotificationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
			recordPublished(sub.name)
		default:
			recordDropped(sub.name)
			slog.Warn("event dropped, subscriber queue full",
				"subscriber", sub.name,
				"event", ev.Event,
				"incident_id", ev.IncidentID,
			)
		}
	}
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}
