// Package notify drains lifecycle events off the bus and delivers them
// to the paging channel. Fire-and-forget: failures are logged, never
// retried, never propagated back into incident handling.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sentineldesk/responder/internal/domain"
)

// Sender delivers one rendered notification.
type Sender interface {
	Name() string
	Send(ctx context.Context, ev domain.NotificationEvent) error
}

// Config contains worker configuration.
type Config struct {
	// RatePerMinute caps outbound deliveries. Zero disables the cap.
	RatePerMinute int
	SendTimeout   time.Duration
}

// DefaultConfig returns default worker configuration.
func DefaultConfig() Config {
	return Config{
		RatePerMinute: 60,
		SendTimeout:   10 * time.Second,
	}
}

// Worker consumes events from a bus subscription and dispatches them.
type Worker struct {
	config  Config
	events  <-chan domain.NotificationEvent
	senders []Sender
	limiter *rate.Limiter

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWorker creates a notification worker over a bus subscription.
func NewWorker(config Config, events <-chan domain.NotificationEvent, senders ...Sender) *Worker {
	if config.SendTimeout <= 0 {
		config.SendTimeout = DefaultConfig().SendTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RatePerMinute)), config.RatePerMinute)
	}

	return &Worker{
		config:  config,
		events:  events,
		senders: senders,
		limiter: limiter,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting notification worker",
		"senders", len(w.senders),
		"rate_per_minute", w.config.RatePerMinute,
	)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop waits for the delivery loop to drain and exit. The bus
// subscription channel must be closed first.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	slog.Info("notification worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.events:
			if !ok {
				return
			}
			w.deliver(ctx, ev)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, ev domain.NotificationEvent) {
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	for _, sender := range w.senders {
		start := time.Now()

		sendCtx, cancel := context.WithTimeout(ctx, w.config.SendTimeout)
		err := sender.Send(sendCtx, ev)
		cancel()

		if err != nil {
			slog.Error("notification delivery failed",
				"sender", sender.Name(),
				"event", ev.Event,
				"incident_id", ev.IncidentID,
				"error", err,
			)
			recordDelivery(sender.Name(), "failed")
			continue
		}

		recordDelivery(sender.Name(), "success")
		recordDeliveryDuration(sender.Name(), time.Since(start))
	}
}
