// Package escalation raises alerts for incidents that sit unattended
// past their severity's response deadline. Escalation is advisory: the
// sweeper never mutates incident state, it only emits events.
package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
)

// Config contains sweeper configuration.
type Config struct {
	SweepInterval time.Duration
	// Cooldown suppresses re-firing for an incident that was already
	// escalated and has not changed status since.
	Cooldown   time.Duration
	Thresholds map[domain.Severity]time.Duration
}

// DefaultConfig returns the default sweep schedule and per-severity
// response deadlines. Low severity has no deadline.
func DefaultConfig() Config {
	return Config{
		SweepInterval: 60 * time.Second,
		Cooldown:      30 * time.Minute,
		Thresholds: map[domain.Severity]time.Duration{
			domain.SeverityCritical: 15 * time.Minute,
			domain.SeverityHigh:     60 * time.Minute,
			domain.SeverityMedium:   240 * time.Minute,
		},
	}
}

// escalationTiers maps severity to who gets paged.
var escalationTiers = map[domain.Severity]string{
	domain.SeverityCritical: "executive",
	domain.SeverityHigh:     "management",
	domain.SeverityMedium:   "team_lead",
	domain.SeverityLow:      "team_lead",
}

// IncidentInspector is the read slice of the incident service the
// sweeper needs: a snapshot list plus lock-holding inspection.
type IncidentInspector interface {
	List(ctx context.Context, filters incidents.Filters) ([]*domain.SecurityIncident, error)
	Inspect(ctx context.Context, id string, fn func(inc *domain.SecurityIncident)) error
}

// EventPublisher delivers escalation events to the notification channel.
type EventPublisher interface {
	Publish(ev domain.NotificationEvent)
}

type lastEscalation struct {
	at     time.Time
	status domain.IncidentStatus
}

// Sweeper periodically scans open incidents for breached deadlines.
type Sweeper struct {
	config    Config
	incidents IncidentInspector
	publisher EventPublisher

	mu   sync.Mutex
	last map[string]lastEscalation
	now  func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSweeper creates an escalation sweeper.
func NewSweeper(config Config, inspector IncidentInspector, publisher EventPublisher) *Sweeper {
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultConfig().SweepInterval
	}
	if config.Thresholds == nil {
		config.Thresholds = DefaultConfig().Thresholds
	}
	return &Sweeper{
		config:    config,
		incidents: inspector,
		publisher: publisher,
		last:      make(map[string]lastEscalation),
		now:       time.Now,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("starting escalation sweeper",
		"interval", s.config.SweepInterval,
		"cooldown", s.config.Cooldown,
	)

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully stops the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	slog.Info("escalation sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one scan over the open incidents. Exposed so a single
// background scheduler can drive it alongside the retention sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	open, err := s.incidents.List(ctx, incidents.Filters{OpenOnly: true})
	if err != nil {
		slog.Error("failed to list open incidents", "error", err)
		return
	}

	for _, snapshot := range open {
		// Re-check under the incident lock: the snapshot may be stale
		// against a concurrent status change or close.
		err := s.incidents.Inspect(ctx, snapshot.ID, func(inc *domain.SecurityIncident) {
			s.check(inc)
		})
		if err != nil {
			// Deleted between snapshot and inspection.
			s.forget(snapshot.ID)
		}
	}

	s.pruneClosed(open)
}

func (s *Sweeper) check(inc *domain.SecurityIncident) {
	if inc.Status.IsTerminal() {
		s.forget(inc.ID)
		return
	}

	threshold, ok := s.config.Thresholds[inc.Severity]
	if !ok {
		return
	}

	age := s.now().Sub(inc.CreatedAt)
	if age < threshold {
		return
	}

	s.mu.Lock()
	prev, fired := s.last[inc.ID]
	// A status change resets the cooldown: progress was made, but the
	// incident may stall again in its new phase.
	if fired && prev.status == inc.Status && s.now().Sub(prev.at) < s.config.Cooldown {
		s.mu.Unlock()
		return
	}
	s.last[inc.ID] = lastEscalation{at: s.now(), status: inc.Status}
	s.mu.Unlock()

	tier := escalationTiers[inc.Severity]
	slog.Warn("incident unattended past deadline",
		"incident_id", inc.ID,
		"severity", inc.Severity,
		"status", inc.Status,
		"age", age.Truncate(time.Second),
		"tier", tier,
	)

	s.publisher.Publish(domain.NotificationEvent{
		IncidentID: inc.ID,
		Event:      domain.NotifyEscalationNeeded,
		Severity:   inc.Severity,
		Detail: map[string]any{
			"reason":      "unattended past response deadline",
			"tier":        tier,
			"age_minutes": int(age.Minutes()),
			"status":      string(inc.Status),
		},
		OccurredAt: s.now(),
	})

	recordEscalation(string(inc.Severity), tier)
}

func (s *Sweeper) forget(incidentID string) {
	s.mu.Lock()
	delete(s.last, incidentID)
	s.mu.Unlock()
}

// pruneClosed drops tracking entries for incidents no longer open so
// the map does not grow unbounded across long uptimes.
func (s *Sweeper) pruneClosed(open []*domain.SecurityIncident) {
	alive := make(map[string]struct{}, len(open))
	for _, inc := range open {
		alive[inc.ID] = struct{}{}
	}

	s.mu.Lock()
	for id := range s.last {
		if _, ok := alive[id]; !ok {
			delete(s.last, id)
		}
	}
	s.mu.Unlock()
}
