package incidents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sentineldesk/responder/internal/domain"
)

// SystemActor attributes automated mutations that no human performed.
const SystemActor = "system"

// PlaybookSource resolves playbooks for incident processing.
type PlaybookSource interface {
	FindRelevant(t domain.IncidentType, s domain.Severity) (*domain.Playbook, bool)
	Get(id string) (*domain.Playbook, bool)
}

// ActionExecutor runs named containment actions against targets.
type ActionExecutor interface {
	Known(action string) bool
	Execute(ctx context.Context, action, target string, params map[string]any) (map[string]any, error)
}

// ResponderDirectory resolves user IDs to assignable team members.
type ResponderDirectory interface {
	OnCallLead(ctx context.Context, severity domain.Severity) (domain.TeamMember, error)
	Resolve(ctx context.Context, userID string) (domain.TeamMember, error)
}

// AuditSink receives append-only audit records. Failures must never
// block incident handling; the service logs and continues.
type AuditSink interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}

// EventPublisher fans lifecycle events out to external collaborators.
type EventPublisher interface {
	Publish(ev domain.NotificationEvent)
}

// RetentionHook is invoked when the retention sweep removes an incident
// so owners of attached state (investigations, evidence) purge theirs.
type RetentionHook interface {
	RemoveByIncident(incidentID string)
}

// Config tunes incident service behavior.
type Config struct {
	AutoContainment     bool
	AutoContainSeverity domain.Severity
	MaxAutoActions      int
	RetentionWindow     time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AutoContainment:     true,
		AutoContainSeverity: domain.SeverityHigh,
		MaxAutoActions:      5,
		RetentionWindow:     365 * 24 * time.Hour,
	}
}

// Service owns the incident store and serializes all mutations through
// per-incident locks.
type Service struct {
	repo      Repository
	playbooks PlaybookSource
	executor  ActionExecutor
	directory ResponderDirectory
	audit     AuditSink
	events    EventPublisher
	config    Config

	locks sync.Map // incident ID -> *sync.Mutex
	hooks []RetentionHook
	now   func() time.Time
}

// NewService creates the incident service.
func NewService(repo Repository, playbooks PlaybookSource, executor ActionExecutor, directory ResponderDirectory, audit AuditSink, events EventPublisher, config Config) *Service {
	if config.MaxAutoActions <= 0 {
		config.MaxAutoActions = DefaultConfig().MaxAutoActions
	}
	if config.RetentionWindow <= 0 {
		config.RetentionWindow = DefaultConfig().RetentionWindow
	}
	return &Service{
		repo:      repo,
		playbooks: playbooks,
		executor:  executor,
		directory: directory,
		audit:     audit,
		events:    events,
		config:    config,
		now:       time.Now,
	}
}

// AddRetentionHook registers a purge hook for the retention sweep.
func (s *Service) AddRetentionHook(h RetentionHook) {
	s.hooks = append(s.hooks, h)
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	Title             string
	Description       string
	Type              domain.IncidentType
	Severity          domain.Severity
	Source            domain.IncidentSource
	ReportedBy        string
	AffectedUsers     []string
	AffectedResources []string
	Indicators        []string
	Metadata          map[string]string
}

// CreateIncident registers a new incident: computes risk and impact,
// seeds the timeline, attaches a matching playbook, auto-assigns a lead
// for critical severity and fires auto-containment when configured.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.SecurityIncident, error) {
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, input.Type)
	}
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, input.Severity)
	}

	id, err := s.generateID(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate incident id: %w", err)
	}

	now := s.now()
	incident := &domain.SecurityIncident{
		ID:                id,
		Title:             input.Title,
		Description:       input.Description,
		Type:              input.Type,
		Severity:          input.Severity,
		Status:            domain.StatusOpen,
		Source:            input.Source,
		ReportedBy:        input.ReportedBy,
		AffectedUsers:     append([]string(nil), input.AffectedUsers...),
		AffectedResources: append([]string(nil), input.AffectedResources...),
		Indicators:        append([]string(nil), input.Indicators...),
		Metadata:          cloneMetadata(input.Metadata),
		RiskScore:         AssessRisk(input.Type, input.Severity),
		Impact:            AssessImpact(input.Type, input.Severity),
		CreatedAt:         now,
		UpdatedAt:         now,
		Timeline: []domain.TimelineEvent{{
			ID:          uuid.NewString(),
			Type:        domain.TimelineStatusChange,
			Timestamp:   now,
			Actor:       input.ReportedBy,
			Description: "incident created",
			Details: map[string]any{
				"status": string(domain.StatusOpen),
				"source": string(input.Source),
			},
		}},
	}

	if pb, ok := s.playbooks.FindRelevant(input.Type, input.Severity); ok {
		incident.PlaybookID = pb.ID
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		return nil, fmt.Errorf("store incident: %w", err)
	}

	recordIncidentCreated(incident.Type, incident.Severity)

	// Best-effort: assignment failure must not fail creation.
	if input.Severity == domain.SeverityCritical {
		if err := s.autoAssign(ctx, incident.ID); err != nil {
			slog.Warn("auto-assignment failed", "incident_id", incident.ID, "error", err)
		}
	}

	if s.config.AutoContainment && input.Severity.AtLeast(s.config.AutoContainSeverity) {
		if err := s.ExecuteAutoContainment(ctx, incident.ID); err != nil {
			slog.Warn("auto-containment failed", "incident_id", incident.ID, "error", err)
		}
	}

	s.recordAudit(ctx, input.ReportedBy, "incident_created", incident.ID, incident.Severity, map[string]any{
		"type":       string(incident.Type),
		"risk_score": incident.RiskScore,
	})
	s.events.Publish(domain.NotificationEvent{
		IncidentID: incident.ID,
		Event:      domain.NotifyIncidentCreated,
		Severity:   incident.Severity,
		Detail:     map[string]any{"title": incident.Title, "type": string(incident.Type)},
		OccurredAt: now,
	})

	return s.Get(ctx, incident.ID)
}

// UpdateStatus moves an incident along the lifecycle state machine.
// Illegal edges are rejected with ErrInvalidTransition. Terminal-ish
// timestamps are stamped exactly once and never cleared.
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus domain.IncidentStatus, userID, notes string) (*domain.SecurityIncident, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, newStatus)
	}

	var prev domain.IncidentStatus
	incident, err := s.mutate(ctx, id, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		prev = inc.Status
		if !inc.Status.CanTransitionTo(newStatus) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inc.Status, newStatus)
		}

		inc.Status = newStatus
		now := s.now()
		switch newStatus {
		case domain.StatusContained:
			if inc.ContainedAt == nil {
				inc.ContainedAt = &now
			}
		case domain.StatusResolved:
			if inc.ResolvedAt == nil {
				inc.ResolvedAt = &now
			}
		case domain.StatusClosed, domain.StatusFalsePositive:
			if inc.ClosedAt == nil {
				inc.ClosedAt = &now
			}
		}

		details := map[string]any{
			"from": string(prev),
			"to":   string(newStatus),
		}
		if notes != "" {
			details["notes"] = notes
		}
		return &domain.TimelineEvent{
			Type:        domain.TimelineStatusChange,
			Actor:       userID,
			Description: fmt.Sprintf("status changed from %s to %s", prev, newStatus),
			Details:     details,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	recordStatusChange(newStatus)

	s.recordAudit(ctx, userID, "status_changed", id, incident.Severity, map[string]any{
		"from": string(prev),
		"to":   string(newStatus),
	})
	s.events.Publish(domain.NotificationEvent{
		IncidentID: id,
		Event:      domain.NotifyStatusChanged,
		Severity:   incident.Severity,
		Detail:     map[string]any{"from": string(prev), "to": string(newStatus)},
		OccurredAt: s.now(),
	})

	return incident, nil
}

// Get returns a snapshot of the incident.
func (s *Service) Get(ctx context.Context, id string) (*domain.SecurityIncident, error) {
	return s.repo.Get(ctx, id)
}

// List returns incident snapshots matching the filters.
func (s *Service) List(ctx context.Context, filters Filters) ([]*domain.SecurityIncident, error) {
	return s.repo.List(ctx, filters)
}

// Inspect runs fn against a snapshot of the incident while holding its
// lock, so periodic sweeps do not race concurrent mutations.
func (s *Service) Inspect(ctx context.Context, id string, fn func(inc *domain.SecurityIncident)) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	inc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(inc)
	return nil
}

// AssignLead sets the incident lead and adds them to the team.
func (s *Service) AssignLead(ctx context.Context, id, userID, assignedBy string) (*domain.SecurityIncident, error) {
	member, err := s.directory.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	return s.addMember(ctx, id, member, "lead", assignedBy, true)
}

// AddTeamMember adds a responder with the given role to the incident team.
func (s *Service) AddTeamMember(ctx context.Context, id, userID, role, addedBy string) (*domain.SecurityIncident, error) {
	member, err := s.directory.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	return s.addMember(ctx, id, member, role, addedBy, false)
}

func (s *Service) addMember(ctx context.Context, id string, member domain.TeamMember, role, actor string, asLead bool) (*domain.SecurityIncident, error) {
	return s.mutate(ctx, id, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		member.Role = role
		member.JoinedAt = s.now()
		if asLead {
			inc.AssignedLead = member.UserID
		}
		if !inc.HasTeamMember(member.UserID) {
			inc.Team = append(inc.Team, member)
		}
		return &domain.TimelineEvent{
			Type:        domain.TimelineAssignment,
			Actor:       actor,
			Description: fmt.Sprintf("%s joined as %s", member.UserID, role),
			Details:     map[string]any{"user_id": member.UserID, "role": role},
		}, nil
	})
}

// LinkIncident records a relationship to another incident on both sides.
func (s *Service) LinkIncident(ctx context.Context, id, relatedID, userID string) error {
	if ok, err := s.repo.Exists(ctx, relatedID); err != nil {
		return fmt.Errorf("check related incident: %w", err)
	} else if !ok {
		return fmt.Errorf("related %w: %s", ErrIncidentNotFound, relatedID)
	}

	link := func(a, b string) error {
		_, err := s.mutate(ctx, a, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
			for _, r := range inc.RelatedIncidents {
				if r == b {
					return nil, errAlreadyLinked
				}
			}
			inc.RelatedIncidents = append(inc.RelatedIncidents, b)
			return &domain.TimelineEvent{
				Type:        domain.TimelineIncidentLinked,
				Actor:       userID,
				Description: fmt.Sprintf("linked to incident %s", b),
				Details:     map[string]any{"related_id": b},
			}, nil
		})
		if err == errAlreadyLinked {
			return nil
		}
		return err
	}

	if err := link(id, relatedID); err != nil {
		return err
	}
	return link(relatedID, id)
}

// AddIndicator appends a threat-indicator string to the incident.
func (s *Service) AddIndicator(ctx context.Context, id, indicator, userID string) (*domain.SecurityIncident, error) {
	return s.mutate(ctx, id, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		inc.Indicators = append(inc.Indicators, indicator)
		return &domain.TimelineEvent{
			Type:        domain.TimelineIndicatorAdded,
			Actor:       userID,
			Description: "threat indicator added",
			Details:     map[string]any{"indicator": indicator},
		}, nil
	})
}

// AddNote appends a free-text note to the incident timeline.
func (s *Service) AddNote(ctx context.Context, id, note, userID string) (*domain.SecurityIncident, error) {
	return s.mutate(ctx, id, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		return &domain.TimelineEvent{
			Type:        domain.TimelineNote,
			Actor:       userID,
			Description: note,
		}, nil
	})
}

// Mutate applies fn to the incident under its lock and persists the
// result. fn may return a timeline event to append, or nil when the
// change is recorded elsewhere. Exported for the investigation workspace,
// which shares the incident's single-writer contract.
func (s *Service) Mutate(ctx context.Context, id string, fn func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error)) (*domain.SecurityIncident, error) {
	return s.mutate(ctx, id, fn)
}

func (s *Service) mutate(ctx context.Context, id string, fn func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error)) (*domain.SecurityIncident, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	inc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err := fn(inc)
	if err != nil {
		return nil, err
	}
	if ev != nil {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = s.now()
		}
		inc.Timeline = append(inc.Timeline, *ev)
	}
	inc.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, inc); err != nil {
		return nil, fmt.Errorf("persist incident: %w", err)
	}
	return inc, nil
}

func (s *Service) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// autoAssign puts the on-call lead for the severity on the incident.
func (s *Service) autoAssign(ctx context.Context, id string) error {
	inc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	lead, err := s.directory.OnCallLead(ctx, inc.Severity)
	if err != nil {
		return fmt.Errorf("resolve on-call lead: %w", err)
	}
	_, err = s.addMember(ctx, id, lead, "lead", SystemActor, true)
	return err
}

// generateID builds a human-legible unique ID: date prefix plus a random
// suffix, checked against the store for collisions.
func (s *Service) generateID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		id := fmt.Sprintf("IR-%s-%s", s.now().Format("20060102"), suffix)
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", ErrDuplicateID
}

func (s *Service) recordAudit(ctx context.Context, userID, action, resourceID string, severity domain.Severity, details map[string]any) {
	rec := domain.AuditRecord{
		UserID:       userID,
		Action:       action,
		ResourceType: "incident",
		ResourceID:   resourceID,
		Details:      details,
		Severity:     severity,
		Timestamp:    s.now(),
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		// Observability must never block incident handling.
		slog.Error("audit record failed", "action", action, "resource_id", resourceID, "error", err)
	}
}

func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var errAlreadyLinked = fmt.Errorf("already linked")
