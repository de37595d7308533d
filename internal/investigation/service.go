// Package investigation provides the per-incident workspace for
// findings, hypotheses and forensic material, plus the evidence vault.
package investigation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
)

// Service errors.
var (
	ErrInvestigationNotFound = errors.New("no investigation for incident")
	ErrInvalidProbability    = errors.New("probability must be between 0 and 100")
)

// RootCauseMetadataKey is the incident metadata key stamped by a
// high-confidence root cause finding.
const RootCauseMetadataKey = "root_cause"

// IncidentMutator is the slice of the incident service the workspace
// needs: serialized mutations and status advancement.
type IncidentMutator interface {
	Get(ctx context.Context, id string) (*domain.SecurityIncident, error)
	Mutate(ctx context.Context, id string, fn func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error)) (*domain.SecurityIncident, error)
	UpdateStatus(ctx context.Context, id string, newStatus domain.IncidentStatus, userID, notes string) (*domain.SecurityIncident, error)
}

// Service owns investigation contexts, keyed by incident ID.
type Service struct {
	incidents IncidentMutator

	mu       sync.RWMutex
	contexts map[string]*domain.Investigation
	now      func() time.Time
}

// NewService creates the investigation workspace.
func NewService(incidents IncidentMutator) *Service {
	return &Service{
		incidents: incidents,
		contexts:  make(map[string]*domain.Investigation),
		now:       time.Now,
	}
}

// Start opens an investigation for the incident. Idempotent: a second
// call returns the existing context unchanged. The investigator joins
// the incident team with role "investigator" and an OPEN incident
// advances to INVESTIGATING.
func (s *Service) Start(ctx context.Context, incidentID, investigatorID string) (*domain.Investigation, error) {
	incident, err := s.incidents.Get(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.contexts[incidentID]; ok {
		snapshot := existing.Clone()
		s.mu.Unlock()
		return snapshot, nil
	}
	inv := &domain.Investigation{
		ID:           uuid.NewString(),
		IncidentID:   incidentID,
		Investigator: investigatorID,
		StartedAt:    s.now(),
		UpdatedAt:    s.now(),
	}
	s.contexts[incidentID] = inv
	s.mu.Unlock()

	_, err = s.incidents.Mutate(ctx, incidentID, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		if !inc.HasTeamMember(investigatorID) {
			inc.Team = append(inc.Team, domain.TeamMember{
				UserID:   investigatorID,
				Role:     "investigator",
				JoinedAt: s.now(),
			})
		}
		return &domain.TimelineEvent{
			Type:        domain.TimelineNote,
			Actor:       investigatorID,
			Description: "investigation started",
			Details:     map[string]any{"investigation_id": inv.ID},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record investigation start: %w", err)
	}

	if incident.Status == domain.StatusOpen {
		// The snapshot predates the team mutation above; a concurrent
		// status change makes the advance a lost race, not a failure.
		_, err := s.incidents.UpdateStatus(ctx, incidentID, domain.StatusInvestigating, investigatorID, "investigation started")
		if err != nil && !errors.Is(err, incidents.ErrInvalidTransition) {
			return nil, fmt.Errorf("advance incident status: %w", err)
		}
	}

	s.mu.RLock()
	snapshot := inv.Clone()
	s.mu.RUnlock()
	return snapshot, nil
}

// Get returns a snapshot of the investigation context for an incident.
// Callers may read it without holding any lock.
func (s *Service) Get(incidentID string) (*domain.Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.contexts[incidentID]
	if !ok {
		return nil, ErrInvestigationNotFound
	}
	return inv.Clone(), nil
}

// AddFinding appends an investigative finding. A high-confidence root
// cause finding stamps the incident's root_cause metadata,
// last-writer-wins; prior guesses survive only on the timeline.
func (s *Service) AddFinding(ctx context.Context, incidentID string, finding domain.Finding, investigatorID string) (*domain.Finding, error) {
	s.mu.Lock()
	inv, ok := s.contexts[incidentID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrInvestigationNotFound
	}
	finding.ID = uuid.NewString()
	finding.AddedBy = investigatorID
	finding.AddedAt = s.now()
	inv.Findings = append(inv.Findings, finding)
	inv.UpdatedAt = s.now()
	s.mu.Unlock()

	isRootCause := finding.Type == domain.FindingRootCause && finding.Confidence == domain.ConfidenceHigh

	_, err := s.incidents.Mutate(ctx, incidentID, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		if isRootCause {
			if inc.Metadata == nil {
				inc.Metadata = make(map[string]string)
			}
			inc.Metadata[RootCauseMetadataKey] = finding.Description
		}
		return &domain.TimelineEvent{
			Type:        domain.TimelineFindingAdded,
			Actor:       investigatorID,
			Description: fmt.Sprintf("finding added: %s", finding.Type),
			Details: map[string]any{
				"finding_id": finding.ID,
				"type":       string(finding.Type),
				"confidence": string(finding.Confidence),
			},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record finding on incident: %w", err)
	}

	return &finding, nil
}

// AddHypothesis appends a working theory to the investigation.
func (s *Service) AddHypothesis(ctx context.Context, incidentID string, hyp domain.Hypothesis, investigatorID string) (*domain.Hypothesis, error) {
	if hyp.Probability < 0 || hyp.Probability > 100 {
		return nil, ErrInvalidProbability
	}

	s.mu.Lock()
	inv, ok := s.contexts[incidentID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrInvestigationNotFound
	}
	hyp.ID = uuid.NewString()
	hyp.AddedBy = investigatorID
	hyp.AddedAt = s.now()
	if hyp.Status == "" {
		hyp.Status = domain.HypothesisProposed
	}
	inv.Hypotheses = append(inv.Hypotheses, hyp)
	inv.UpdatedAt = s.now()
	s.mu.Unlock()

	_, err := s.incidents.Mutate(ctx, incidentID, func(*domain.SecurityIncident) (*domain.TimelineEvent, error) {
		return &domain.TimelineEvent{
			Type:        domain.TimelineHypothesisAdded,
			Actor:       investigatorID,
			Description: "hypothesis added",
			Details:     map[string]any{"hypothesis_id": hyp.ID, "probability": hyp.Probability},
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("record hypothesis on incident: %w", err)
	}
	return &hyp, nil
}

// AddForensicEvent appends a correlated event to the forensic timeline.
func (s *Service) AddForensicEvent(incidentID string, ev domain.ForensicEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.contexts[incidentID]
	if !ok {
		return ErrInvestigationNotFound
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	inv.ForensicEvents = append(inv.ForensicEvents, ev)
	inv.UpdatedAt = s.now()
	return nil
}

// AddRecommendation appends a free-text recommendation.
func (s *Service) AddRecommendation(incidentID, recommendation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.contexts[incidentID]
	if !ok {
		return ErrInvestigationNotFound
	}
	inv.Recommendations = append(inv.Recommendations, recommendation)
	inv.UpdatedAt = s.now()
	return nil
}

// AppendCustody adds a chain-of-custody entry to an artifact. The chain
// is append-only; entries are never rewritten or removed.
func (s *Service) AppendCustody(incidentID, evidenceID string, entry domain.CustodyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.contexts[incidentID]
	if !ok {
		return ErrInvestigationNotFound
	}
	for i := range inv.Artifacts {
		if inv.Artifacts[i].EvidenceID == evidenceID {
			if entry.Timestamp.IsZero() {
				entry.Timestamp = s.now()
			}
			inv.Artifacts[i].Custody = append(inv.Artifacts[i].Custody, entry)
			inv.UpdatedAt = s.now()
			return nil
		}
	}
	return fmt.Errorf("artifact for evidence %s not found", evidenceID)
}

// RemoveByIncident purges the investigation context for a removed
// incident. Implements the incident service's retention hook.
func (s *Service) RemoveByIncident(incidentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, incidentID)
}

// attachArtifact links vault evidence into the investigation with an
// initial custody entry. No-op when no investigation exists.
func (s *Service) attachArtifact(incidentID string, ev domain.Evidence, custodian string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.contexts[incidentID]
	if !ok {
		return
	}
	inv.Artifacts = append(inv.Artifacts, domain.ForensicArtifact{
		EvidenceID: ev.ID,
		Hash:       ev.Hash,
		Custody: []domain.CustodyEntry{{
			Timestamp: s.now(),
			Custodian: custodian,
			Action:    "collected",
			Location:  ev.Location,
		}},
	})
	inv.UpdatedAt = s.now()
}
