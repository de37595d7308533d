package investigation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sentineldesk/responder/internal/domain"
)

// CollectInput describes one piece of forensic material to vault.
type CollectInput struct {
	Type        domain.EvidenceType `json:"type" validate:"required"`
	Description string              `json:"description" validate:"required"`
	Source      string              `json:"source" validate:"required"`
	Location    string              `json:"location"`
	Payload     any                 `json:"payload"`
}

// CollectEvidence vaults a piece of evidence against the incident. The
// record is immutable once written: a fresh ID, the collection time and
// a SHA-256 over the serialized payload (evidence without payload data
// has no hash). The incident gains an
// evidence reference and a timeline event; when an investigation is
// open the vault also attaches a forensic artifact whose custody chain
// starts with a "collected" entry.
func (s *Service) CollectEvidence(ctx context.Context, incidentID string, in CollectInput, collectorID string) (*domain.Evidence, error) {
	hash, err := payloadHash(in.Payload)
	if err != nil {
		return nil, fmt.Errorf("hash evidence payload: %w", err)
	}

	ev := domain.Evidence{
		ID:          uuid.NewString(),
		IncidentID:  incidentID,
		Type:        in.Type,
		Description: in.Description,
		Source:      in.Source,
		CollectedBy: collectorID,
		CollectedAt: s.now(),
		Hash:        hash,
		Location:    in.Location,
	}

	_, err = s.incidents.Mutate(ctx, incidentID, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		inc.Evidence = append(inc.Evidence, ev)
		inc.EvidenceIDs = append(inc.EvidenceIDs, ev.ID)
		return &domain.TimelineEvent{
			Type:        domain.TimelineEvidenceCollected,
			Actor:       collectorID,
			Description: fmt.Sprintf("evidence collected: %s", ev.Type),
			Details: map[string]any{
				"evidence_id": ev.ID,
				"source":      ev.Source,
				"hash":        ev.Hash,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.attachArtifact(incidentID, ev, collectorID)

	recordEvidenceCollected(string(ev.Type))
	return &ev, nil
}

// EvidenceFor returns the incident's vaulted evidence, oldest first.
func (s *Service) EvidenceFor(ctx context.Context, incidentID string) ([]domain.Evidence, error) {
	inc, err := s.incidents.Get(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Evidence, len(inc.Evidence))
	copy(out, inc.Evidence)
	return out, nil
}

// VerifyEvidence recomputes the payload hash and compares it against
// the vaulted one. Detects tampering of externally held payloads.
func VerifyEvidence(ev domain.Evidence, payload any) (bool, error) {
	hash, err := payloadHash(payload)
	if err != nil {
		return false, err
	}
	return hash == ev.Hash, nil
}

// payloadHash is SHA-256 over the JSON-serialized payload. Map keys
// serialize in sorted order, so equal payloads hash equal. Evidence
// collected without payload data carries no hash.
func payloadHash(payload any) (string, error) {
	if payload == nil {
		return "", nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
