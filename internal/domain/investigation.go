package domain

import "time"

// FindingType tags what a finding establishes.
type FindingType string

// Finding types.
const (
	FindingRootCause   FindingType = "root_cause"
	FindingIndicator   FindingType = "indicator"
	FindingLateralMove FindingType = "lateral_movement"
	FindingExfiltraton FindingType = "exfiltration"
	FindingPersistence FindingType = "persistence"
	FindingObservation FindingType = "observation"
)

// Confidence grades how certain an investigator is about a finding.
type Confidence string

// Confidence tiers.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Finding is one investigative conclusion with supporting evidence.
type Finding struct {
	ID          string      `json:"id"`
	Type        FindingType `json:"type"`
	Description string      `json:"description"`
	Confidence  Confidence  `json:"confidence"`
	EvidenceIDs []string    `json:"evidence_ids,omitempty"`
	Impact      string      `json:"impact,omitempty"`
	AddedBy     string      `json:"added_by"`
	AddedAt     time.Time   `json:"added_at"`
}

// HypothesisStatus tracks whether a hypothesis held up.
type HypothesisStatus string

// Hypothesis statuses.
const (
	HypothesisProposed  HypothesisStatus = "proposed"
	HypothesisSupported HypothesisStatus = "supported"
	HypothesisRefuted   HypothesisStatus = "refuted"
)

// Hypothesis is a working theory under investigation.
type Hypothesis struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Supporting  []string         `json:"supporting,omitempty"`
	Refuting    []string         `json:"refuting,omitempty"`
	Probability int              `json:"probability"`
	Status      HypothesisStatus `json:"status"`
	AddedBy     string           `json:"added_by"`
	AddedAt     time.Time        `json:"added_at"`
}

// ForensicArtifact links vault evidence into the investigation with its
// own custody chain. The chain is append-only, never rewritten.
type ForensicArtifact struct {
	EvidenceID string         `json:"evidence_id"`
	Hash       string         `json:"hash,omitempty"`
	Custody    []CustodyEntry `json:"custody"`
}

// ForensicEvent is one correlated event on the forensic timeline.
type ForensicEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	AddedBy     string    `json:"added_by"`
}

// Investigation is the per-incident workspace for findings, hypotheses
// and forensic material. The incident references it by ID only.
type Investigation struct {
	ID              string             `json:"id"`
	IncidentID      string             `json:"incident_id"`
	Investigator    string             `json:"investigator"`
	Findings        []Finding          `json:"findings"`
	Hypotheses      []Hypothesis       `json:"hypotheses"`
	Artifacts       []ForensicArtifact `json:"artifacts"`
	ForensicEvents  []ForensicEvent    `json:"forensic_events"`
	Recommendations []string           `json:"recommendations"`
	StartedAt       time.Time          `json:"started_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (inv *Investigation) Clone() *Investigation {
	c := *inv
	c.Findings = append([]Finding(nil), inv.Findings...)
	c.Hypotheses = append([]Hypothesis(nil), inv.Hypotheses...)
	c.ForensicEvents = append([]ForensicEvent(nil), inv.ForensicEvents...)
	c.Recommendations = append([]string(nil), inv.Recommendations...)
	c.Artifacts = make([]ForensicArtifact, len(inv.Artifacts))
	for i, a := range inv.Artifacts {
		a.Custody = append([]CustodyEntry(nil), a.Custody...)
		c.Artifacts[i] = a
	}
	return &c
}

// RootCause returns the latest high-confidence root cause finding, if any.
func (inv *Investigation) RootCause() (Finding, bool) {
	for i := len(inv.Findings) - 1; i >= 0; i-- {
		f := inv.Findings[i]
		if f.Type == FindingRootCause && f.Confidence == ConfidenceHigh {
			return f, true
		}
	}
	return Finding{}, false
}
