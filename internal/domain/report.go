package domain

import "time"

// ReportType selects the audience and depth of a generated report.
type ReportType string

// Report types.
const (
	ReportExecutive  ReportType = "executive"
	ReportTechnical  ReportType = "technical"
	ReportRegulatory ReportType = "regulatory"
	ReportCustomer   ReportType = "customer"
	ReportPostmortem ReportType = "postmortem"
)

// IsValid checks if the report type is valid.
func (t ReportType) IsValid() bool {
	switch t {
	case ReportExecutive, ReportTechnical, ReportRegulatory,
		ReportCustomer, ReportPostmortem:
		return true
	}
	return false
}

// Classification is the handling tier stamped on a report.
type Classification string

// Classification tiers.
const (
	ClassificationPublic       Classification = "public"
	ClassificationInternal     Classification = "internal"
	ClassificationConfidential Classification = "confidential"
	ClassificationRestricted   Classification = "restricted"
)

// ReportContent is the compiled body of an incident report.
type ReportContent struct {
	Summary         string              `json:"summary"`
	Details         SecurityIncident    `json:"details"`
	Timeline        []TimelineEvent     `json:"timeline"`
	Impact          ImpactAssessment    `json:"impact"`
	RootCause       string              `json:"root_cause,omitempty"`
	Containment     []ContainmentAction `json:"containment"`
	LessonsLearned  []string            `json:"lessons_learned,omitempty"`
	Recommendations []string            `json:"recommendations"`
}

// IncidentReport is a point-in-time document compiled from an incident's
// history. Reports accumulate per incident; versions are never overwritten.
type IncidentReport struct {
	ID             string         `json:"id"`
	IncidentID     string         `json:"incident_id"`
	Type           ReportType     `json:"type"`
	Title          string         `json:"title"`
	Version        int            `json:"version"`
	GeneratedBy    string         `json:"generated_by"`
	GeneratedAt    time.Time      `json:"generated_at"`
	Content        ReportContent  `json:"content"`
	Distribution   []string       `json:"distribution"`
	Classification Classification `json:"classification"`
}
