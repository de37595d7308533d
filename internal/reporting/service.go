// Package reporting compiles point-in-time incident report documents.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sentineldesk/responder/internal/domain"
)

// distributionLists maps report type to who receives the document.
var distributionLists = map[domain.ReportType][]string{
	domain.ReportExecutive:  {"ciso", "cto", "legal"},
	domain.ReportTechnical:  {"security_team", "infrastructure_team"},
	domain.ReportRegulatory: {"compliance", "legal", "dpo"},
	domain.ReportCustomer:   {"support", "communications"},
	domain.ReportPostmortem: {"security_team", "engineering", "management"},
}

// classifications maps report type to its handling tier.
var classifications = map[domain.ReportType]domain.Classification{
	domain.ReportExecutive:  domain.ClassificationConfidential,
	domain.ReportTechnical:  domain.ClassificationInternal,
	domain.ReportRegulatory: domain.ClassificationRestricted,
	domain.ReportCustomer:   domain.ClassificationPublic,
	domain.ReportPostmortem: domain.ClassificationInternal,
}

// typeRecommendations holds generated recommendations per incident type.
// A lookup table, not an inference engine.
var typeRecommendations = map[domain.IncidentType][]string{
	domain.IncidentTypeDataBreach: {
		"Rotate credentials for all affected accounts",
		"Review data access policies and audit trails",
		"Assess regulatory notification obligations",
	},
	domain.IncidentTypeAccountCompromise: {
		"Enforce multi-factor authentication",
		"Review session and token lifetimes",
	},
	domain.IncidentTypeMalwareInfection: {
		"Re-image affected hosts from known-good media",
		"Update endpoint detection signatures",
	},
	domain.IncidentTypeDenialOfService: {
		"Review rate limiting and upstream filtering",
		"Validate capacity headroom against observed peak",
	},
	domain.IncidentTypePrivilegeEscalation: {
		"Audit role assignments and privilege grants",
		"Patch the exploited escalation path",
	},
	domain.IncidentTypeUnauthorizedAccess: {
		"Review access control lists on affected resources",
		"Strengthen perimeter authentication",
	},
	domain.IncidentTypeDataLoss: {
		"Verify backup integrity and restore procedures",
		"Review data loss prevention coverage",
	},
	domain.IncidentTypeInsiderThreat: {
		"Review offboarding and least-privilege procedures",
		"Coordinate with HR and legal before further action",
	},
	domain.IncidentTypeSocialEngineering: {
		"Schedule targeted security awareness training",
		"Review external communication verification procedures",
	},
	domain.IncidentTypeSupplyChain: {
		"Audit third-party dependencies and vendor access",
		"Pin and verify artifact provenance",
	},
	domain.IncidentTypeZeroDay: {
		"Apply vendor mitigations or virtual patches",
		"Increase monitoring on exposed attack surface",
	},
	domain.IncidentTypePolicyViolation: {
		"Clarify and recommunicate the violated policy",
	},
}

// InvestigationSource exposes the investigation context, when one exists.
type InvestigationSource interface {
	Get(incidentID string) (*domain.Investigation, error)
}

// IncidentSource reads incident snapshots for compilation.
type IncidentSource interface {
	Get(ctx context.Context, id string) (*domain.SecurityIncident, error)
}

// AuditSink records report generation for the audit trail.
type AuditSink interface {
	Record(ctx context.Context, rec domain.AuditRecord) error
}

// EventPublisher announces generated reports on the event bus.
type EventPublisher interface {
	Publish(ev domain.NotificationEvent)
}

type versionKey struct {
	IncidentID string
	Type       domain.ReportType
}

// Service generates and stores incident reports.
type Service struct {
	incidents      IncidentSource
	investigations InvestigationSource
	audit          AuditSink
	publisher      EventPublisher

	mu       sync.Mutex
	reports  map[string][]*domain.IncidentReport
	versions map[versionKey]int
	now      func() time.Time
	titler   cases.Caser
}

// NewService creates the reporting engine.
func NewService(incidents IncidentSource, investigations InvestigationSource, audit AuditSink, publisher EventPublisher) *Service {
	return &Service{
		incidents:      incidents,
		investigations: investigations,
		audit:          audit,
		publisher:      publisher,
		reports:        make(map[string][]*domain.IncidentReport),
		versions:       make(map[versionKey]int),
		now:            time.Now,
		titler:         cases.Title(language.English),
	}
}

// Generate compiles a report from the incident's current history.
// Reports accumulate per incident; each call bumps the version counter
// for that incident and report type.
func (s *Service) Generate(ctx context.Context, incidentID string, reportType domain.ReportType, generatedBy string) (*domain.IncidentReport, error) {
	if !reportType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidReportType, reportType)
	}

	inc, err := s.incidents.Get(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	content := s.compile(inc)

	s.mu.Lock()
	key := versionKey{IncidentID: incidentID, Type: reportType}
	s.versions[key]++
	version := s.versions[key]

	report := &domain.IncidentReport{
		ID:             uuid.NewString(),
		IncidentID:     incidentID,
		Type:           reportType,
		Title:          s.title(inc, reportType),
		Version:        version,
		GeneratedBy:    generatedBy,
		GeneratedAt:    s.now(),
		Content:        content,
		Distribution:   append([]string(nil), distributionLists[reportType]...),
		Classification: classifications[reportType],
	}
	s.reports[incidentID] = append(s.reports[incidentID], report)
	s.mu.Unlock()

	s.recordAudit(ctx, domain.AuditRecord{
		UserID:       generatedBy,
		Action:       "report_generated",
		ResourceType: "incident",
		ResourceID:   incidentID,
		Details: map[string]any{
			"report_id": report.ID,
			"type":      string(reportType),
			"version":   version,
		},
		Severity:  inc.Severity,
		Timestamp: s.now(),
	})
	s.publisher.Publish(domain.NotificationEvent{
		IncidentID: incidentID,
		Event:      domain.NotifyReportGenerated,
		Severity:   inc.Severity,
		Detail:     map[string]any{"report_id": report.ID, "type": string(reportType)},
		OccurredAt: s.now(),
	})

	recordReportGenerated(string(reportType))
	return report, nil
}

// List returns every report generated for the incident, oldest first.
func (s *Service) List(incidentID string) []*domain.IncidentReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.IncidentReport, len(s.reports[incidentID]))
	copy(out, s.reports[incidentID])
	return out
}

// GetReport returns one report by its ID.
func (s *Service) GetReport(reportID string) (*domain.IncidentReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reports := range s.reports {
		for _, r := range reports {
			if r.ID == reportID {
				return r, nil
			}
		}
	}
	return nil, ErrReportNotFound
}

// RemoveByIncident purges stored reports for a removed incident.
// Implements the incident service's retention hook.
func (s *Service) RemoveByIncident(incidentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reports, incidentID)
	for key := range s.versions {
		if key.IncidentID == incidentID {
			delete(s.versions, key)
		}
	}
}

func (s *Service) compile(inc *domain.SecurityIncident) domain.ReportContent {
	content := domain.ReportContent{
		Summary:  s.summary(inc),
		Details:  *inc,
		Timeline: append([]domain.TimelineEvent(nil), inc.Timeline...),
		Impact:   inc.Impact,
		Containment: append([]domain.ContainmentAction(nil),
			inc.Actions...),
		Recommendations: append([]string(nil), typeRecommendations[inc.Type]...),
	}

	content.RootCause = inc.Metadata["root_cause"]

	if inv, err := s.investigations.Get(inc.ID); err == nil {
		if rc, ok := inv.RootCause(); ok {
			content.RootCause = rc.Description
		}
		content.Recommendations = append(content.Recommendations, inv.Recommendations...)
		for _, h := range inv.Hypotheses {
			if h.Status == domain.HypothesisSupported {
				content.LessonsLearned = append(content.LessonsLearned, h.Description)
			}
		}
	}

	return content
}

func (s *Service) summary(inc *domain.SecurityIncident) string {
	return fmt.Sprintf(
		"Incident %s: a %s %s incident (risk score %d/100), currently %s, affecting %d users and %d resources.",
		inc.ID,
		strings.ToLower(string(inc.Severity)),
		strings.ReplaceAll(string(inc.Type), "_", " "),
		inc.RiskScore,
		strings.ReplaceAll(string(inc.Status), "_", " "),
		len(inc.AffectedUsers),
		len(inc.AffectedResources),
	)
}

func (s *Service) title(inc *domain.SecurityIncident, reportType domain.ReportType) string {
	kind := s.titler.String(strings.ReplaceAll(string(reportType), "_", " "))
	return fmt.Sprintf("%s Report: %s", kind, inc.Title)
}

func (s *Service) recordAudit(ctx context.Context, rec domain.AuditRecord) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		// Observability must not block report generation.
		slog.Error("failed to record audit event",
			"action", rec.Action,
			"resource_id", rec.ResourceID,
			"error", err,
		)
	}
}
