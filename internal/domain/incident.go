package domain

import "time"

// IncidentType classifies the nature of a security incident.
type IncidentType string

// Incident types.
const (
	IncidentTypeDataBreach          IncidentType = "data_breach"
	IncidentTypeAccountCompromise   IncidentType = "account_compromise"
	IncidentTypeMalwareInfection    IncidentType = "malware_infection"
	IncidentTypeDenialOfService     IncidentType = "denial_of_service"
	IncidentTypePrivilegeEscalation IncidentType = "privilege_escalation"
	IncidentTypePolicyViolation     IncidentType = "policy_violation"
	IncidentTypeUnauthorizedAccess  IncidentType = "unauthorized_access"
	IncidentTypeDataLoss            IncidentType = "data_loss"
	IncidentTypeInsiderThreat       IncidentType = "insider_threat"
	IncidentTypeSocialEngineering   IncidentType = "social_engineering"
	IncidentTypeSupplyChain         IncidentType = "supply_chain"
	IncidentTypeZeroDay             IncidentType = "zero_day"
)

// IsValid checks if the incident type is valid.
func (t IncidentType) IsValid() bool {
	switch t {
	case IncidentTypeDataBreach, IncidentTypeAccountCompromise,
		IncidentTypeMalwareInfection, IncidentTypeDenialOfService,
		IncidentTypePrivilegeEscalation, IncidentTypePolicyViolation,
		IncidentTypeUnauthorizedAccess, IncidentTypeDataLoss,
		IncidentTypeInsiderThreat, IncidentTypeSocialEngineering,
		IncidentTypeSupplyChain, IncidentTypeZeroDay:
		return true
	}
	return false
}

// Severity represents how serious an incident is.
type Severity string

// Severity levels.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IsValid checks if the severity is valid.
func (s Severity) IsValid() bool {
	return s == SeverityCritical || s == SeverityHigh ||
		s == SeverityMedium || s == SeverityLow
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// IncidentStatus represents the lifecycle state of an incident.
type IncidentStatus string

// Incident statuses, in lifecycle order.
const (
	StatusOpen          IncidentStatus = "open"
	StatusAcknowledged  IncidentStatus = "acknowledged"
	StatusInvestigating IncidentStatus = "investigating"
	StatusContaining    IncidentStatus = "containing"
	StatusContained     IncidentStatus = "contained"
	StatusEradicating   IncidentStatus = "eradicating"
	StatusRecovering    IncidentStatus = "recovering"
	StatusResolved      IncidentStatus = "resolved"
	StatusClosed        IncidentStatus = "closed"
	StatusFalsePositive IncidentStatus = "false_positive"
)

// IsValid checks if the status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusAcknowledged, StatusInvestigating,
		StatusContaining, StatusContained, StatusEradicating,
		StatusRecovering, StatusResolved, StatusClosed, StatusFalsePositive:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s IncidentStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusFalsePositive
}

// transitions is the adjacency map of legal status edges. FALSE_POSITIVE
// is reachable from every non-terminal state; OPEN may jump straight to
// INVESTIGATING when an investigation starts before acknowledgement.
var transitions = map[IncidentStatus][]IncidentStatus{
	StatusOpen:          {StatusAcknowledged, StatusInvestigating, StatusFalsePositive},
	StatusAcknowledged:  {StatusInvestigating, StatusFalsePositive},
	StatusInvestigating: {StatusContaining, StatusFalsePositive},
	StatusContaining:    {StatusContained, StatusFalsePositive},
	StatusContained:     {StatusEradicating, StatusFalsePositive},
	StatusEradicating:   {StatusRecovering, StatusFalsePositive},
	StatusRecovering:    {StatusResolved, StatusFalsePositive},
	StatusResolved:      {StatusClosed, StatusFalsePositive},
	StatusClosed:        nil,
	StatusFalsePositive: nil,
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s IncidentStatus) CanTransitionTo(next IncidentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IncidentSource identifies which feed or collaborator originated an incident.
type IncidentSource string

// Incident sources.
const (
	SourceThreatDetection IncidentSource = "threat_detection"
	SourceComplianceCheck IncidentSource = "compliance_check"
	SourceMonitoring      IncidentSource = "monitoring"
	SourceManual          IncidentSource = "manual"
)

// TimelineEventType classifies entries on the incident timeline.
type TimelineEventType string

// Timeline event types.
const (
	TimelineStatusChange      TimelineEventType = "status_change"
	TimelineActionExecuted    TimelineEventType = "action_executed"
	TimelineEvidenceCollected TimelineEventType = "evidence_collected"
	TimelineFindingAdded      TimelineEventType = "finding_added"
	TimelineHypothesisAdded   TimelineEventType = "hypothesis_added"
	TimelineAssignment        TimelineEventType = "assignment"
	TimelineIncidentLinked    TimelineEventType = "incident_linked"
	TimelineIndicatorAdded    TimelineEventType = "indicator_added"
	TimelineNote              TimelineEventType = "note"
)

// TimelineEvent is one append-only entry on an incident timeline.
type TimelineEvent struct {
	ID          string            `json:"id"`
	Type        TimelineEventType `json:"type"`
	Timestamp   time.Time         `json:"timestamp"`
	Actor       string            `json:"actor"`
	Description string            `json:"description"`
	Details     map[string]any    `json:"details,omitempty"`
}

// ImpactTier grades one dimension of an impact assessment.
type ImpactTier string

// Impact tiers.
const (
	ImpactSevere   ImpactTier = "severe"
	ImpactMajor    ImpactTier = "major"
	ImpactModerate ImpactTier = "moderate"
	ImpactMinor    ImpactTier = "minor"
)

// ImpactAssessment estimates the blast radius of an incident.
type ImpactAssessment struct {
	ExposureRisk           ImpactTier `json:"exposure_risk"`
	EstimatedFinancial     float64    `json:"estimated_financial"`
	Reputational           ImpactTier `json:"reputational"`
	Operational            ImpactTier `json:"operational"`
	RegulatoryImpact       bool       `json:"regulatory_impact"`
	EstimatedRecoveryHours int        `json:"estimated_recovery_hours"`
}

// TeamMember is a responder assigned to an incident.
type TeamMember struct {
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ActionType distinguishes automatic from human-performed containment.
type ActionType string

// Action types.
const (
	ActionAutomatic ActionType = "automatic"
	ActionManual    ActionType = "manual"
)

// ActionStatus tracks a containment action's execution.
type ActionStatus string

// Action statuses.
const (
	ActionPending   ActionStatus = "pending"
	ActionExecuting ActionStatus = "executing"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
)

// ContainmentAction records one remediation attempt against a target.
type ContainmentAction struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Target     string         `json:"target"`
	Type       ActionType     `json:"type"`
	Status     ActionStatus   `json:"status"`
	Parameters map[string]any `json:"parameters,omitempty"`
	ExecutedBy string         `json:"executed_by"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// SecurityIncident is the aggregate root of the response subsystem.
// It is owned by the incident store; all other components reference it
// by ID and mutate it only through the incident service.
type SecurityIncident struct {
	ID                string              `json:"id"`
	Title             string              `json:"title"`
	Description       string              `json:"description"`
	Type              IncidentType        `json:"type"`
	Severity          Severity            `json:"severity"`
	Status            IncidentStatus      `json:"status"`
	Source            IncidentSource      `json:"source"`
	ReportedBy        string              `json:"reported_by"`
	AffectedUsers     []string            `json:"affected_users"`
	AffectedResources []string            `json:"affected_resources"`
	Actions           []ContainmentAction `json:"actions"`
	Timeline          []TimelineEvent     `json:"timeline"`
	EvidenceIDs       []string            `json:"evidence_ids"`
	Evidence          []Evidence          `json:"evidence"`
	AssignedLead      string              `json:"assigned_lead,omitempty"`
	Team              []TeamMember        `json:"team"`
	RelatedIncidents  []string            `json:"related_incidents"`
	Indicators        []string            `json:"indicators"`
	PlaybookID        string              `json:"playbook_id,omitempty"`
	RiskScore         int                 `json:"risk_score"`
	Impact            ImpactAssessment    `json:"impact"`
	Metadata          map[string]string   `json:"metadata"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	ContainedAt       *time.Time          `json:"contained_at,omitempty"`
	ResolvedAt        *time.Time          `json:"resolved_at,omitempty"`
	ClosedAt          *time.Time          `json:"closed_at,omitempty"`
}

// Age returns time elapsed since the incident was created.
func (i *SecurityIncident) Age(now time.Time) time.Duration {
	return now.Sub(i.CreatedAt)
}

// HasTeamMember reports whether userID is already on the incident team.
func (i *SecurityIncident) HasTeamMember(userID string) bool {
	for _, m := range i.Team {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand to concurrent readers.
func (i *SecurityIncident) Clone() *SecurityIncident {
	c := *i
	c.AffectedUsers = append([]string(nil), i.AffectedUsers...)
	c.AffectedResources = append([]string(nil), i.AffectedResources...)
	c.EvidenceIDs = append([]string(nil), i.EvidenceIDs...)
	c.RelatedIncidents = append([]string(nil), i.RelatedIncidents...)
	c.Indicators = append([]string(nil), i.Indicators...)
	c.Actions = append([]ContainmentAction(nil), i.Actions...)
	c.Timeline = append([]TimelineEvent(nil), i.Timeline...)
	c.Evidence = append([]Evidence(nil), i.Evidence...)
	c.Team = append([]TeamMember(nil), i.Team...)
	if i.Metadata != nil {
		c.Metadata = make(map[string]string, len(i.Metadata))
		for k, v := range i.Metadata {
			c.Metadata[k] = v
		}
	}
	if i.ContainedAt != nil {
		t := *i.ContainedAt
		c.ContainedAt = &t
	}
	if i.ResolvedAt != nil {
		t := *i.ResolvedAt
		c.ResolvedAt = &t
	}
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
