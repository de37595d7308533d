package domain

import "time"

// StepMode describes how a playbook step is performed.
type StepMode string

// Step modes.
const (
	StepManual    StepMode = "manual"
	StepAutomated StepMode = "automated"
	StepHybrid    StepMode = "hybrid"
)

// PlaybookStep is one ordered step in a response procedure.
type PlaybookStep struct {
	Order        int           `yaml:"order" json:"order"`
	Name         string        `yaml:"name" json:"name"`
	Description  string        `yaml:"description" json:"description"`
	Required     bool          `yaml:"required" json:"required"`
	Mode         StepMode      `yaml:"mode" json:"mode"`
	Role         string        `yaml:"role" json:"role"`
	Verification string        `yaml:"verification" json:"verification"`
	Duration     time.Duration `yaml:"duration" json:"duration"`
	DependsOn    []int         `yaml:"depends_on" json:"depends_on,omitempty"`
}

// ActionTrigger tells the engine when an automated action fires.
type ActionTrigger string

// Action triggers.
const (
	TriggerImmediate   ActionTrigger = "immediate"
	TriggerConditional ActionTrigger = "conditional"
	TriggerScheduled   ActionTrigger = "scheduled"
)

// AutomatedAction is a machine-executable remediation bound to a playbook.
type AutomatedAction struct {
	Trigger    ActionTrigger     `yaml:"trigger" json:"trigger"`
	Action     string            `yaml:"action" json:"action"`
	Target     string            `yaml:"target" json:"target"`
	Condition  string            `yaml:"condition" json:"condition,omitempty"`
	Parameters map[string]string `yaml:"parameters" json:"parameters,omitempty"`
	Rollback   string            `yaml:"rollback" json:"rollback,omitempty"`
}

// EscalationCriteria tells who gets paged when a playbook escalates.
type EscalationCriteria struct {
	Condition   string        `yaml:"condition" json:"condition"`
	NotifyRoles []string      `yaml:"notify_roles" json:"notify_roles"`
	TemplateID  string        `yaml:"template_id" json:"template_id,omitempty"`
	TimeLimit   time.Duration `yaml:"time_limit" json:"time_limit,omitempty"`
}

// CommunicationTemplate is a canned message bound to a response phase.
type CommunicationTemplate struct {
	Audience  string   `yaml:"audience" json:"audience"`
	Subject   string   `yaml:"subject" json:"subject"`
	Body      string   `yaml:"body" json:"body"`
	Approvers []string `yaml:"approvers" json:"approvers,omitempty"`
	Phase     string   `yaml:"phase" json:"phase"`
}

// Playbook is a named, versioned response procedure. Playbooks are
// immutable once loaded; new versions replace, never mutate in place.
type Playbook struct {
	ID            string                  `yaml:"id" json:"id"`
	Name          string                  `yaml:"name" json:"name"`
	Description   string                  `yaml:"description" json:"description"`
	Version       string                  `yaml:"version" json:"version"`
	IncidentTypes []IncidentType          `yaml:"incident_types" json:"incident_types"`
	Severities    []Severity              `yaml:"severities" json:"severities"`
	Steps         []PlaybookStep          `yaml:"steps" json:"steps"`
	Actions       []AutomatedAction       `yaml:"actions" json:"actions"`
	Escalation    []EscalationCriteria    `yaml:"escalation" json:"escalation,omitempty"`
	Templates     []CommunicationTemplate `yaml:"templates" json:"templates,omitempty"`
}

// ImmediateActions returns the automated actions that fire on attach.
func (p *Playbook) ImmediateActions() []AutomatedAction {
	out := make([]AutomatedAction, 0, len(p.Actions))
	for _, a := range p.Actions {
		if a.Trigger == TriggerImmediate {
			out = append(out, a)
		}
	}
	return out
}

// Matches reports whether the playbook applies to the given type and severity.
func (p *Playbook) Matches(t IncidentType, s Severity) bool {
	var typeOK, sevOK bool
	for _, it := range p.IncidentTypes {
		if it == t {
			typeOK = true
			break
		}
	}
	for _, ps := range p.Severities {
		if ps == s {
			sevOK = true
			break
		}
	}
	return typeOK && sevOK
}
