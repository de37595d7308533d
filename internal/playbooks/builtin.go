package playbooks

import (
	"time"

	"github.com/sentineldesk/responder/internal/domain"
)

// LoadBuiltins loads the default playbooks shipped with the service.
// File-based catalogs loaded afterwards override these on index
// collisions.
func (r *Registry) LoadBuiltins() {
	for _, pb := range builtinPlaybooks() {
		r.Load(pb)
	}
}

func builtinPlaybooks() []*domain.Playbook {
	return []*domain.Playbook{
		{
			ID:          "pb-data-breach",
			Name:        "Data Breach Response",
			Description: "Containment and disclosure procedure for confirmed data exposure",
			Version:     "1.0",
			IncidentTypes: []domain.IncidentType{
				domain.IncidentTypeDataBreach,
				domain.IncidentTypeDataLoss,
			},
			Severities: []domain.Severity{domain.SeverityCritical, domain.SeverityHigh},
			Steps: []domain.PlaybookStep{
				{Order: 1, Name: "Scope the exposure", Required: true, Mode: domain.StepManual, Role: "investigator", Verification: "affected datasets enumerated", Duration: 2 * time.Hour},
				{Order: 2, Name: "Revoke exposed credentials", Required: true, Mode: domain.StepHybrid, Role: "responder", Verification: "no exposed credential remains valid", Duration: time.Hour, DependsOn: []int{1}},
				{Order: 3, Name: "Notify legal and compliance", Required: true, Mode: domain.StepManual, Role: "manager", Verification: "disclosure clock started", Duration: 30 * time.Minute, DependsOn: []int{1}},
			},
			Actions: []domain.AutomatedAction{
				{Trigger: domain.TriggerImmediate, Action: "lockdown_affected_accounts", Rollback: "re-enable accounts after credential rotation"},
				{Trigger: domain.TriggerImmediate, Action: "revoke_sessions", Rollback: "users re-authenticate"},
				{Trigger: domain.TriggerConditional, Condition: "exfiltration_confirmed", Action: "block_egress", Rollback: "remove egress block"},
			},
			Escalation: []domain.EscalationCriteria{
				{Condition: "not contained", NotifyRoles: []string{"ciso"}, TimeLimit: time.Hour},
			},
			Templates: []domain.CommunicationTemplate{
				{Audience: "executives", Subject: "Data breach under response", Body: "Incident {{id}}: {{title}}. Containment in progress.", Phase: "containment"},
			},
		},
		{
			ID:          "pb-account-compromise",
			Name:        "Account Compromise Response",
			Description: "Lockdown and recovery for compromised principals",
			Version:     "1.0",
			IncidentTypes: []domain.IncidentType{
				domain.IncidentTypeAccountCompromise,
				domain.IncidentTypeUnauthorizedAccess,
				domain.IncidentTypePrivilegeEscalation,
			},
			Severities: []domain.Severity{
				domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium,
			},
			Steps: []domain.PlaybookStep{
				{Order: 1, Name: "Lock affected accounts", Required: true, Mode: domain.StepAutomated, Role: "responder", Verification: "accounts disabled", Duration: 15 * time.Minute},
				{Order: 2, Name: "Review access logs", Required: true, Mode: domain.StepManual, Role: "investigator", Verification: "entry vector identified", Duration: 4 * time.Hour, DependsOn: []int{1}},
				{Order: 3, Name: "Rotate credentials", Required: true, Mode: domain.StepHybrid, Role: "responder", Verification: "all secrets rotated", Duration: 2 * time.Hour, DependsOn: []int{1}},
			},
			Actions: []domain.AutomatedAction{
				{Trigger: domain.TriggerImmediate, Action: "lockdown_affected_accounts", Rollback: "re-enable after rotation"},
				{Trigger: domain.TriggerImmediate, Action: "revoke_sessions", Rollback: "users re-authenticate"},
			},
		},
		{
			ID:          "pb-malware",
			Name:        "Malware Containment",
			Description: "Isolate infected hosts and eradicate the implant",
			Version:     "1.0",
			IncidentTypes: []domain.IncidentType{
				domain.IncidentTypeMalwareInfection,
				domain.IncidentTypeZeroDay,
			},
			Severities: []domain.Severity{
				domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium,
			},
			Steps: []domain.PlaybookStep{
				{Order: 1, Name: "Isolate infected hosts", Required: true, Mode: domain.StepAutomated, Role: "responder", Verification: "hosts off the network", Duration: 15 * time.Minute},
				{Order: 2, Name: "Capture memory and disk", Required: true, Mode: domain.StepHybrid, Role: "investigator", Verification: "images hashed and vaulted", Duration: 3 * time.Hour, DependsOn: []int{1}},
				{Order: 3, Name: "Reimage and restore", Required: true, Mode: domain.StepManual, Role: "responder", Verification: "clean baseline confirmed", Duration: 8 * time.Hour, DependsOn: []int{2}},
			},
			Actions: []domain.AutomatedAction{
				{Trigger: domain.TriggerImmediate, Action: "isolate_host", Rollback: "restore network access after reimage"},
				{Trigger: domain.TriggerScheduled, Action: "scan_adjacent_hosts", Rollback: ""},
			},
		},
		{
			ID:          "pb-dos",
			Name:        "Denial of Service Mitigation",
			Description: "Traffic filtering and capacity response",
			Version:     "1.0",
			IncidentTypes: []domain.IncidentType{
				domain.IncidentTypeDenialOfService,
			},
			Severities: []domain.Severity{
				domain.SeverityCritical, domain.SeverityHigh,
			},
			Steps: []domain.PlaybookStep{
				{Order: 1, Name: "Enable traffic filtering", Required: true, Mode: domain.StepAutomated, Role: "responder", Verification: "attack traffic dropped at edge", Duration: 15 * time.Minute},
				{Order: 2, Name: "Engage upstream provider", Required: false, Mode: domain.StepManual, Role: "manager", Verification: "provider scrubbing active", Duration: time.Hour},
			},
			Actions: []domain.AutomatedAction{
				{Trigger: domain.TriggerImmediate, Action: "block_source_ips", Rollback: "remove edge filters"},
			},
		},
	}
}
