package domain

import "time"

// AuditRecord is the shape delivered to the external audit sink for every
// create, status change, action execution and report generation.
type AuditRecord struct {
	UserID       string         `json:"user_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Details      map[string]any `json:"details,omitempty"`
	Severity     Severity       `json:"severity"`
	Timestamp    time.Time      `json:"timestamp"`
}

// NotificationEventType classifies notifications sent to the channel.
type NotificationEventType string

// Notification event types.
const (
	NotifyIncidentCreated  NotificationEventType = "created"
	NotifyStatusChanged    NotificationEventType = "status_changed"
	NotifyEscalationNeeded NotificationEventType = "escalation_needed"
	NotifyReportGenerated  NotificationEventType = "report_generated"
	NotifyActionExecuted   NotificationEventType = "action_executed"
)

// NotificationEvent is the payload handed to the notification channel.
// Delivery is fire-and-forget; failures are logged, never retried here.
type NotificationEvent struct {
	IncidentID string                `json:"incident_id"`
	Event      NotificationEventType `json:"event"`
	Severity   Severity              `json:"severity"`
	Detail     map[string]any        `json:"detail,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}
