package incidents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sentineldesk/responder/internal/domain"
)

// autoContainmentMarker flags incidents whose immediate-trigger actions
// already ran, so auto-containment fires at most once per incident.
const autoContainmentMarker = "auto_containment"

// ActionRequest describes one response action to run.
type ActionRequest struct {
	Type       domain.ActionType
	Action     string
	Target     string
	Parameters map[string]any
}

// ExecuteResponseAction runs a containment action against a target.
//
// The pending record is appended and flipped to executing under the
// incident lock; the lock is released while the handler runs (handlers
// may call slow external APIs) and reacquired to record the outcome.
// Handler failures are captured on the action record, never propagated:
// callers inspect Status and Error on the returned record.
func (s *Service) ExecuteResponseAction(ctx context.Context, incidentID string, req ActionRequest, userID string) (*domain.ContainmentAction, error) {
	if !s.executor.Known(req.Action) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}

	actionID := uuid.NewString()
	_, err := s.mutate(ctx, incidentID, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		action := domain.ContainmentAction{
			ID:         actionID,
			Action:     req.Action,
			Target:     req.Target,
			Type:       req.Type,
			Status:     domain.ActionPending,
			Parameters: req.Parameters,
			ExecutedBy: userID,
			StartedAt:  s.now(),
		}
		// The record flips to executing before the lock is released;
		// a pending record is never observable outside this closure.
		action.Status = domain.ActionExecuting
		inc.Actions = append(inc.Actions, action)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	start := s.now()
	result, execErr := s.executor.Execute(ctx, req.Action, req.Target, req.Parameters)
	recordActionDuration(req.Action, time.Since(start))

	incident, err := s.mutate(ctx, incidentID, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		action := findAction(inc, actionID)
		if action == nil {
			return nil, fmt.Errorf("action record %s lost", actionID)
		}
		now := s.now()
		action.FinishedAt = &now

		if execErr != nil {
			action.Status = domain.ActionFailed
			action.Error = execErr.Error()
			// Failure is recorded on the action only; the incident is
			// not rolled back and retries are the caller's call.
			return nil, nil
		}

		action.Status = domain.ActionCompleted
		action.Result = result
		return &domain.TimelineEvent{
			Type:        domain.TimelineActionExecuted,
			Actor:       userID,
			Description: fmt.Sprintf("containment action %s executed against %s", req.Action, req.Target),
			Details:     map[string]any{"action": req.Action, "target": req.Target},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	executed := findAction(incident, actionID)
	recordActionExecuted(req.Action, executed.Status)

	if execErr == nil {
		s.recordAudit(ctx, userID, "action_executed", incidentID, incident.Severity, map[string]any{
			"action": req.Action,
			"target": req.Target,
		})
		s.events.Publish(domain.NotificationEvent{
			IncidentID: incidentID,
			Event:      domain.NotifyActionExecuted,
			Severity:   incident.Severity,
			Detail:     map[string]any{"action": req.Action, "target": req.Target},
			OccurredAt: s.now(),
		})
	} else {
		slog.Warn("containment action failed",
			"incident_id", incidentID,
			"action", req.Action,
			"target", req.Target,
			"error", execErr,
		)
	}

	copied := *executed
	return &copied, nil
}

// ExecuteAutoContainment runs the attached playbook's immediate-trigger
// actions, attributed to the system actor. At most MaxAutoActions run and
// the whole pass fires once per incident. Individual failures are logged
// and do not abort the remaining actions.
func (s *Service) ExecuteAutoContainment(ctx context.Context, incidentID string) error {
	inc, err := s.repo.Get(ctx, incidentID)
	if err != nil {
		return err
	}
	if inc.PlaybookID == "" {
		return nil
	}
	if inc.Metadata[autoContainmentMarker] == "done" {
		return nil
	}

	pb, ok := s.playbooks.Get(inc.PlaybookID)
	if !ok {
		return fmt.Errorf("playbook %s not in registry", inc.PlaybookID)
	}

	// Mark before executing so a concurrent trigger cannot double-run.
	if _, err := s.mutate(ctx, incidentID, func(inc *domain.SecurityIncident) (*domain.TimelineEvent, error) {
		if inc.Metadata == nil {
			inc.Metadata = make(map[string]string)
		}
		if inc.Metadata[autoContainmentMarker] == "done" {
			return nil, errAlreadyContained
		}
		inc.Metadata[autoContainmentMarker] = "done"
		return nil, nil
	}); err != nil {
		if err == errAlreadyContained {
			return nil
		}
		return err
	}

	actions := pb.ImmediateActions()
	if len(actions) > s.config.MaxAutoActions {
		slog.Warn("auto-containment capped",
			"incident_id", incidentID,
			"configured", len(actions),
			"cap", s.config.MaxAutoActions,
		)
		actions = actions[:s.config.MaxAutoActions]
	}

	for _, auto := range actions {
		target := auto.Target
		if target == "" {
			target = incidentID
		}
		req := ActionRequest{
			Type:       domain.ActionAutomatic,
			Action:     auto.Action,
			Target:     target,
			Parameters: toAnyMap(auto.Parameters),
		}
		if _, err := s.ExecuteResponseAction(ctx, incidentID, req, SystemActor); err != nil {
			slog.Warn("auto-containment action skipped",
				"incident_id", incidentID,
				"action", auto.Action,
				"error", err,
			)
		}
	}
	return nil
}

func findAction(inc *domain.SecurityIncident, actionID string) *domain.ContainmentAction {
	for i := range inc.Actions {
		if inc.Actions[i].ID == actionID {
			return &inc.Actions[i]
		}
	}
	return nil
}

func toAnyMap(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var errAlreadyContained = fmt.Errorf("auto-containment already ran")
