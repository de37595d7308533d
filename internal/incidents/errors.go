package incidents

import "errors"

// Service errors.
var (
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidType       = errors.New("invalid incident type")
	ErrInvalidSeverity   = errors.New("invalid severity")
	ErrInvalidStatus     = errors.New("invalid incident status")
	ErrUnknownAction     = errors.New("unknown containment action")
	ErrDuplicateID       = errors.New("incident id already exists")
)
