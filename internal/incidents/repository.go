package incidents

import (
	"context"
	"time"

	"github.com/sentineldesk/responder/internal/domain"
)

// Repository defines the interface for incident storage. Implementations
// must return copies that callers may mutate freely; the service layer is
// responsible for serializing writes per incident.
type Repository interface {
	Create(ctx context.Context, incident *domain.SecurityIncident) error
	Get(ctx context.Context, id string) (*domain.SecurityIncident, error)
	Update(ctx context.Context, incident *domain.SecurityIncident) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters Filters) ([]*domain.SecurityIncident, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Filters holds filter options for listing incidents.
type Filters struct {
	Type         *domain.IncidentType
	Severity     *domain.Severity
	Status       *domain.IncidentStatus
	OpenOnly     bool       // exclude terminal statuses
	ClosedBefore *time.Time // terminal incidents whose ClosedAt precedes this
	Limit        int
	Offset       int
}

// Match reports whether an incident passes the filters, ignoring
// Limit/Offset. Shared by store implementations.
func (f Filters) Match(inc *domain.SecurityIncident) bool {
	if f.Type != nil && inc.Type != *f.Type {
		return false
	}
	if f.Severity != nil && inc.Severity != *f.Severity {
		return false
	}
	if f.Status != nil && inc.Status != *f.Status {
		return false
	}
	if f.OpenOnly && inc.Status.IsTerminal() {
		return false
	}
	if f.ClosedBefore != nil {
		if inc.ClosedAt == nil || !inc.ClosedAt.Before(*f.ClosedBefore) {
			return false
		}
	}
	return true
}
