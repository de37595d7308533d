// Package memory provides the in-memory incident store used by the
// single-process deployment and by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
)

// Repository is a map-backed incident store. All returned incidents are
// deep copies; the internal map is never exposed.
type Repository struct {
	mu        sync.RWMutex
	incidents map[string]*domain.SecurityIncident
}

// NewRepository creates an empty in-memory store.
func NewRepository() *Repository {
	return &Repository{
		incidents: make(map[string]*domain.SecurityIncident),
	}
}

// Create stores a new incident.
func (r *Repository) Create(_ context.Context, incident *domain.SecurityIncident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.incidents[incident.ID]; ok {
		return incidents.ErrDuplicateID
	}
	r.incidents[incident.ID] = incident.Clone()
	return nil
}

// Get returns a copy of the incident with the given ID.
func (r *Repository) Get(_ context.Context, id string) (*domain.SecurityIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inc, ok := r.incidents[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	return inc.Clone(), nil
}

// Update replaces the stored incident.
func (r *Repository) Update(_ context.Context, incident *domain.SecurityIncident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.incidents[incident.ID]; !ok {
		return incidents.ErrIncidentNotFound
	}
	r.incidents[incident.ID] = incident.Clone()
	return nil
}

// Delete removes the incident. Deleting an unknown ID is not an error.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.incidents, id)
	return nil
}

// Exists reports whether the ID is already taken.
func (r *Repository) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.incidents[id]
	return ok, nil
}

// List returns copies of incidents matching the filters, newest first.
func (r *Repository) List(_ context.Context, filters incidents.Filters) ([]*domain.SecurityIncident, error) {
	r.mu.RLock()
	matched := make([]*domain.SecurityIncident, 0, len(r.incidents))
	for _, inc := range r.incidents {
		if filters.Match(inc) {
			matched = append(matched, inc.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, nil
}
