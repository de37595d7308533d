// Package playbooks holds the catalog of response playbooks, indexed by
// incident type and severity. The registry is read-only during incident
// processing; loading a playbook for an already-indexed key replaces the
// previous entry (most recently loaded wins).
package playbooks

import (
	"sync"

	"github.com/sentineldesk/responder/internal/domain"
)

type indexKey struct {
	Type     domain.IncidentType
	Severity domain.Severity
}

// Registry is the playbook catalog.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Playbook
	index map[indexKey]*domain.Playbook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[string]*domain.Playbook),
		index: make(map[indexKey]*domain.Playbook),
	}
}

// Load adds a playbook to the catalog and indexes every
// (type, severity) pair it declares.
func (r *Registry) Load(pb *domain.Playbook) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[pb.ID] = pb
	for _, t := range pb.IncidentTypes {
		for _, s := range pb.Severities {
			r.index[indexKey{Type: t, Severity: s}] = pb
		}
	}
}

// FindRelevant returns the playbook indexed for the type and severity.
func (r *Registry) FindRelevant(t domain.IncidentType, s domain.Severity) (*domain.Playbook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pb, ok := r.index[indexKey{Type: t, Severity: s}]
	return pb, ok
}

// Get returns a playbook by ID.
func (r *Registry) Get(id string) (*domain.Playbook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pb, ok := r.byID[id]
	return pb, ok
}

// All returns every loaded playbook.
func (r *Registry) All() []*domain.Playbook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Playbook, 0, len(r.byID))
	for _, pb := range r.byID {
		out = append(out, pb)
	}
	return out
}

// Len returns the number of loaded playbooks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
