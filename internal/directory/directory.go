// Package directory resolves user IDs to assignable responders and
// answers on-call lookups. Backed by static configuration; a real
// deployment swaps in the identity provider behind the same interface.
package directory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sentineldesk/responder/internal/domain"
)

// Directory errors.
var (
	ErrUserNotFound = errors.New("user not found in directory")
	ErrNoOnCall     = errors.New("no on-call responder configured")
)

// Responder is one directory entry.
type Responder struct {
	UserID string   `koanf:"user_id" json:"user_id"`
	Name   string   `koanf:"name" json:"name"`
	Roles  []string `koanf:"roles" json:"roles"`
	// OnCallFor lists the severities this responder leads.
	OnCallFor []string `koanf:"on_call_for" json:"on_call_for"`
}

// Static is a configuration-backed responder directory.
type Static struct {
	mu         sync.RWMutex
	responders map[string]Responder
	onCall     map[domain.Severity][]string
	now        func() time.Time
}

// NewStatic builds the directory from configured responders.
func NewStatic(responders []Responder) *Static {
	d := &Static{
		responders: make(map[string]Responder, len(responders)),
		onCall:     make(map[domain.Severity][]string),
		now:        time.Now,
	}
	for _, r := range responders {
		d.responders[r.UserID] = r
		for _, sev := range r.OnCallFor {
			s := domain.Severity(sev)
			d.onCall[s] = append(d.onCall[s], r.UserID)
		}
	}
	return d
}

// Resolve looks a user up and returns an assignable team member.
func (d *Static) Resolve(_ context.Context, userID string) (domain.TeamMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.responders[userID]
	if !ok {
		return domain.TeamMember{}, ErrUserNotFound
	}
	role := "responder"
	if len(r.Roles) > 0 {
		role = r.Roles[0]
	}
	return domain.TeamMember{UserID: r.UserID, Role: role, JoinedAt: d.now()}, nil
}

// OnCallLead returns the first responder on call for the severity,
// falling back to critical's rotation when none is configured.
func (d *Static) OnCallLead(_ context.Context, severity domain.Severity) (domain.TeamMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.onCall[severity]
	if len(ids) == 0 {
		ids = d.onCall[domain.SeverityCritical]
	}
	if len(ids) == 0 {
		return domain.TeamMember{}, ErrNoOnCall
	}
	return domain.TeamMember{UserID: ids[0], Role: "lead", JoinedAt: d.now()}, nil
}
