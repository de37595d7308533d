package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldesk/responder/internal/domain"
)

func testResponders() []Responder {
	return []Responder{
		{UserID: "alice", Name: "Alice", Roles: []string{"ciso", "manager"}, OnCallFor: []string{"critical"}},
		{UserID: "bob", Name: "Bob", Roles: []string{"investigator"}, OnCallFor: []string{"high", "medium"}},
		{UserID: "carol", Name: "Carol"},
	}
}

func TestResolve(t *testing.T) {
	d := NewStatic(testResponders())
	ctx := context.Background()

	member, err := d.Resolve(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", member.UserID)
	assert.Equal(t, "ciso", member.Role)
	assert.False(t, member.JoinedAt.IsZero())

	// A responder with no roles defaults to "responder".
	member, err = d.Resolve(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "responder", member.Role)

	_, err = d.Resolve(ctx, "mallory")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestOnCallLead(t *testing.T) {
	d := NewStatic(testResponders())
	ctx := context.Background()

	lead, err := d.OnCallLead(ctx, domain.SeverityCritical)
	require.NoError(t, err)
	assert.Equal(t, "alice", lead.UserID)
	assert.Equal(t, "lead", lead.Role)

	lead, err = d.OnCallLead(ctx, domain.SeverityHigh)
	require.NoError(t, err)
	assert.Equal(t, "bob", lead.UserID)

	// No low rotation configured: fall back to critical's.
	lead, err = d.OnCallLead(ctx, domain.SeverityLow)
	require.NoError(t, err)
	assert.Equal(t, "alice", lead.UserID)
}

func TestOnCallLeadEmptyDirectory(t *testing.T) {
	d := NewStatic(nil)

	_, err := d.OnCallLead(context.Background(), domain.SeverityCritical)
	assert.ErrorIs(t, err, ErrNoOnCall)
}
