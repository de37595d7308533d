package playbooks

import (
	"testing"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLoadAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Load(&domain.Playbook{
		ID:            "pb-test",
		Name:          "Test Procedure",
		IncidentTypes: []domain.IncidentType{domain.IncidentTypeDataBreach, domain.IncidentTypeDataLoss},
		Severities:    []domain.Severity{domain.SeverityCritical, domain.SeverityHigh},
	})

	pb, ok := r.Get("pb-test")
	require.True(t, ok)
	assert.Equal(t, "Test Procedure", pb.Name)

	_, ok = r.Get("pb-missing")
	assert.False(t, ok)

	// Every declared (type, severity) pair is indexed.
	for _, typ := range []domain.IncidentType{domain.IncidentTypeDataBreach, domain.IncidentTypeDataLoss} {
		for _, sev := range []domain.Severity{domain.SeverityCritical, domain.SeverityHigh} {
			found, ok := r.FindRelevant(typ, sev)
			require.True(t, ok, "%s/%s", typ, sev)
			assert.Equal(t, "pb-test", found.ID)
		}
	}

	_, ok = r.FindRelevant(domain.IncidentTypeDataBreach, domain.SeverityLow)
	assert.False(t, ok)
}

func TestRegistryMostRecentLoadWins(t *testing.T) {
	r := NewRegistry()
	r.Load(&domain.Playbook{
		ID:            "pb-old",
		IncidentTypes: []domain.IncidentType{domain.IncidentTypeZeroDay},
		Severities:    []domain.Severity{domain.SeverityCritical},
	})
	r.Load(&domain.Playbook{
		ID:            "pb-new",
		IncidentTypes: []domain.IncidentType{domain.IncidentTypeZeroDay},
		Severities:    []domain.Severity{domain.SeverityCritical},
	})

	pb, ok := r.FindRelevant(domain.IncidentTypeZeroDay, domain.SeverityCritical)
	require.True(t, ok)
	assert.Equal(t, "pb-new", pb.ID)

	// Both remain addressable by ID.
	assert.Equal(t, 2, r.Len())
}

func TestLoadBuiltins(t *testing.T) {
	r := NewRegistry()
	r.LoadBuiltins()

	require.Equal(t, 4, r.Len())

	tests := []struct {
		incType  domain.IncidentType
		severity domain.Severity
		wantID   string
	}{
		{domain.IncidentTypeDataBreach, domain.SeverityCritical, "pb-data-breach"},
		{domain.IncidentTypeAccountCompromise, domain.SeverityMedium, "pb-account-compromise"},
		{domain.IncidentTypeMalwareInfection, domain.SeverityHigh, "pb-malware"},
		{domain.IncidentTypeZeroDay, domain.SeverityCritical, "pb-malware"},
		{domain.IncidentTypeDenialOfService, domain.SeverityHigh, "pb-dos"},
	}
	for _, tt := range tests {
		pb, ok := r.FindRelevant(tt.incType, tt.severity)
		require.True(t, ok, "%s/%s", tt.incType, tt.severity)
		assert.Equal(t, tt.wantID, pb.ID)
	}
}

func TestImmediateActions(t *testing.T) {
	r := NewRegistry()
	r.LoadBuiltins()

	pb, ok := r.Get("pb-data-breach")
	require.True(t, ok)

	immediate := pb.ImmediateActions()
	require.Len(t, immediate, 2)
	assert.Equal(t, "lockdown_affected_accounts", immediate[0].Action)
	assert.Equal(t, "revoke_sessions", immediate[1].Action)
}
