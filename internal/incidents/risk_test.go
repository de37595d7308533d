package incidents

import (
	"testing"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		name     string
		incType  domain.IncidentType
		severity domain.Severity
		want     int
	}{
		{"zero day critical clamps at 100", domain.IncidentTypeZeroDay, domain.SeverityCritical, 100},
		{"data breach critical clamps at 100", domain.IncidentTypeDataBreach, domain.SeverityCritical, 100},
		{"data breach high", domain.IncidentTypeDataBreach, domain.SeverityHigh, 90},
		{"malware medium", domain.IncidentTypeMalwareInfection, domain.SeverityMedium, 49},
		{"account compromise high", domain.IncidentTypeAccountCompromise, domain.SeverityHigh, 75},
		{"policy violation low", domain.IncidentTypePolicyViolation, domain.SeverityLow, 16},
		{"dos low", domain.IncidentTypeDenialOfService, domain.SeverityLow, 26},
		{"unknown type scores zero", domain.IncidentType("bogus"), domain.SeverityCritical, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessRisk(tt.incType, tt.severity))
		})
	}
}

func TestAssessImpact(t *testing.T) {
	t.Run("critical data breach", func(t *testing.T) {
		impact := AssessImpact(domain.IncidentTypeDataBreach, domain.SeverityCritical)

		assert.Equal(t, domain.ImpactSevere, impact.ExposureRisk)
		assert.Equal(t, domain.ImpactSevere, impact.Reputational)
		assert.True(t, impact.RegulatoryImpact)
		assert.Equal(t, float64(500000), impact.EstimatedFinancial)
		assert.Equal(t, 72, impact.EstimatedRecoveryHours)
	})

	t.Run("medium dos bumps operational tier", func(t *testing.T) {
		impact := AssessImpact(domain.IncidentTypeDenialOfService, domain.SeverityMedium)

		assert.Equal(t, domain.ImpactModerate, impact.ExposureRisk)
		assert.Equal(t, domain.ImpactMajor, impact.Operational)
		assert.False(t, impact.RegulatoryImpact)
	})

	t.Run("low policy violation keeps regulatory exposure", func(t *testing.T) {
		impact := AssessImpact(domain.IncidentTypePolicyViolation, domain.SeverityLow)

		assert.True(t, impact.RegulatoryImpact)
		assert.Equal(t, domain.ImpactMinor, impact.ExposureRisk)
		assert.Equal(t, 8, impact.EstimatedRecoveryHours)
	})

	t.Run("high supply chain bumps reputational tier", func(t *testing.T) {
		impact := AssessImpact(domain.IncidentTypeSupplyChain, domain.SeverityHigh)

		assert.Equal(t, domain.ImpactMajor, impact.ExposureRisk)
		assert.Equal(t, domain.ImpactSevere, impact.Reputational)
	})
}
