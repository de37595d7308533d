package incidents

import "github.com/sentineldesk/responder/internal/domain"

// typeBaseScores grades how dangerous each incident class is before
// severity weighting. Scores are on a 0-100 scale.
var typeBaseScores = map[domain.IncidentType]float64{
	domain.IncidentTypeZeroDay:             95,
	domain.IncidentTypeDataBreach:          90,
	domain.IncidentTypeSupplyChain:         85,
	domain.IncidentTypeDataLoss:            85,
	domain.IncidentTypePrivilegeEscalation: 80,
	domain.IncidentTypeInsiderThreat:       80,
	domain.IncidentTypeAccountCompromise:   75,
	domain.IncidentTypeMalwareInfection:    70,
	domain.IncidentTypeUnauthorizedAccess:  70,
	domain.IncidentTypeDenialOfService:     65,
	domain.IncidentTypeSocialEngineering:   60,
	domain.IncidentTypePolicyViolation:     40,
}

var severityMultipliers = map[domain.Severity]float64{
	domain.SeverityCritical: 1.2,
	domain.SeverityHigh:     1.0,
	domain.SeverityMedium:   0.7,
	domain.SeverityLow:      0.4,
}

// regulatoryTypes are incident classes that carry regulatory exposure
// regardless of severity.
var regulatoryTypes = map[domain.IncidentType]bool{
	domain.IncidentTypeDataBreach:      true,
	domain.IncidentTypeDataLoss:        true,
	domain.IncidentTypePolicyViolation: true,
}

var severityFinancial = map[domain.Severity]float64{
	domain.SeverityCritical: 500000,
	domain.SeverityHigh:     150000,
	domain.SeverityMedium:   40000,
	domain.SeverityLow:      5000,
}

var severityRecoveryHours = map[domain.Severity]int{
	domain.SeverityCritical: 72,
	domain.SeverityHigh:     48,
	domain.SeverityMedium:   24,
	domain.SeverityLow:      8,
}

// AssessRisk computes the risk score for an incident type and severity.
// The score is always typeBaseScore x severityMultiplier, clamped to 100.
func AssessRisk(t domain.IncidentType, s domain.Severity) int {
	score := typeBaseScores[t] * severityMultipliers[s]
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return int(score)
}

// AssessImpact estimates the blast radius for an incident type and severity.
func AssessImpact(t domain.IncidentType, s domain.Severity) domain.ImpactAssessment {
	return domain.ImpactAssessment{
		ExposureRisk:           severityTier(s),
		EstimatedFinancial:     severityFinancial[s],
		Reputational:           reputationalTier(t, s),
		Operational:            operationalTier(t, s),
		RegulatoryImpact:       regulatoryTypes[t] || s == domain.SeverityCritical,
		EstimatedRecoveryHours: severityRecoveryHours[s],
	}
}

func severityTier(s domain.Severity) domain.ImpactTier {
	switch s {
	case domain.SeverityCritical:
		return domain.ImpactSevere
	case domain.SeverityHigh:
		return domain.ImpactMajor
	case domain.SeverityMedium:
		return domain.ImpactModerate
	default:
		return domain.ImpactMinor
	}
}

// reputationalTier bumps public-facing incident classes one tier up.
func reputationalTier(t domain.IncidentType, s domain.Severity) domain.ImpactTier {
	tier := severityTier(s)
	if t == domain.IncidentTypeDataBreach || t == domain.IncidentTypeSupplyChain {
		return bumpTier(tier)
	}
	return tier
}

// operationalTier bumps availability-affecting classes one tier up.
func operationalTier(t domain.IncidentType, s domain.Severity) domain.ImpactTier {
	tier := severityTier(s)
	if t == domain.IncidentTypeDenialOfService || t == domain.IncidentTypeMalwareInfection {
		return bumpTier(tier)
	}
	return tier
}

func bumpTier(t domain.ImpactTier) domain.ImpactTier {
	switch t {
	case domain.ImpactMinor:
		return domain.ImpactModerate
	case domain.ImpactModerate:
		return domain.ImpactMajor
	default:
		return domain.ImpactSevere
	}
}
