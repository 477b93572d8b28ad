package riskengine

import (
	"math"
	"strings"
)

// Weights of the four impact categories. They sum to 1.0 and are not configurable.
const (
	WeightFoodSafety = 0.4
	WeightRegulatory = 0.3
	WeightCustomer   = 0.2
	WeightBusiness   = 0.1
)

// MaxBaseScore caps the base-with-multipliers strategy.
const MaxBaseScore = 100

// ScoreWeightedCategory returns the weighted impact score on the 1.0-4.0 scale,
// rounded to two decimal places.
func ScoreWeightedCategory(foodSafety, regulatory, customer, business ImpactLevel) float64 {
	score := float64(foodSafety.Score())*WeightFoodSafety +
		float64(regulatory.Score())*WeightRegulatory +
		float64(customer.Score())*WeightCustomer +
		float64(business.Score())*WeightBusiness
	return roundTo2(score)
}

// ScoreWeightedCategoryStrings is the lenient form used for stored rows:
// case-insensitive, and unrecognised strings score as low.
func ScoreWeightedCategoryStrings(foodSafety, regulatory, customer, business string) float64 {
	return ScoreWeightedCategory(
		ImpactLevel(strings.ToLower(foodSafety)),
		ImpactLevel(strings.ToLower(regulatory)),
		ImpactLevel(strings.ToLower(customer)),
		ImpactLevel(strings.ToLower(business)),
	)
}

// ScoreMultiplicative is likelihood x severity. Both are expected in 1..5;
// the caller validates the range.
func ScoreMultiplicative(likelihood, severity int) int {
	return likelihood * severity
}

// ScoreBaseWithMultipliers multiplies a domain base score by a status factor and
// any number of 0-1 impact factors, truncates to an integer and caps at 100.
func ScoreBaseWithMultipliers(base, statusFactor float64, impactFactors ...float64) int {
	score := base * statusFactor
	for _, f := range impactFactors {
		score *= f
	}
	truncated := int(math.Trunc(score))
	if truncated > MaxBaseScore {
		return MaxBaseScore
	}
	return truncated
}

// ImpactFactor turns a secondary 1-5 input into a 0-1 multiplier.
func ImpactFactor(value int) float64 {
	return float64(value) / 5
}

// AuditBaseScore is the starting score for an audit of the given type.
// Unknown types use the internal audit score.
func AuditBaseScore(auditType string) float64 {
	switch strings.ToLower(auditType) {
	case "internal":
		return 30
	case "supplier":
		return 40
	case "external":
		return 50
	case "certification":
		return 60
	case "regulatory":
		return 70
	default:
		return 30
	}
}

// FindingBaseScore is the starting score for a finding of the given severity.
func FindingBaseScore(severity string) float64 {
	switch strings.ToLower(severity) {
	case "observation":
		return 10
	case "minor":
		return 20
	case "major":
		return 40
	case "critical":
		return 60
	default:
		return 20
	}
}

// AuditStatusFactor scales audit risk by lifecycle status.
func AuditStatusFactor(status string) float64 {
	switch strings.ToLower(status) {
	case "completed", "closed":
		return 0.5
	case "in_progress":
		return 1.2
	case "overdue":
		return 1.3
	default:
		return 1.0
	}
}

// FindingStatusFactor scales finding risk by lifecycle status.
func FindingStatusFactor(status string) float64 {
	switch strings.ToLower(status) {
	case "closed", "verified":
		return 0.5
	case "in_progress":
		return 1.2
	case "open":
		return 1.3
	default:
		return 1.0
	}
}

// ScoreAudit applies the audit lookup tables and a single compliance impact factor.
func ScoreAudit(auditType, status string, complianceImpact int) int {
	return ScoreBaseWithMultipliers(AuditBaseScore(auditType), AuditStatusFactor(status), ImpactFactor(complianceImpact))
}

// ScoreFinding applies the finding lookup tables and both impact factors.
func ScoreFinding(severity, status string, complianceImpact, operationalImpact int) int {
	return ScoreBaseWithMultipliers(
		FindingBaseScore(severity),
		FindingStatusFactor(status),
		ImpactFactor(complianceImpact),
		ImpactFactor(operationalImpact),
	)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
