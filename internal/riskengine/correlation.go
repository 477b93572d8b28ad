package riskengine

import "math"

// CorrelationType describes how two register risks relate.
type CorrelationType string

const (
	CorrelationDirect     CorrelationType = "direct"
	CorrelationIndirect   CorrelationType = "indirect"
	CorrelationCascading  CorrelationType = "cascading"
	CorrelationAmplifying CorrelationType = "amplifying"
)

const maxCorrelationStrength = 5

// CorrelationStrength adds up the shared attributes of a and b on a 1-5 scale.
func CorrelationStrength(a, b RiskRecord) int {
	strength := 1
	if a.Category != "" && a.Category == b.Category {
		strength += 2
	}
	if a.BusinessUnit != "" && a.BusinessUnit == b.BusinessUnit {
		strength++
	}
	if a.ProjectID != "" && a.ProjectID == b.ProjectID {
		strength++
	}
	if math.Abs(a.RiskScore-b.RiskScore) <= 5 {
		strength++
	}
	if strength > maxCorrelationStrength {
		return maxCorrelationStrength
	}
	return strength
}

// DetermineCorrelationType checks the rules in order and returns the first that matches.
func DetermineCorrelationType(a, b RiskRecord) CorrelationType {
	sameCategory := a.Category != "" && a.Category == b.Category
	sameUnit := a.BusinessUnit != "" && a.BusinessUnit == b.BusinessUnit
	switch {
	case sameCategory && sameUnit:
		return CorrelationDirect
	case sameCategory != sameUnit:
		return CorrelationIndirect
	case a.CascadeEffect || b.CascadeEffect:
		return CorrelationCascading
	case a.AmplificationRisk || b.AmplificationRisk:
		return CorrelationAmplifying
	default:
		return CorrelationIndirect
	}
}
