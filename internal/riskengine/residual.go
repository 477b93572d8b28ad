package riskengine

import "math"

// ResidualPolicy pairs the classifier of a domain with its acceptability ceiling.
type ResidualPolicy struct {
	Classifier    Classifier
	AcceptableMax float64
}

var (
	// AuditResidualPolicy accepts residual audit risk up to 25.
	AuditResidualPolicy = ResidualPolicy{Classifier: AuditClassifier{}, AcceptableMax: 25}
	// FindingResidualPolicy accepts residual finding risk up to 20.
	FindingResidualPolicy = ResidualPolicy{Classifier: FindingClassifier{}, AcceptableMax: 20}
)

// ResidualScore reduces initial by the control effectiveness (1-5, 5 is best) and
// floors the result at 1. Effectiveness is not range checked here.
func ResidualScore(initial float64, controlEffectiveness int) float64 {
	// (6-e)/5 is not exact in binary, so multiply first.
	residual := math.Floor(initial * float64(6-controlEffectiveness) / 5)
	if residual < 1 {
		return 1
	}
	return residual
}

// AssessResidual computes the residual score and classifies it under policy.
func AssessResidual(in ControlEffectivenessInput, policy ResidualPolicy) ResidualRiskResult {
	score := ResidualScore(in.InitialScore, in.ControlEffectiveness)
	return ResidualRiskResult{
		ResidualRiskScore: score,
		ResidualRiskLevel: policy.Classifier.Classify(score),
		RiskAcceptable:    score <= policy.AcceptableMax,
	}
}
