package riskengine

// Classifier maps a numeric score onto a RiskLevel. Each domain has its own
// threshold table; they are kept as separate types so the tables cannot drift.
type Classifier interface {
	Classify(score float64) RiskLevel
	Name() string
}

// GenericClassifier works on the weighted 1.0-4.0 scale. Lower bounds are inclusive.
type GenericClassifier struct{}

// Name identifies the classifier in logs and metrics.
func (GenericClassifier) Name() string { return "generic" }

// Classify returns the generic band for score.
func (GenericClassifier) Classify(score float64) RiskLevel {
	switch {
	case score >= 3.5:
		return RiskLevelCritical
	case score >= 2.5:
		return RiskLevelHigh
	case score >= 1.5:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// AuditClassifier works on the 0-100 audit scale. Upper bounds are inclusive.
type AuditClassifier struct{}

// Name identifies the classifier in logs and metrics.
func (AuditClassifier) Name() string { return "audit" }

// Classify returns the audit band for score.
func (AuditClassifier) Classify(score float64) RiskLevel {
	switch {
	case score <= 25:
		return RiskLevelLow
	case score <= 50:
		return RiskLevelMedium
	case score <= 75:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// FindingClassifier works on the 0-100 scale with stricter bands than audits.
type FindingClassifier struct{}

// Name identifies the classifier in logs and metrics.
func (FindingClassifier) Name() string { return "finding" }

// Classify returns the finding band for score.
func (FindingClassifier) Classify(score float64) RiskLevel {
	switch {
	case score <= 20:
		return RiskLevelLow
	case score <= 40:
		return RiskLevelMedium
	case score <= 70:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// AggregateClassifier is the five-band ladder used for averaged portfolio scores.
type AggregateClassifier struct{}

// Name identifies the classifier in logs and metrics.
func (AggregateClassifier) Name() string { return "aggregate" }

// Classify returns the aggregate band for score.
func (AggregateClassifier) Classify(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevelCritical
	case score >= 60:
		return RiskLevelHigh
	case score >= 40:
		return RiskLevelMedium
	case score >= 20:
		return RiskLevelLow
	default:
		return RiskLevelVeryLow
	}
}

// ClassifyGeneric classifies a weighted 1.0-4.0 score.
func ClassifyGeneric(score float64) RiskLevel {
	return GenericClassifier{}.Classify(score)
}

// ClassifyAudit classifies a 0-100 audit score.
func ClassifyAudit(score float64) RiskLevel {
	return AuditClassifier{}.Classify(score)
}

// ClassifyFinding classifies a 0-100 finding score.
func ClassifyFinding(score float64) RiskLevel {
	return FindingClassifier{}.Classify(score)
}

// ClassifyAggregate classifies an averaged portfolio score.
func ClassifyAggregate(score float64) RiskLevel {
	return AggregateClassifier{}.Classify(score)
}
