package riskengine

import (
	"strings"
	"time"
)

// EscalationThreshold is the weighted score at and above which a non-conformance escalates.
const EscalationThreshold = 3.0

// TriggerCondition selects which measurement an escalation rule is compared against.
type TriggerCondition string

const (
	TriggerRiskScore     TriggerCondition = "risk_score"
	TriggerSeverityLevel TriggerCondition = "severity_level"
	TriggerTimeDelay     TriggerCondition = "time_delay"
)

// Valid reports whether c is a known trigger condition.
func (c TriggerCondition) Valid() bool {
	switch c {
	case TriggerRiskScore, TriggerSeverityLevel, TriggerTimeDelay:
		return true
	}
	return false
}

// ShouldEscalateGeneric reports whether a weighted score needs escalation.
// The threshold is inclusive: 3.0 escalates, 2.99 does not.
func ShouldEscalateGeneric(score float64) bool {
	return score >= EscalationThreshold
}

// EscalationLevelGeneric picks the tier for a weighted score. It is defined for
// every score, including ones that do not require escalation.
func EscalationLevelGeneric(score float64) EscalationLevel {
	switch {
	case score >= 3.5:
		return EscalationExecutive
	case score >= 3.0:
		return EscalationDirector
	case score >= 2.5:
		return EscalationManager
	default:
		return EscalationSupervisor
	}
}

// AssessGeneric runs the weighted-category path end to end: score, level,
// matrix position and the direct-threshold escalation decision.
func AssessGeneric(in RiskAssessmentInput) RiskScoreResult {
	score := ScoreWeightedCategory(in.FoodSafetyImpact, in.RegulatoryImpact, in.CustomerImpact, in.BusinessImpact)
	res := RiskScoreResult{
		OverallRiskScore:   score,
		RiskLevel:          ClassifyGeneric(score),
		RiskMatrixPosition: MatrixPosition(in.FoodSafetyImpact, in.RegulatoryImpact),
		RequiresEscalation: ShouldEscalateGeneric(score),
	}
	if res.RequiresEscalation {
		level := EscalationLevelGeneric(score)
		res.EscalationLevel = &level
	}
	return res
}

// RuleShouldTrigger is true when triggerValue reaches the rule's threshold.
// The active flag is not consulted here; EvaluateRules filters inactive rules.
func RuleShouldTrigger(rule EscalationRule, triggerValue float64) bool {
	return triggerValue >= rule.TriggerValue
}

// TriggerContext carries the facts about a non-conformance that rules are measured against.
type TriggerContext struct {
	NonConformanceID string
	Severity         string
	ReportedAt       time.Time
	Now              time.Time
	// LatestRiskScore is nil when the record has never been assessed.
	LatestRiskScore *float64
}

// TriggerValueFor computes the measurement for a condition. ok is false when the
// measurement is unavailable, e.g. a risk_score rule with no assessment on record.
func TriggerValueFor(condition TriggerCondition, tc TriggerContext) (float64, bool) {
	switch condition {
	case TriggerRiskScore:
		if tc.LatestRiskScore == nil {
			return 0, false
		}
		return *tc.LatestRiskScore, true
	case TriggerSeverityLevel:
		return float64(SeverityOrdinal(strings.ToLower(tc.Severity))), true
	case TriggerTimeDelay:
		if tc.ReportedAt.IsZero() {
			return 0, false
		}
		return tc.Now.Sub(tc.ReportedAt).Hours(), true
	default:
		return 0, false
	}
}

// BuildNotification renders the request for a rule that fired.
func BuildNotification(rule EscalationRule, subjectID string, triggerValue float64) NotificationRequest {
	recipients := make([]string, len(rule.Recipients))
	copy(recipients, rule.Recipients)
	return NotificationRequest{
		RuleID:              rule.ID,
		RuleName:            rule.Name,
		SubjectID:           subjectID,
		TriggerCondition:    rule.TriggerCondition,
		TriggerValue:        triggerValue,
		Threshold:           rule.TriggerValue,
		EscalationLevel:     rule.EscalationLevel,
		EscalationTimeframe: rule.EscalationTimeframeHours,
		Recipients:          recipients,
	}
}

// EvaluateRules returns one notification per active rule whose measurement
// reaches its threshold, in the order the rules were given.
func EvaluateRules(rules []EscalationRule, tc TriggerContext) []NotificationRequest {
	var fired []NotificationRequest
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		value, ok := TriggerValueFor(rule.TriggerCondition, tc)
		if !ok || !RuleShouldTrigger(rule, value) {
			continue
		}
		fired = append(fired, BuildNotification(rule, tc.NonConformanceID, value))
	}
	return fired
}
