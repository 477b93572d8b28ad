package riskengine

// RiskAssessmentInput is the categorical input of the weighted-category path.
type RiskAssessmentInput struct {
	FoodSafetyImpact ImpactLevel
	RegulatoryImpact ImpactLevel
	CustomerImpact   ImpactLevel
	BusinessImpact   ImpactLevel
}

// RiskScoreResult is what AssessGeneric returns. EscalationLevel is set only
// when RequiresEscalation is true.
type RiskScoreResult struct {
	OverallRiskScore   float64          `json:"overall_risk_score"`
	RiskLevel          RiskLevel        `json:"risk_level"`
	RiskMatrixPosition string           `json:"risk_matrix_position,omitempty"`
	RequiresEscalation bool             `json:"requires_escalation"`
	EscalationLevel    *EscalationLevel `json:"escalation_level,omitempty"`
}

// ControlEffectivenessInput is the input of the residual-risk calculation.
// ControlEffectiveness is on the 1-5 scale and is validated by the caller.
type ControlEffectivenessInput struct {
	InitialScore         float64
	ControlEffectiveness int
}

// ResidualRiskResult is the residual score, its level and whether it is
// within the domain's acceptable maximum.
type ResidualRiskResult struct {
	ResidualRiskScore float64   `json:"residual_risk_score"`
	ResidualRiskLevel RiskLevel `json:"residual_risk_level"`
	RiskAcceptable    bool      `json:"risk_acceptable"`
}

// EscalationRule is the engine's read-only view of a persisted rule.
type EscalationRule struct {
	ID                       string
	Name                     string
	TriggerCondition         TriggerCondition
	TriggerValue             float64
	EscalationLevel          EscalationLevel
	EscalationTimeframeHours int
	Recipients               []string
	IsActive                 bool
}

// RiskRecord is the subset of a risk the correlation and aggregation helpers look at.
type RiskRecord struct {
	ID                string
	Category          string
	BusinessUnit      string
	ProjectID         string
	RiskScore         float64
	CascadeEffect     bool
	AmplificationRisk bool
}

// NotificationRequest is the payload produced for every rule that fires.
// Delivering it is the caller's job.
type NotificationRequest struct {
	RuleID              string           `json:"rule_id"`
	RuleName            string           `json:"rule_name"`
	SubjectID           string           `json:"subject_id"`
	TriggerCondition    TriggerCondition `json:"trigger_condition"`
	TriggerValue        float64          `json:"trigger_value"`
	Threshold           float64          `json:"threshold"`
	EscalationLevel     EscalationLevel  `json:"escalation_level"`
	EscalationTimeframe int              `json:"escalation_timeframe_hours"`
	Recipients          []string         `json:"recipients"`
}
