// Package riskengine holds the pure scoring, classification, residual-risk and
// escalation rules used by the FSMS risk services. Nothing in this package
// performs I/O; callers load inputs from the database and persist results.
package riskengine

import (
	"errors"
	"fmt"
	"strings"
)

// ImpactLevel is the categorical impact used by the weighted-category scoring.
type ImpactLevel string

const (
	ImpactLow      ImpactLevel = "low"
	ImpactMedium   ImpactLevel = "medium"
	ImpactHigh     ImpactLevel = "high"
	ImpactCritical ImpactLevel = "critical"
)

// ErrUnknownImpactLevel is returned by ParseImpactLevel for values outside the closed set.
var ErrUnknownImpactLevel = errors.New("unknown impact level")

// ParseImpactLevel is the strict boundary parser. It is case-insensitive and
// rejects anything that is not low, medium, high or critical.
func ParseImpactLevel(s string) (ImpactLevel, error) {
	switch ImpactLevel(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactLow:
		return ImpactLow, nil
	case ImpactMedium:
		return ImpactMedium, nil
	case ImpactHigh:
		return ImpactHigh, nil
	case ImpactCritical:
		return ImpactCritical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownImpactLevel, s)
	}
}

// Score maps the level to 1..4. Unknown values score 1, matching how legacy
// rows with free-text impacts have always been scored.
func (l ImpactLevel) Score() int {
	switch ImpactLevel(strings.ToLower(string(l))) {
	case ImpactLow:
		return 1
	case ImpactMedium:
		return 2
	case ImpactHigh:
		return 3
	case ImpactCritical:
		return 4
	default:
		return 1
	}
}

// SeverityOrdinal maps a non-conformance severity to the ordinal used by
// severity_level escalation rules. Unknown severities map to 1.
func SeverityOrdinal(severity string) int {
	return ImpactLevel(severity).Score()
}

// RiskLevel is the discrete level produced by every classifier.
type RiskLevel string

const (
	RiskLevelVeryLow  RiskLevel = "very_low"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Rank orders levels so results from different classifiers can be compared.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskLevelVeryLow:
		return 0
	case RiskLevelLow:
		return 1
	case RiskLevelMedium:
		return 2
	case RiskLevelHigh:
		return 3
	case RiskLevelCritical:
		return 4
	default:
		return -1
	}
}

// EscalationLevel is the organizational tier an escalation is routed to.
type EscalationLevel string

const (
	EscalationSupervisor EscalationLevel = "supervisor"
	EscalationManager    EscalationLevel = "manager"
	EscalationDirector   EscalationLevel = "director"
	EscalationExecutive  EscalationLevel = "executive"
)

// Valid reports whether l is one of the four known tiers.
func (l EscalationLevel) Valid() bool {
	switch l {
	case EscalationSupervisor, EscalationManager, EscalationDirector, EscalationExecutive:
		return true
	}
	return false
}
