// Package risklogic loads FSMS records, runs them through the risk engine and
// persists the resulting assessments.
package risklogic

import "errors"

var (
	ErrRiskNotFound           = errors.New("risk not found")
	ErrAuditNotFound          = errors.New("audit not found")
	ErrFindingNotFound        = errors.New("finding not found")
	ErrNonConformanceNotFound = errors.New("non-conformance not found")

	// ErrOutOfScale is returned when a 1-5 input (likelihood, severity, control
	// effectiveness, impact) falls outside its range.
	ErrOutOfScale = errors.New("value must be between 1 and 5")
	// ErrSelfCorrelation is returned when a risk is correlated with itself.
	ErrSelfCorrelation = errors.New("a risk cannot be correlated with itself")
)

func validScale(v int) bool {
	return v >= 1 && v <= 5
}
