package risklogic

import (
	"context"
	"fmt"
	"time"

	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AggregateFilter narrows the assessments that are averaged. Zero values do not filter.
type AggregateFilter struct {
	SubjectType models.AssessmentSubject
	AuditID     *uuid.UUID
	Since       time.Time
}

type AggregateResult struct {
	Count           int                  `json:"count"`
	AverageScore    float64              `json:"average_score"`
	RiskLevel       riskengine.RiskLevel `json:"risk_level"`
	AcceptableCount int                  `json:"acceptable_count"`
	AcceptanceRate  float64              `json:"acceptance_rate"`
}

// AggregateAuditRisk averages the initial scores of persisted audit and finding
// assessments and classifies the mean with the aggregate ladder.
func AggregateAuditRisk(ctx context.Context, db *gorm.DB, orgID uuid.UUID, filter AggregateFilter) (AggregateResult, error) {
	query := db.WithContext(ctx).Model(&models.AuditRiskAssessment{}).Where("organization_id = ?", orgID)
	if filter.SubjectType != "" {
		query = query.Where("subject_type = ?", filter.SubjectType)
	}
	if filter.AuditID != nil {
		query = query.Where("audit_id = ?", *filter.AuditID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}

	var assessments []models.AuditRiskAssessment
	if err := query.Find(&assessments).Error; err != nil {
		return AggregateResult{}, fmt.Errorf("failed to load risk assessments: %w", err)
	}

	records := make([]riskengine.RiskRecord, 0, len(assessments))
	acceptable := 0
	for _, a := range assessments {
		records = append(records, riskengine.RiskRecord{ID: a.ID.String(), RiskScore: float64(a.InitialRiskScore)})
		if a.RiskAcceptable {
			acceptable++
		}
	}

	avg, level := riskengine.AggregateScores(records)
	return AggregateResult{
		Count:           len(records),
		AverageScore:    avg,
		RiskLevel:       level,
		AcceptableCount: acceptable,
		AcceptanceRate:  riskengine.ComplianceRate(acceptable, len(records)),
	}, nil
}
