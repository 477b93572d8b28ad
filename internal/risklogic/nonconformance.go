package risklogic

import (
	"context"
	"errors"
	"fmt"

	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	phxlog "fsms/backend/pkg/log"
	"fsms/backend/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NCAssessmentInput carries the four categorical impacts of a non-conformance.
type NCAssessmentInput struct {
	FoodSafetyImpact string
	RegulatoryImpact string
	CustomerImpact   string
	BusinessImpact   string
	RiskAcceptable   bool
	AssessedByID     *uuid.UUID
}

func (in NCAssessmentInput) parse() (riskengine.RiskAssessmentInput, error) {
	var out riskengine.RiskAssessmentInput
	fields := []struct {
		name string
		raw  string
		dst  *riskengine.ImpactLevel
	}{
		{"food_safety_impact", in.FoodSafetyImpact, &out.FoodSafetyImpact},
		{"regulatory_impact", in.RegulatoryImpact, &out.RegulatoryImpact},
		{"customer_impact", in.CustomerImpact, &out.CustomerImpact},
		{"business_impact", in.BusinessImpact, &out.BusinessImpact},
	}
	for _, f := range fields {
		lvl, err := riskengine.ParseImpactLevel(f.raw)
		if err != nil {
			return out, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = lvl
	}
	return out, nil
}

// FindNonConformance loads a non-conformance scoped to the organization.
func FindNonConformance(ctx context.Context, db *gorm.DB, orgID, ncID uuid.UUID) (*models.NonConformance, error) {
	var nc models.NonConformance
	if err := db.WithContext(ctx).Where("id = ? AND organization_id = ?", ncID, orgID).First(&nc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNonConformanceNotFound
		}
		return nil, fmt.Errorf("failed to load non-conformance: %w", err)
	}
	return &nc, nil
}

// AssessNonConformanceRisk scores a non-conformance with the weighted-category
// strategy and stores the assessment. Impacts are validated strictly here; the
// engine itself never rejects a value.
func AssessNonConformanceRisk(ctx context.Context, db *gorm.DB, orgID, ncID uuid.UUID, in NCAssessmentInput) (*models.NCRiskAssessment, error) {
	parsed, err := in.parse()
	if err != nil {
		return nil, err
	}

	if _, err := FindNonConformance(ctx, db, orgID, ncID); err != nil {
		return nil, err
	}

	result := riskengine.AssessGeneric(parsed)
	assessment := &models.NCRiskAssessment{
		OrganizationID:     orgID,
		NonConformanceID:   ncID,
		FoodSafetyImpact:   string(parsed.FoodSafetyImpact),
		RegulatoryImpact:   string(parsed.RegulatoryImpact),
		CustomerImpact:     string(parsed.CustomerImpact),
		BusinessImpact:     string(parsed.BusinessImpact),
		OverallRiskScore:   result.OverallRiskScore,
		RiskLevel:          string(result.RiskLevel),
		RiskMatrixPosition: result.RiskMatrixPosition,
		RequiresEscalation: result.RequiresEscalation,
		RiskAcceptable:     in.RiskAcceptable,
		AssessedByID:       in.AssessedByID,
	}
	if result.EscalationLevel != nil {
		level := string(*result.EscalationLevel)
		assessment.EscalationLevel = &level
	}

	if err := db.WithContext(ctx).Create(assessment).Error; err != nil {
		phxlog.L.Error("Failed to save non-conformance risk assessment",
			zap.String("nonConformanceID", ncID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to save risk assessment: %w", err)
	}

	metrics.RecordRiskAssessment("non_conformance", assessment.RiskLevel)
	phxlog.L.Info("Non-conformance risk assessed",
		zap.String("nonConformanceID", ncID.String()),
		zap.Float64("score", assessment.OverallRiskScore),
		zap.String("level", assessment.RiskLevel),
		zap.Bool("requiresEscalation", assessment.RequiresEscalation))
	return assessment, nil
}

// LatestNCAssessment returns the most recent assessment, or nil when none exists.
// Ties on created_at are broken by id so the choice is stable.
func LatestNCAssessment(ctx context.Context, db *gorm.DB, orgID, ncID uuid.UUID) (*models.NCRiskAssessment, error) {
	var assessment models.NCRiskAssessment
	err := db.WithContext(ctx).
		Where("non_conformance_id = ? AND organization_id = ?", ncID, orgID).
		Order("created_at DESC, id DESC").
		First(&assessment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest risk assessment: %w", err)
	}
	return &assessment, nil
}

// ListNCAssessments returns the assessment history, newest first.
func ListNCAssessments(ctx context.Context, db *gorm.DB, orgID, ncID uuid.UUID) ([]models.NCRiskAssessment, error) {
	var assessments []models.NCRiskAssessment
	err := db.WithContext(ctx).
		Where("non_conformance_id = ? AND organization_id = ?", ncID, orgID).
		Order("created_at DESC, id DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	return assessments, nil
}
