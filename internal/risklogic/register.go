package risklogic

import (
	"context"
	"errors"
	"fmt"

	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	phxlog "fsms/backend/pkg/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScoreRiskItem validates likelihood and severity and fills RiskScore.
func ScoreRiskItem(item *models.RiskItem) error {
	if !validScale(item.Likelihood) {
		return fmt.Errorf("likelihood: %w", ErrOutOfScale)
	}
	if !validScale(item.Severity) {
		return fmt.Errorf("severity: %w", ErrOutOfScale)
	}
	item.RiskScore = riskengine.ScoreMultiplicative(item.Likelihood, item.Severity)
	return nil
}

// ToRiskRecord projects a register item onto the engine's correlation view.
func ToRiskRecord(item models.RiskItem) riskengine.RiskRecord {
	rec := riskengine.RiskRecord{
		ID:                item.ID.String(),
		Category:          item.Category,
		BusinessUnit:      item.BusinessUnit,
		RiskScore:         float64(item.RiskScore),
		CascadeEffect:     item.CascadeEffect,
		AmplificationRisk: item.AmplificationRisk,
	}
	if item.ProjectID != nil {
		rec.ProjectID = item.ProjectID.String()
	}
	return rec
}

// FindRiskItem loads a register item scoped to the organization.
func FindRiskItem(ctx context.Context, db *gorm.DB, orgID, riskID uuid.UUID) (*models.RiskItem, error) {
	var item models.RiskItem
	if err := db.WithContext(ctx).Where("id = ? AND organization_id = ?", riskID, orgID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRiskNotFound
		}
		return nil, fmt.Errorf("failed to load risk: %w", err)
	}
	return &item, nil
}

// CorrelateRisks computes strength and type between two register items and stores the link.
func CorrelateRisks(ctx context.Context, db *gorm.DB, orgID, primaryID, relatedID uuid.UUID) (*models.RiskCorrelation, error) {
	if primaryID == relatedID {
		return nil, ErrSelfCorrelation
	}
	primary, err := FindRiskItem(ctx, db, orgID, primaryID)
	if err != nil {
		return nil, err
	}
	related, err := FindRiskItem(ctx, db, orgID, relatedID)
	if err != nil {
		return nil, err
	}

	a, b := ToRiskRecord(*primary), ToRiskRecord(*related)
	correlation := &models.RiskCorrelation{
		OrganizationID:  orgID,
		PrimaryRiskID:   primary.ID,
		RelatedRiskID:   related.ID,
		CorrelationType: string(riskengine.DetermineCorrelationType(a, b)),
		Strength:        riskengine.CorrelationStrength(a, b),
	}
	if err := db.WithContext(ctx).Create(correlation).Error; err != nil {
		return nil, fmt.Errorf("failed to save risk correlation: %w", err)
	}

	phxlog.L.Info("Risks correlated",
		zap.String("primaryRiskID", primaryID.String()),
		zap.String("relatedRiskID", relatedID.String()),
		zap.String("type", correlation.CorrelationType),
		zap.Int("strength", correlation.Strength))
	return correlation, nil
}

// ListCorrelations returns every correlation where the risk is on either side.
func ListCorrelations(ctx context.Context, db *gorm.DB, orgID, riskID uuid.UUID) ([]models.RiskCorrelation, error) {
	var correlations []models.RiskCorrelation
	err := db.WithContext(ctx).
		Where("organization_id = ? AND (primary_risk_id = ? OR related_risk_id = ?)", orgID, riskID, riskID).
		Order("strength DESC").
		Find(&correlations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list risk correlations: %w", err)
	}
	return correlations, nil
}
