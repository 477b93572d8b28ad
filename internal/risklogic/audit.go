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

// FindAudit loads an audit scoped to the organization.
func FindAudit(ctx context.Context, db *gorm.DB, orgID, auditID uuid.UUID) (*models.Audit, error) {
	var audit models.Audit
	if err := db.WithContext(ctx).Where("id = ? AND organization_id = ?", auditID, orgID).First(&audit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuditNotFound
		}
		return nil, fmt.Errorf("failed to load audit: %w", err)
	}
	return &audit, nil
}

// FindFinding loads an audit finding scoped to the organization.
func FindFinding(ctx context.Context, db *gorm.DB, orgID, findingID uuid.UUID) (*models.AuditFinding, error) {
	var finding models.AuditFinding
	if err := db.WithContext(ctx).Where("id = ? AND organization_id = ?", findingID, orgID).First(&finding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFindingNotFound
		}
		return nil, fmt.Errorf("failed to load finding: %w", err)
	}
	return &finding, nil
}

// AssessAuditRisk scores an audit on the 0-100 scale, applies the control
// effectiveness and stores the initial and residual results.
func AssessAuditRisk(ctx context.Context, db *gorm.DB, orgID, auditID uuid.UUID, controlEffectiveness int) (*models.AuditRiskAssessment, error) {
	if !validScale(controlEffectiveness) {
		return nil, fmt.Errorf("control_effectiveness: %w", ErrOutOfScale)
	}

	audit, err := FindAudit(ctx, db, orgID, auditID)
	if err != nil {
		return nil, err
	}

	initial := riskengine.ScoreAudit(string(audit.AuditType), string(audit.Status), audit.ComplianceImpact)
	assessment := buildAuditAssessment(orgID, initial, controlEffectiveness, riskengine.AuditResidualPolicy)
	assessment.SubjectType = models.SubjectAudit
	assessment.AuditID = audit.ID

	if err := save(ctx, db, assessment, "audit"); err != nil {
		return nil, err
	}
	phxlog.L.Info("Audit risk assessed",
		zap.String("auditID", auditID.String()),
		zap.Int("initialScore", initial),
		zap.Float64("residualScore", assessment.ResidualRiskScore),
		zap.Bool("acceptable", assessment.RiskAcceptable))
	return assessment, nil
}

// AssessFindingRisk is the finding counterpart of AssessAuditRisk, with the
// stricter finding thresholds and two impact factors.
func AssessFindingRisk(ctx context.Context, db *gorm.DB, orgID, findingID uuid.UUID, controlEffectiveness int) (*models.AuditRiskAssessment, error) {
	if !validScale(controlEffectiveness) {
		return nil, fmt.Errorf("control_effectiveness: %w", ErrOutOfScale)
	}

	finding, err := FindFinding(ctx, db, orgID, findingID)
	if err != nil {
		return nil, err
	}

	initial := riskengine.ScoreFinding(string(finding.Severity), string(finding.Status), finding.ComplianceImpact, finding.OperationalImpact)
	assessment := buildAuditAssessment(orgID, initial, controlEffectiveness, riskengine.FindingResidualPolicy)
	assessment.SubjectType = models.SubjectFinding
	assessment.AuditID = finding.AuditID
	assessment.FindingID = &finding.ID

	if err := save(ctx, db, assessment, "finding"); err != nil {
		return nil, err
	}
	phxlog.L.Info("Finding risk assessed",
		zap.String("findingID", findingID.String()),
		zap.Int("initialScore", initial),
		zap.Float64("residualScore", assessment.ResidualRiskScore),
		zap.Bool("acceptable", assessment.RiskAcceptable))
	return assessment, nil
}

func buildAuditAssessment(orgID uuid.UUID, initial, controlEffectiveness int, policy riskengine.ResidualPolicy) *models.AuditRiskAssessment {
	residual := riskengine.AssessResidual(riskengine.ControlEffectivenessInput{
		InitialScore:         float64(initial),
		ControlEffectiveness: controlEffectiveness,
	}, policy)
	return &models.AuditRiskAssessment{
		OrganizationID:       orgID,
		InitialRiskScore:     initial,
		InitialRiskLevel:     string(policy.Classifier.Classify(float64(initial))),
		ControlEffectiveness: controlEffectiveness,
		ResidualRiskScore:    residual.ResidualRiskScore,
		ResidualRiskLevel:    string(residual.ResidualRiskLevel),
		RiskAcceptable:       residual.RiskAcceptable,
	}
}

func save(ctx context.Context, db *gorm.DB, assessment *models.AuditRiskAssessment, domain string) error {
	if err := db.WithContext(ctx).Create(assessment).Error; err != nil {
		phxlog.L.Error("Failed to save risk assessment", zap.String("domain", domain), zap.Error(err))
		return fmt.Errorf("failed to save %s risk assessment: %w", domain, err)
	}
	metrics.RecordRiskAssessment(domain, assessment.InitialRiskLevel)
	return nil
}
