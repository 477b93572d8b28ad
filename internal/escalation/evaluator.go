// Package escalation evaluates stored escalation rules against non-conformances
// and hands fired rules to a Dispatcher.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	"fsms/backend/internal/risklogic"
	"fsms/backend/pkg/features"
	phxlog "fsms/backend/pkg/log"
	"fsms/backend/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrEscalationRuleNotFound is returned by TriggerRule for an unknown rule.
var ErrEscalationRuleNotFound = errors.New("escalation rule not found")

// Dispatcher delivers a fired escalation to people and systems.
type Dispatcher interface {
	DispatchEscalation(ctx context.Context, orgID uuid.UUID, req riskengine.NotificationRequest) error
}

type Evaluator struct {
	db         *gorm.DB
	dispatcher Dispatcher
	logger     *zap.Logger
	// notify decides per call whether fired escalations are dispatched.
	notify func() bool
}

// NewEvaluator builds an Evaluator. dispatcher may be nil, in which case fired
// escalations are only recorded.
func NewEvaluator(db *gorm.DB, dispatcher Dispatcher) *Evaluator {
	return &Evaluator{
		db:         db,
		dispatcher: dispatcher,
		logger:     phxlog.L.Named("escalation"),
		notify: func() bool {
			return features.IsEnabled(features.EscalationNotifications)
		},
	}
}

// EvaluateNonConformance measures every active rule of the organization against
// the non-conformance and returns the requests for the rules that fire. A missing
// non-conformance yields an empty result rather than an error.
func (e *Evaluator) EvaluateNonConformance(ctx context.Context, orgID, ncID uuid.UUID, now time.Time) ([]riskengine.NotificationRequest, error) {
	nc, err := risklogic.FindNonConformance(ctx, e.db, orgID, ncID)
	if err != nil {
		if errors.Is(err, risklogic.ErrNonConformanceNotFound) {
			e.logger.Warn("Escalation evaluation skipped, non-conformance not found",
				zap.String("nonConformanceID", ncID.String()))
			return []riskengine.NotificationRequest{}, nil
		}
		return nil, err
	}

	latest, err := risklogic.LatestNCAssessment(ctx, e.db, orgID, ncID)
	if err != nil {
		return nil, err
	}

	var rules []models.EscalationRule
	if err := e.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to load escalation rules: %w", err)
	}

	tc := riskengine.TriggerContext{
		NonConformanceID: nc.ID.String(),
		Severity:         nc.Severity,
		ReportedAt:       nc.ReportedAt,
		Now:              now,
	}
	if latest != nil {
		score := latest.OverallRiskScore
		tc.LatestRiskScore = &score
	}

	engineRules := make([]riskengine.EscalationRule, 0, len(rules))
	for _, r := range rules {
		engineRules = append(engineRules, ToEngineRule(r))
	}

	fired := riskengine.EvaluateRules(engineRules, tc)
	if fired == nil {
		fired = []riskengine.NotificationRequest{}
	}
	for _, req := range fired {
		e.handleFired(ctx, orgID, &nc.ID, req)
	}

	e.logger.Info("Escalation rules evaluated",
		zap.String("nonConformanceID", ncID.String()),
		zap.Int("rules", len(rules)),
		zap.Int("fired", len(fired)))
	return fired, nil
}

// TriggerRule evaluates a single rule against a caller supplied measurement.
// It returns nil when the rule does not fire. Inactive rules never fire.
func (e *Evaluator) TriggerRule(ctx context.Context, orgID, ruleID uuid.UUID, triggerValue float64) (*riskengine.NotificationRequest, error) {
	var rule models.EscalationRule
	if err := e.db.WithContext(ctx).Where("id = ? AND organization_id = ?", ruleID, orgID).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEscalationRuleNotFound
		}
		return nil, fmt.Errorf("failed to load escalation rule: %w", err)
	}

	engineRule := ToEngineRule(rule)
	if !engineRule.IsActive || !riskengine.RuleShouldTrigger(engineRule, triggerValue) {
		return nil, nil
	}

	req := riskengine.BuildNotification(engineRule, "", triggerValue)
	e.handleFired(ctx, orgID, nil, req)
	return &req, nil
}

func (e *Evaluator) handleFired(ctx context.Context, orgID uuid.UUID, ncID *uuid.UUID, req riskengine.NotificationRequest) {
	metrics.RecordEscalation(string(req.EscalationLevel))

	ruleID, err := uuid.Parse(req.RuleID)
	if err == nil {
		event := &models.EscalationEvent{
			OrganizationID:   orgID,
			RuleID:           ruleID,
			NonConformanceID: ncID,
			TriggerValue:     req.TriggerValue,
			EscalationLevel:  string(req.EscalationLevel),
		}
		if err := e.db.WithContext(ctx).Create(event).Error; err != nil {
			e.logger.Error("Failed to record escalation event", zap.String("ruleID", req.RuleID), zap.Error(err))
		}
	}

	if e.dispatcher == nil || !e.notify() {
		return
	}
	if err := e.dispatcher.DispatchEscalation(ctx, orgID, req); err != nil {
		e.logger.Error("Failed to dispatch escalation",
			zap.String("ruleID", req.RuleID),
			zap.String("level", string(req.EscalationLevel)),
			zap.Error(err))
	}
}

// ToEngineRule converts a stored rule into the engine's value type.
func ToEngineRule(r models.EscalationRule) riskengine.EscalationRule {
	return riskengine.EscalationRule{
		ID:                       r.ID.String(),
		Name:                     r.Name,
		TriggerCondition:         riskengine.TriggerCondition(r.TriggerCondition),
		TriggerValue:             r.TriggerValue,
		EscalationLevel:          riskengine.EscalationLevel(r.EscalationLevel),
		EscalationTimeframeHours: r.EscalationTimeframe,
		Recipients:               SplitRecipients(r.Recipients),
		IsActive:                 r.IsActive,
	}
}

// SplitRecipients parses the comma separated recipients column.
func SplitRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinRecipients is the inverse of SplitRecipients.
func JoinRecipients(recipients []string) string {
	return strings.Join(SplitRecipients(strings.Join(recipients, ",")), ",")
}
