package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"
	"fsms/backend/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service entrega escalações por webhook e e-mail. Implementa escalation.Dispatcher.
type Service struct {
	db       *gorm.DB
	email    EmailNotifier
	webhooks *WebhookSender
}

func NewService(db *gorm.DB, email EmailNotifier, webhooks *WebhookSender) *Service {
	if email == nil {
		email = &logNotifier{}
	}
	if webhooks == nil {
		webhooks = NewWebhookSender()
	}
	return &Service{db: db, email: email, webhooks: webhooks}
}

// DispatchEscalation envia a escalação para os webhooks ativos da organização
// assinados a escalation_triggered e para cada destinatário com endereço de e-mail.
// Destinatários sem "@" são papéis e ficam só no log.
func (s *Service) DispatchEscalation(ctx context.Context, orgID uuid.UUID, req riskengine.NotificationRequest) error {
	text := EscalationMessage(req)
	errs := []error{s.sendToSubscribers(ctx, orgID, models.EventTypeEscalationTriggered, text, zap.String("ruleID", req.RuleID))}

	subject := fmt.Sprintf("[FSMS] Escalation to %s: %s", req.EscalationLevel, req.RuleName)
	for _, recipient := range req.Recipients {
		if !strings.Contains(recipient, "@") {
			phxlog.L.Info("Escalation recipient is a role, no e-mail sent",
				zap.String("recipient", recipient), zap.String("ruleID", req.RuleID))
			continue
		}
		err := s.email.Send(ctx, recipient, subject, text)
		metrics.RecordNotification("email", err)
		if err != nil {
			errs = append(errs, fmt.Errorf("email to %s: %w", recipient, err))
		}
	}

	return errors.Join(errs...)
}

// DispatchRiskAssessed avisa os webhooks assinados a risk_assessed sobre uma nova avaliação.
func (s *Service) DispatchRiskAssessed(ctx context.Context, orgID uuid.UUID, summary RiskAssessedSummary) error {
	return s.sendToSubscribers(ctx, orgID, models.EventTypeRiskAssessed, RiskAssessedMessage(summary),
		zap.String("subjectID", summary.SubjectID))
}

func (s *Service) sendToSubscribers(ctx context.Context, orgID uuid.UUID, event models.WebhookEventType, text string, logField zap.Field) error {
	var webhooks []models.WebhookConfiguration
	if err := s.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Find(&webhooks).Error; err != nil {
		return fmt.Errorf("failed to load webhooks: %w", err)
	}

	var errs []error
	for _, wh := range webhooks {
		if !wh.Subscribes(event) {
			continue
		}
		err := s.webhooks.Send(ctx, wh.URL, GoogleChatMessage{Text: text})
		metrics.RecordNotification("webhook", err)
		if err != nil {
			phxlog.L.Error("Failed to send webhook",
				zap.String("event", string(event)),
				zap.String("webhookName", wh.Name),
				logField,
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RiskAssessedSummary descreve uma avaliação recém calculada para o evento risk_assessed.
type RiskAssessedSummary struct {
	Domain    string
	SubjectID string
	Score     float64
	RiskLevel string
}

// RiskAssessedMessage renderiza o texto do evento risk_assessed.
func RiskAssessedMessage(summary RiskAssessedSummary) string {
	return fmt.Sprintf("📋 New %s risk assessment for %s: score %.2f, level %s",
		strings.ReplaceAll(summary.Domain, "_", " "), summary.SubjectID, summary.Score, summary.RiskLevel)
}

// EscalationMessage renderiza o texto enviado em webhooks e e-mails.
func EscalationMessage(req riskengine.NotificationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 Escalation *%s* triggered (level: %s)\n", req.RuleName, req.EscalationLevel)
	fmt.Fprintf(&b, "Condition: %s = %.2f (threshold %.2f)\n", req.TriggerCondition, req.TriggerValue, req.Threshold)
	fmt.Fprintf(&b, "Respond within %d hours.", req.EscalationTimeframe)
	if req.SubjectID != "" {
		frontendBaseURL := config.Cfg.FrontendBaseURL
		if frontendBaseURL == "" {
			frontendBaseURL = "http://localhost:3000"
		}
		fmt.Fprintf(&b, "\nLink: %s/non-conformances/%s", strings.TrimSuffix(frontendBaseURL, "/"), req.SubjectID)
	}
	return b.String()
}
