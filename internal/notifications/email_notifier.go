package notifications

import (
	"context"
	"errors"
	"fmt"

	"fsms/backend/internal/models"
	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmailNotifier define a interface para um notificador de email.
type EmailNotifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// sesAPI é o subconjunto do cliente SES usado aqui; permite substituir o cliente em testes.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESEmailNotifier implementa EmailNotifier usando AWS SES.
type SESEmailNotifier struct {
	client sesAPI
	sender string
}

// logNotifier apenas registra o e-mail no log. Usado quando o SES não está configurado.
type logNotifier struct{}

func (n *logNotifier) Send(ctx context.Context, to, subject, body string) error {
	phxlog.L.Info("--- SIMULATING EMAIL SEND (Fallback) ---",
		zap.String("to", to),
		zap.String("subject", subject))
	phxlog.L.Debug("Email Body (Text)", zap.String("body", body))
	return nil
}

// NewEmailNotifier monta o notificador de e-mail.
// O remetente vem de system_settings quando existir, com fallback para AWS_SES_EMAIL_SENDER.
func NewEmailNotifier(ctx context.Context, db *gorm.DB) EmailNotifier {
	log := phxlog.L.Named("NewEmailNotifier")

	sender := models.GetSystemSettingOrDefault(db, models.SettingSESEmailSender, config.Cfg.AWSSESEmailSender)
	region := config.Cfg.AWSRegion
	if region == "" || sender == "" {
		log.Warn("AWS SES email service is not configured (missing AWS_REGION or AWS_SES_EMAIL_SENDER). Emails will only be logged.")
		return &logNotifier{}
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Error("Failed to load AWS SDK config for SES, emails will only be logged", zap.Error(err))
		return &logNotifier{}
	}

	if name := models.GetSystemSettingOrDefault(db, models.SettingEscalationFromName, ""); name != "" {
		sender = fmt.Sprintf("%s <%s>", name, sender)
	}

	log.Info("AWS SES email service initialized", zap.String("sender", sender), zap.String("region", region))
	return &SESEmailNotifier{client: sesv2.NewFromConfig(cfg), sender: sender}
}

// Send envia um e-mail em texto simples via SES.
func (s *SESEmailNotifier) Send(ctx context.Context, to, subject, body string) error {
	if s.client == nil {
		return errors.New("SES client not initialized")
	}
	if to == "" {
		return errors.New("email recipient cannot be empty")
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		phxlog.L.Error("Failed to send email via SES", zap.Error(err), zap.String("recipient", to))
		return err
	}

	phxlog.L.Info("Successfully sent email", zap.String("recipient", to), zap.String("subject", subject))
	return nil
}
