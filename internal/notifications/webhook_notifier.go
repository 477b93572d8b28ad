package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	phxlog "fsms/backend/pkg/log"

	"go.uber.org/zap"
)

const maxWebhookRetries = 3

// webhookRetryDelay é uma variável para que os testes possam encurtá-la.
var webhookRetryDelay = 5 * time.Second

// GoogleChatMessage é a estrutura do payload para webhooks do Google Chat.
type GoogleChatMessage struct {
	Text string `json:"text"`
}

// WebhookSender envia payloads JSON com retentativas.
type WebhookSender struct {
	Client *http.Client
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{Client: &http.Client{Timeout: 10 * time.Second}}
}

// Send faz POST do payload em webhookURL. Erros 4xx (exceto 429) não são retentados.
func (w *WebhookSender) Send(ctx context.Context, webhookURL string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var lastErr error
	for i := 0; i < maxWebhookRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook to %s cancelled: %w", webhookURL, ctx.Err())
			case <-time.After(webhookRetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonData))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")

		resp, err := w.Client.Do(req)
		if err != nil {
			phxlog.L.Warn("Error sending webhook",
				zap.String("url", webhookURL),
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", maxWebhookRetries),
				zap.Error(err))
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		bodyText, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			phxlog.L.Info("Webhook sent successfully",
				zap.String("url", webhookURL),
				zap.String("status", resp.Status))
			return nil
		}

		phxlog.L.Warn("Webhook send failed",
			zap.String("url", webhookURL),
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxWebhookRetries),
			zap.String("status", resp.Status),
			zap.ByteString("response_body", bodyText))
		lastErr = fmt.Errorf("request failed with status %s", resp.Status)

		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			break
		}
	}
	return fmt.Errorf("failed to send webhook to %s: %w", webhookURL, lastErr)
}
