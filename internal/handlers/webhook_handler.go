package handlers

import (
	"errors"
	"net/http"
	"strings"

	"fsms/backend/internal/database"
	"fsms/backend/internal/models"
	"fsms/backend/internal/notifications"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// webhookTestSender é uma variável para que os testes possam trocar o cliente HTTP.
var webhookTestSender = notifications.NewWebhookSender()

// WebhookPayload defines the structure for creating or updating a WebhookConfiguration.
type WebhookPayload struct {
	Name       string   `json:"name" binding:"required,min=3,max=100"`
	URL        string   `json:"url" binding:"required,url,max=2048"`
	EventTypes []string `json:"event_types" binding:"required,min=1,dive,oneof=escalation_triggered risk_assessed"`
	IsActive   *bool    `json:"is_active"`
}

// WebhookResponseItem é o DTO para respostas de webhook, incluindo EventTypes como slice.
type WebhookResponseItem struct {
	models.WebhookConfiguration
	EventTypesList []string `json:"event_types"`
}

func newWebhookResponseItem(wh models.WebhookConfiguration) WebhookResponseItem {
	return WebhookResponseItem{
		WebhookConfiguration: wh,
		EventTypesList:       wh.EventTypeList(),
	}
}

func findWebhook(c *gin.Context, orgID uuid.UUID) (*models.WebhookConfiguration, bool) {
	webhookID, ok := parseUUIDParam(c, "webhookId", "webhook")
	if !ok {
		return nil, false
	}
	var webhook models.WebhookConfiguration
	err := database.GetDB().WithContext(c.Request.Context()).
		Where("id = ? AND organization_id = ?", webhookID, orgID).First(&webhook).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Webhook configuration not found"})
			return nil, false
		}
		respondServiceError(c, err, "fetch webhook configuration")
		return nil, false
	}
	return &webhook, true
}

// CreateWebhookHandler handles adding a new webhook configuration for an organization.
func CreateWebhookHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	webhook := models.WebhookConfiguration{
		OrganizationID: orgID,
		Name:           payload.Name,
		URL:            payload.URL,
		EventTypes:     strings.Join(payload.EventTypes, ","),
		IsActive:       true,
	}
	if payload.IsActive != nil {
		webhook.IsActive = *payload.IsActive
	}

	if err := database.GetDB().WithContext(c.Request.Context()).Create(&webhook).Error; err != nil {
		respondServiceError(c, err, "create webhook configuration")
		return
	}
	c.JSON(http.StatusCreated, newWebhookResponseItem(webhook))
}

// ListWebhooksHandler lists all webhook configurations for an organization.
func ListWebhooksHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, false)
	if !ok {
		return
	}

	page, pageSize := GetPaginationParams(c)
	query := database.GetDB().WithContext(c.Request.Context()).Model(&models.WebhookConfiguration{}).Where("organization_id = ?", orgID)

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		respondServiceError(c, err, "count webhook configurations")
		return
	}
	var webhooks []models.WebhookConfiguration
	if err := query.Scopes(PaginateScope(page, pageSize)).Order("created_at desc").Find(&webhooks).Error; err != nil {
		respondServiceError(c, err, "list webhook configurations")
		return
	}

	items := make([]WebhookResponseItem, 0, len(webhooks))
	for _, wh := range webhooks {
		items = append(items, newWebhookResponseItem(wh))
	}
	c.JSON(http.StatusOK, newPaginatedResponse(items, totalItems, page, pageSize))
}

// GetWebhookHandler gets a specific webhook configuration.
func GetWebhookHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, false)
	if !ok {
		return
	}
	webhook, ok := findWebhook(c, orgID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newWebhookResponseItem(*webhook))
}

// UpdateWebhookHandler updates an existing webhook configuration.
func UpdateWebhookHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	var payload WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	webhook, ok := findWebhook(c, orgID)
	if !ok {
		return
	}

	webhook.Name = payload.Name
	webhook.URL = payload.URL
	webhook.EventTypes = strings.Join(payload.EventTypes, ",")
	if payload.IsActive != nil {
		webhook.IsActive = *payload.IsActive
	}

	if err := database.GetDB().WithContext(c.Request.Context()).Save(webhook).Error; err != nil {
		respondServiceError(c, err, "update webhook configuration")
		return
	}
	c.JSON(http.StatusOK, newWebhookResponseItem(*webhook))
}

// DeleteWebhookHandler deletes a webhook configuration.
func DeleteWebhookHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	webhook, ok := findWebhook(c, orgID)
	if !ok {
		return
	}

	if err := database.GetDB().WithContext(c.Request.Context()).
		Delete(&models.WebhookConfiguration{}, "id = ? AND organization_id = ?", webhook.ID, orgID).Error; err != nil {
		respondServiceError(c, err, "delete webhook configuration")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Webhook configuration deleted successfully"})
}

// SendTestWebhookHandler posts a test message to a specific webhook and reports the outcome.
func SendTestWebhookHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, false)
	if !ok {
		return
	}
	webhook, ok := findWebhook(c, orgID)
	if !ok {
		return
	}

	msg := notifications.GoogleChatMessage{Text: "✅ Test event from the FSMS risk engine for webhook *" + webhook.Name + "*."}
	if err := webhookTestSender.Send(c.Request.Context(), webhook.URL, msg); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Webhook test failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test event sent successfully"})
}
