package handlers

import (
	"errors"
	"net/http"

	"fsms/backend/internal/database"
	"fsms/backend/internal/models"
	"fsms/backend/internal/notifications"
	phxlog "fsms/backend/pkg/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// managedSettings são as chaves que a API pode ler e alterar, com a descrição padrão
// e se o valor é gravado criptografado.
var managedSettings = map[string]struct {
	Description string
	Encrypted   bool
}{
	models.SettingSESEmailSender:     {"Remetente dos e-mails de escalação (SES)", true},
	models.SettingEscalationFromName: {"Nome exibido nos e-mails de escalação", false},
}

// SystemSettingResponse é a estrutura para retornar configurações.
// Importante: este DTO nunca expõe o valor criptografado.
type SystemSettingResponse struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description"`
	IsEncrypted bool   `json:"is_encrypted"`
}

// ListSystemSettingsHandler lista as configurações gerenciadas que já existem no banco.
func ListSystemSettingsHandler(c *gin.Context) {
	log := phxlog.L.Named("ListSystemSettingsHandler")

	keys := make([]string, 0, len(managedSettings))
	for k := range managedSettings {
		keys = append(keys, k)
	}
	var settings []models.SystemSetting
	if err := database.GetDB().WithContext(c.Request.Context()).Where("key IN ?", keys).Order("key").Find(&settings).Error; err != nil {
		log.Error("Failed to retrieve system settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve system settings"})
		return
	}

	response := make([]SystemSettingResponse, len(settings))
	for i, s := range settings {
		value, err := s.GetDecryptedValue()
		if err != nil {
			log.Error("Failed to decrypt setting value", zap.String("key", s.Key), zap.Error(err))
			value = "******"
		}
		response[i] = SystemSettingResponse{Key: s.Key, Value: value, Description: s.Description, IsEncrypted: s.IsEncrypted}
	}
	c.JSON(http.StatusOK, response)
}

// UpdateSystemSettingsPayload define a estrutura para a atualização em massa de configurações.
type UpdateSystemSettingsPayload struct {
	Settings []struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value"`
	} `json:"settings" binding:"required,min=1,dive"`
}

var errUnmanagedSetting = errors.New("setting not found or not updatable")

// UpdateSystemSettingsHandler cria ou atualiza configurações gerenciadas numa única transação.
func UpdateSystemSettingsHandler(c *gin.Context) {
	log := phxlog.L.Named("UpdateSystemSettingsHandler")

	var payload UpdateSystemSettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	for _, s := range payload.Settings {
		if _, ok := managedSettings[s.Key]; !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errUnmanagedSetting.Error() + ": " + s.Key})
			return
		}
	}

	err := database.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, update := range payload.Settings {
			meta := managedSettings[update.Key]
			var setting models.SystemSetting
			err := tx.Where("key = ?", update.Key).First(&setting).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				setting = models.SystemSetting{Key: update.Key, Description: meta.Description, IsEncrypted: meta.Encrypted}
			}
			// O hook BeforeSave cuida da criptografia.
			setting.Value = update.Value
			if err := tx.Save(&setting).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update system settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update system settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "System settings updated successfully"})
}

// SendTestEmailHandler envia um e-mail de teste para o usuário autenticado.
// O notifier é recriado para usar as configurações que acabaram de ser salvas.
func SendTestEmailHandler(c *gin.Context) {
	userEmail, exists := c.Get("userEmail")
	to, ok := userEmail.(string)
	if !exists || !ok || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User email not found in token"})
		return
	}

	notifier := notifications.NewEmailNotifier(c.Request.Context(), database.GetDB())
	err := notifier.Send(c.Request.Context(), to, "[FSMS] Test email", "This is a test email from the FSMS risk engine. Escalation e-mails are configured correctly.")
	if err != nil {
		phxlog.L.Error("Failed to send test email", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send test email: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test email sent successfully to " + to})
}
