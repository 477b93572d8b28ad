package models

import (
	"fsms/backend/internal/utils"

	"gorm.io/gorm"
)

// Chaves de configuração conhecidas.
const (
	SettingSESEmailSender     = "AWS_SES_EMAIL_SENDER"
	SettingEscalationFromName = "ESCALATION_EMAIL_FROM_NAME"
)

// SystemSetting armazena configurações globais do sistema no banco de dados.
// Permite alterar o remetente de e-mails de escalação sem reiniciar a aplicação.
type SystemSetting struct {
	gorm.Model
	Key         string `gorm:"type:varchar(100);uniqueIndex;not null"` // A chave da configuração (ex: "AWS_SES_EMAIL_SENDER")
	Value       string `gorm:"type:text;not null"`                     // O valor, criptografado quando IsEncrypted
	Description string `gorm:"type:varchar(255)"`
	IsEncrypted bool   `gorm:"not null"`
}

// BeforeSave criptografa o valor antes de salvar.
func (s *SystemSetting) BeforeSave(tx *gorm.DB) (err error) {
	if s.IsEncrypted && s.Value != "" {
		encryptedValue, err := utils.Encrypt(s.Value)
		if err != nil {
			return err
		}
		s.Value = encryptedValue
	}
	return nil
}

// GetDecryptedValue descriptografa e retorna o valor da configuração.
func (s *SystemSetting) GetDecryptedValue() (string, error) {
	if !s.IsEncrypted || s.Value == "" {
		return s.Value, nil
	}
	return utils.Decrypt(s.Value)
}

// GetSystemSetting busca uma configuração e retorna seu valor descriptografado.
func GetSystemSetting(db *gorm.DB, key string) (string, error) {
	var setting SystemSetting
	if err := db.Where("key = ?", key).First(&setting).Error; err != nil {
		return "", err
	}
	return setting.GetDecryptedValue()
}

// GetSystemSettingOrDefault devolve fallback quando a chave não existe ou não pode ser lida.
func GetSystemSettingOrDefault(db *gorm.DB, key, fallback string) string {
	if db == nil {
		return fallback
	}
	v, err := GetSystemSetting(db, key)
	if err != nil || v == "" {
		return fallback
	}
	return v
}
