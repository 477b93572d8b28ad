package features

import (
	"strings"

	"fsms/backend/pkg/config"
)

const (
	// AutoEscalation avalia as regras de escalonamento logo após uma avaliação de risco de não conformidade.
	AutoEscalation = "AUTO_ESCALATION"
	// EscalationNotifications habilita o envio real (webhook/e-mail) das escalações disparadas.
	EscalationNotifications = "ESCALATION_NOTIFICATIONS"
)

// IsEnabled verifica se um feature toggle está habilitado.
// A busca é case-insensitive; toggles não definidos são considerados desabilitados.
func IsEnabled(featureName string) bool {
	enabled, _ := GetFeatureToggleState(featureName)
	return enabled
}

// GetFeatureToggleState retorna o estado de um toggle e se ele foi configurado,
// permitindo distinguir uma feature explicitamente desabilitada de uma não configurada.
func GetFeatureToggleState(featureName string) (enabled bool, exists bool) {
	if config.Cfg.FeatureToggles == nil {
		return false, false
	}
	enabled, exists = config.Cfg.FeatureToggles[strings.ToUpper(featureName)]
	return enabled, exists
}
