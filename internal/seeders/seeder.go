package seeders

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"fsms/backend/internal/database"
	"fsms/backend/internal/escalation"
	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	"fsms/backend/pkg/config"
	phxlog "fsms/backend/pkg/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed defaults/escalation_rules.yaml
var defaultEscalationRulesYAML []byte

// RuleSpec é uma regra de escalação como aparece no arquivo YAML.
type RuleSpec struct {
	Name                string   `yaml:"name"`
	TriggerCondition    string   `yaml:"trigger_condition"`
	TriggerValue        float64  `yaml:"trigger_value"`
	EscalationLevel     string   `yaml:"escalation_level"`
	EscalationTimeframe int      `yaml:"escalation_timeframe"`
	Recipients          []string `yaml:"recipients"`
}

type ruleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

func (r RuleSpec) validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !riskengine.TriggerCondition(r.TriggerCondition).Valid() {
		return fmt.Errorf("unknown trigger_condition %q", r.TriggerCondition)
	}
	if !riskengine.EscalationLevel(r.EscalationLevel).Valid() {
		return fmt.Errorf("unknown escalation_level %q", r.EscalationLevel)
	}
	if r.TriggerValue < 0 {
		return errors.New("trigger_value must not be negative")
	}
	if r.EscalationTimeframe < 0 {
		return errors.New("escalation_timeframe must not be negative")
	}
	return nil
}

// ParseEscalationRules decodes and validates a rule file.
func ParseEscalationRules(data []byte) ([]RuleSpec, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse escalation rules: %w", err)
	}
	for i, r := range f.Rules {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("escalation rule %d (%s): %w", i+1, r.Name, err)
		}
	}
	return f.Rules, nil
}

// LoadEscalationRules lê as regras de path, ou as regras embutidas quando path é vazio.
func LoadEscalationRules(path string) ([]RuleSpec, error) {
	data := defaultEscalationRulesYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read escalation rules file: %w", err)
		}
	}
	return ParseEscalationRules(data)
}

// SeedEscalationRules cria as regras para a organização. Organizações que já
// possuem regras não são alteradas.
func SeedEscalationRules(db *gorm.DB, orgID uuid.UUID, specs []RuleSpec) (int, error) {
	var existing int64
	if err := db.Model(&models.EscalationRule{}).Where("organization_id = ?", orgID).Count(&existing).Error; err != nil {
		return 0, fmt.Errorf("count escalation rules: %w", err)
	}
	if existing > 0 {
		phxlog.L.Info("Organization already has escalation rules, skipping seed",
			zap.String("organizationID", orgID.String()), zap.Int64("existing", existing))
		return 0, nil
	}

	rules := make([]models.EscalationRule, 0, len(specs))
	for _, s := range specs {
		timeframe := s.EscalationTimeframe
		if timeframe == 0 {
			timeframe = 24
		}
		rules = append(rules, models.EscalationRule{
			OrganizationID:      orgID,
			Name:                s.Name,
			TriggerCondition:    s.TriggerCondition,
			TriggerValue:        s.TriggerValue,
			EscalationLevel:     s.EscalationLevel,
			EscalationTimeframe: timeframe,
			Recipients:          escalation.JoinRecipients(s.Recipients),
			IsActive:            true,
		})
	}
	if len(rules) == 0 {
		return 0, nil
	}
	if err := db.Create(&rules).Error; err != nil {
		return 0, fmt.Errorf("create escalation rules: %w", err)
	}
	return len(rules), nil
}

// SeedOrganization popula uma organização recém criada com as regras padrão
// (ou as de ESCALATION_RULES_FILE).
func SeedOrganization(db *gorm.DB, orgID uuid.UUID) error {
	log := phxlog.L.Named("SeedOrganization")
	specs, err := LoadEscalationRules(config.Cfg.EscalationRulesFile)
	if err != nil {
		log.Error("Failed to load escalation rules", zap.Error(err))
		return err
	}
	n, err := SeedEscalationRules(db, orgID, specs)
	if err != nil {
		log.Error("Failed to seed escalation rules", zap.Error(err))
		return err
	}
	log.Info("Escalation rules seeded", zap.String("organizationID", orgID.String()), zap.Int("rules", n))
	return nil
}

// SeedInitialData popula o banco de dados com dados iniciais essenciais.
func SeedInitialData(db *gorm.DB) error {
	log := phxlog.L.Named("SeedInitialData")
	log.Info("Seeding initial data...")

	if err := seedSystemSettings(db); err != nil {
		log.Error("Failed to seed system settings", zap.Error(err))
		return err
	}

	log.Info("Initial data seeding completed successfully.")
	return nil
}

// seedSystemSettings garante que as configurações padrão do sistema existam no banco.
func seedSystemSettings(db *gorm.DB) error {
	settings := []models.SystemSetting{
		{
			Key:         models.SettingEscalationFromName,
			Value:       "FSMS Escalations",
			Description: "Nome exibido no remetente dos e-mails de escalação.",
		},
	}
	if config.Cfg.AWSSESEmailSender != "" {
		settings = append(settings, models.SystemSetting{
			Key:         models.SettingSESEmailSender,
			Value:       config.Cfg.AWSSESEmailSender,
			Description: "Endereço verificado no SES usado como remetente.",
			IsEncrypted: true,
		})
	}

	for _, setting := range settings {
		var existing models.SystemSetting
		err := db.Where("key = ?", setting.Key).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&setting).Error; err != nil {
			return err
		}
	}
	return nil
}

// FullSetup aplica as migrações e o seeding global. Útil para o comando de setup CLI.
func FullSetup(db *gorm.DB, migrationsSource string) error {
	if err := database.MigrateDB(migrationsSource); err != nil {
		return err
	}
	return SeedInitialData(db)
}
