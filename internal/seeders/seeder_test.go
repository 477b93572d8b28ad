package seeders

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return db, mock
}

func TestLoadEscalationRulesDefaults(t *testing.T) {
	rules, err := LoadEscalationRules("")
	require.NoError(t, err)
	require.Len(t, rules, 5)
	assert.Equal(t, "Critical weighted risk", rules[0].Name)
	assert.Equal(t, 3.5, rules[0].TriggerValue)
	assert.Equal(t, []string{"plant_director", "qa_director"}, rules[0].Recipients)
}

func TestLoadEscalationRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - name: Allergen line hold
    trigger_condition: severity_level
    trigger_value: 3
    escalation_level: director
    recipients: [allergen.lead@example.com]
`), 0o600))

	rules, err := LoadEscalationRules(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "director", rules[0].EscalationLevel)

	_, err = LoadEscalationRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseEscalationRulesValidation(t *testing.T) {
	testCases := []struct {
		name    string
		yaml    string
		errPart string
	}{
		{"unknown condition", "rules:\n  - {name: x, trigger_condition: temperature, trigger_value: 1, escalation_level: manager}\n", "trigger_condition"},
		{"unknown level", "rules:\n  - {name: x, trigger_condition: time_delay, trigger_value: 1, escalation_level: ceo}\n", "escalation_level"},
		{"missing name", "rules:\n  - {trigger_condition: time_delay, trigger_value: 1, escalation_level: manager}\n", "name is required"},
		{"negative value", "rules:\n  - {name: x, trigger_condition: risk_score, trigger_value: -1, escalation_level: manager}\n", "trigger_value"},
		{"not yaml", "rules: [", "parse escalation rules"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEscalationRules([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}
}

func TestSeedEscalationRules(t *testing.T) {
	orgID := uuid.New()
	specs := []RuleSpec{
		{Name: "Open for two days", TriggerCondition: "time_delay", TriggerValue: 48, EscalationLevel: "manager", Recipients: []string{"qa@example.com"}},
		{Name: "High weighted risk", TriggerCondition: "risk_score", TriggerValue: 3, EscalationLevel: "director", EscalationTimeframe: 4},
	}

	t.Run("Creates rules for a new organization", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "escalation_rules" WHERE organization_id = $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "escalation_rules"`)).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		n, err := SeedEscalationRules(db, orgID, specs)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Leaves existing rules alone", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "escalation_rules"`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		n, err := SeedEscalationRules(db, orgID, specs)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
