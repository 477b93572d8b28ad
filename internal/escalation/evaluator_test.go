package escalation

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	phxlog "fsms/backend/pkg/log"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	reqs []riskengine.NotificationRequest
	err  error
}

func (d *recordingDispatcher) DispatchEscalation(_ context.Context, _ uuid.UUID, req riskengine.NotificationRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reqs = append(d.reqs, req)
	return d.err
}

func newTestEvaluator(t *testing.T, dispatcher Dispatcher, notify bool) (*Evaluator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return &Evaluator{
		db:         gdb,
		dispatcher: dispatcher,
		logger:     phxlog.L.Named("escalation-test"),
		notify:     func() bool { return notify },
	}, mock
}

var ruleColumns = []string{"id", "organization_id", "name", "trigger_condition", "trigger_value", "escalation_level", "escalation_timeframe", "recipients", "is_active"}

func TestEvaluateNonConformance(t *testing.T) {
	ctx := context.Background()
	orgID, ncID := uuid.New(), uuid.New()
	reported := time.Date(2026, 5, 4, 6, 0, 0, 0, time.UTC)
	now := reported.Add(30 * time.Hour)
	scoreRuleID, delayRuleID, severityRuleID := uuid.New(), uuid.New(), uuid.New()

	t.Run("Fires matching rules and dispatches them", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		ev, mock := newTestEvaluator(t, dispatcher, true)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "non_conformances" WHERE id = $1 AND organization_id = $2`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "title", "severity", "status", "reported_at"}).
				AddRow(ncID.String(), orgID.String(), "Foreign body found", "high", "open", reported))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "nc_risk_assessments"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "non_conformance_id", "overall_risk_score"}).
				AddRow(uuid.New().String(), orgID.String(), ncID.String(), 3.2))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "escalation_rules" WHERE organization_id = $1 AND is_active = $2`)).
			WillReturnRows(sqlmock.NewRows(ruleColumns).
				AddRow(scoreRuleID.String(), orgID.String(), "Score over 3", "risk_score", 3.0, "director", 4, "qa.director@example.com, plant.manager@example.com", true).
				AddRow(delayRuleID.String(), orgID.String(), "Open for two days", "time_delay", 48.0, "manager", 24, "qa@example.com", true).
				AddRow(severityRuleID.String(), orgID.String(), "High severity", "severity_level", 3.0, "manager", 8, "", true))
		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "escalation_events"`)).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()
		}

		fired, err := ev.EvaluateNonConformance(ctx, orgID, ncID, now)
		require.NoError(t, err)
		require.Len(t, fired, 2)
		assert.Equal(t, scoreRuleID.String(), fired[0].RuleID)
		assert.Equal(t, 3.2, fired[0].TriggerValue)
		assert.Equal(t, []string{"qa.director@example.com", "plant.manager@example.com"}, fired[0].Recipients)
		assert.Equal(t, ncID.String(), fired[0].SubjectID)
		assert.Equal(t, severityRuleID.String(), fired[1].RuleID)
		assert.Equal(t, 3.0, fired[1].TriggerValue)
		assert.Len(t, dispatcher.reqs, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Risk score rules do not fire without an assessment", func(t *testing.T) {
		dispatcher := &recordingDispatcher{}
		ev, mock := newTestEvaluator(t, dispatcher, false)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "non_conformances"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "title", "severity", "status", "reported_at"}).
				AddRow(ncID.String(), orgID.String(), "Foreign body found", "low", "open", reported))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "nc_risk_assessments"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "escalation_rules"`)).
			WillReturnRows(sqlmock.NewRows(ruleColumns).
				AddRow(scoreRuleID.String(), orgID.String(), "Score over 1", "risk_score", 1.0, "supervisor", 4, "qa@example.com", true))

		fired, err := ev.EvaluateNonConformance(ctx, orgID, ncID, now)
		require.NoError(t, err)
		assert.NotNil(t, fired)
		assert.Empty(t, fired)
		assert.Empty(t, dispatcher.reqs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing non-conformance yields an empty result", func(t *testing.T) {
		ev, mock := newTestEvaluator(t, nil, true)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "non_conformances"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		fired, err := ev.EvaluateNonConformance(ctx, orgID, ncID, now)
		assert.NoError(t, err)
		assert.NotNil(t, fired)
		assert.Empty(t, fired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTriggerRule(t *testing.T) {
	ctx := context.Background()
	orgID, ruleID := uuid.New(), uuid.New()

	ruleRow := func(active bool) *sqlmock.Rows {
		return sqlmock.NewRows(ruleColumns).
			AddRow(ruleID.String(), orgID.String(), "Score over 3", "risk_score", 3.0, "executive", 2, "ceo@example.com", active)
	}

	t.Run("Value at threshold fires", func(t *testing.T) {
		dispatcher := &recordingDispatcher{err: errors.New("webhook down")}
		ev, mock := newTestEvaluator(t, dispatcher, true)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "escalation_rules" WHERE id = $1 AND organization_id = $2`)).
			WillReturnRows(ruleRow(true))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "escalation_events"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		req, err := ev.TriggerRule(ctx, orgID, ruleID, 3.0)
		require.NoError(t, err, "dispatch failures are logged, not returned")
		require.NotNil(t, req)
		assert.Equal(t, riskengine.EscalationExecutive, req.EscalationLevel)
		assert.Equal(t, 2, req.EscalationTimeframe)
		assert.Equal(t, []string{"ceo@example.com"}, req.Recipients)
		assert.Len(t, dispatcher.reqs, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Value below threshold does not fire", func(t *testing.T) {
		ev, mock := newTestEvaluator(t, nil, true)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "escalation_rules"`)).WillReturnRows(ruleRow(true))

		req, err := ev.TriggerRule(ctx, orgID, ruleID, 2.99)
		assert.NoError(t, err)
		assert.Nil(t, req)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Inactive rule does not fire", func(t *testing.T) {
		ev, mock := newTestEvaluator(t, nil, true)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "escalation_rules"`)).WillReturnRows(ruleRow(false))

		req, err := ev.TriggerRule(ctx, orgID, ruleID, 4.0)
		assert.NoError(t, err)
		assert.Nil(t, req)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown rule", func(t *testing.T) {
		ev, mock := newTestEvaluator(t, nil, true)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "escalation_rules"`)).WillReturnRows(sqlmock.NewRows(ruleColumns))

		_, err := ev.TriggerRule(ctx, orgID, ruleID, 4.0)
		assert.True(t, errors.Is(err, ErrEscalationRuleNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "manager"}, SplitRecipients(" a@example.com, ,manager "))
	assert.Nil(t, SplitRecipients(""))
	assert.Equal(t, "a@example.com,b@example.com", JoinRecipients([]string{" a@example.com", "", "b@example.com "}))

	rule := ToEngineRule(models.EscalationRule{TriggerCondition: "time_delay", TriggerValue: 48, EscalationLevel: "manager", IsActive: true})
	assert.Equal(t, riskengine.TriggerTimeDelay, rule.TriggerCondition)
	assert.Empty(t, rule.Recipients)
}
