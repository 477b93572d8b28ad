package handlers

import (
	"net/http"
	"testing"

	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	"fsms/backend/pkg/features"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var escalationRuleColumns = []string{"id", "organization_id", "name", "trigger_condition", "trigger_value", "escalation_level", "escalation_timeframe", "recipients", "is_active"}

func float64Ptr(v float64) *float64 { return &v }

func TestCreateEscalationRuleHandler(t *testing.T) {
	router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleAdmin)
	router.POST("/escalation-rules", CreateEscalationRuleHandler)

	t.Run("Successful creation", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`INSERT INTO "escalation_rules"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodPost, "/escalation-rules", EscalationRulePayload{
			Name:             "Critical score",
			TriggerCondition: "risk_score",
			TriggerValue:     float64Ptr(3.5),
			EscalationLevel:  "executive",
			Recipients:       []string{" ceo@example.com", "", "qa_director"},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp EscalationRuleResponse
		decodeBody(t, rr, &resp)
		assert.Equal(t, []string{"ceo@example.com", "qa_director"}, resp.Recipients)
		assert.True(t, resp.IsActive, "rules are active unless stated otherwise")
		assert.Equal(t, 24, resp.EscalationTimeframe)
		assert.Equal(t, testOrgID, resp.OrganizationID)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Unknown trigger condition", func(t *testing.T) {
		rr := performJSON(router, http.MethodPost, "/escalation-rules", EscalationRulePayload{
			Name:             "Bad rule",
			TriggerCondition: "temperature",
			TriggerValue:     float64Ptr(1),
			EscalationLevel:  "manager",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Missing trigger value", func(t *testing.T) {
		rr := performJSON(router, http.MethodPost, "/escalation-rules", map[string]interface{}{
			"name":              "No value",
			"trigger_condition": "time_delay",
			"escalation_level":  "manager",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestTriggerEscalationRuleHandler(t *testing.T) {
	router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleManager)
	router.POST("/escalation-rules/:ruleId/trigger", TriggerEscalationRuleHandler)

	ruleID := uuid.New()
	ruleRows := func(active bool) *sqlmock.Rows {
		return sqlmock.NewRows(escalationRuleColumns).
			AddRow(ruleID.String(), testOrgID.String(), "Open for two days", "time_delay", 48.0, "manager", 24, "qa@example.com,plant_manager", active)
	}

	t.Run("Fires at the threshold", func(t *testing.T) {
		withFeatureToggles(t, map[string]bool{features.EscalationNotifications: true})
		dispatcher := &recordingDispatcher{}
		withNotifications(t, dispatcher, nil)

		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "escalation_rules" WHERE id = $1 AND organization_id = $2`)).
			WillReturnRows(ruleRows(true))
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`INSERT INTO "escalation_events"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodPost, "/escalation-rules/"+ruleID.String()+"/trigger", TriggerRulePayload{TriggerValue: float64Ptr(48)})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var body struct {
			Triggered    bool                           `json:"triggered"`
			Notification riskengine.NotificationRequest `json:"notification"`
		}
		decodeBody(t, rr, &body)
		assert.True(t, body.Triggered)
		assert.Equal(t, ruleID.String(), body.Notification.RuleID)
		assert.Equal(t, riskengine.EscalationManager, body.Notification.EscalationLevel)
		assert.Equal(t, []string{"qa@example.com", "plant_manager"}, body.Notification.Recipients)
		assert.Len(t, dispatcher.reqs, 1)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Below the threshold", func(t *testing.T) {
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "escalation_rules"`)).WillReturnRows(ruleRows(true))

		rr := performJSON(router, http.MethodPost, "/escalation-rules/"+ruleID.String()+"/trigger", TriggerRulePayload{TriggerValue: float64Ptr(47.9)})
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"triggered":false}`, rr.Body.String())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Inactive rules never fire", func(t *testing.T) {
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "escalation_rules"`)).WillReturnRows(ruleRows(false))

		rr := performJSON(router, http.MethodPost, "/escalation-rules/"+ruleID.String()+"/trigger", TriggerRulePayload{TriggerValue: float64Ptr(500)})
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"triggered":false}`, rr.Body.String())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Unknown rule", func(t *testing.T) {
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "escalation_rules"`)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rr := performJSON(router, http.MethodPost, "/escalation-rules/"+uuid.NewString()+"/trigger", TriggerRulePayload{TriggerValue: float64Ptr(1)})
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestDeleteEscalationRuleHandler(t *testing.T) {
	router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleAdmin)
	router.DELETE("/escalation-rules/:ruleId", DeleteEscalationRuleHandler)

	t.Run("Not found", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`DELETE FROM "escalation_rules"`)).WillReturnResult(sqlmock.NewResult(0, 0))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodDelete, "/escalation-rules/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Deleted", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`DELETE FROM "escalation_rules"`)).WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodDelete, "/escalation-rules/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}
