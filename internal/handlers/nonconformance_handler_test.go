package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"fsms/backend/internal/escalation"
	"fsms/backend/internal/models"
	"fsms/backend/internal/notifications"
	"fsms/backend/internal/riskengine"
	"fsms/backend/pkg/features"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	reqs []riskengine.NotificationRequest
}

func (d *recordingDispatcher) DispatchEscalation(_ context.Context, _ uuid.UUID, req riskengine.NotificationRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reqs = append(d.reqs, req)
	return nil
}

type channelPublisher struct {
	events chan notifications.RiskAssessedSummary
}

func (p *channelPublisher) DispatchRiskAssessed(_ context.Context, _ uuid.UUID, summary notifications.RiskAssessedSummary) error {
	p.events <- summary
	return nil
}

func withNotifications(t *testing.T, dispatcher escalation.Dispatcher, publisher RiskAssessedPublisher) {
	t.Helper()
	ConfigureNotifications(dispatcher, publisher)
	t.Cleanup(func() { ConfigureNotifications(nil, nil) })
}

var ncColumns = []string{"id", "organization_id", "title", "severity", "status", "reported_at"}

var mixedImpacts = NCRiskAssessmentPayload{
	FoodSafetyImpact: "critical",
	RegulatoryImpact: "High",
	CustomerImpact:   "medium",
	BusinessImpact:   "LOW",
}

func TestCreateNonConformanceHandler(t *testing.T) {
	router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleUser)
	router.POST("/non-conformances", CreateNonConformanceHandler)

	t.Run("Successful creation", func(t *testing.T) {
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`INSERT INTO "non_conformances"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodPost, "/non-conformances", NonConformancePayload{
			Title:    "Chiller temperature excursion",
			Source:   "haccp_monitoring",
			Severity: "high",
		})
		assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var nc models.NonConformance
		decodeBody(t, rr, &nc)
		assert.Equal(t, models.NCStatusOpen, nc.Status)
		assert.False(t, nc.ReportedAt.IsZero())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Unknown severity", func(t *testing.T) {
		rr := performJSON(router, http.MethodPost, "/non-conformances", NonConformancePayload{
			Title: "Chiller temperature excursion", Severity: "severe",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAssessNonConformanceRiskHandler(t *testing.T) {
	router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleManager)
	router.POST("/non-conformances/:ncId/risk-assessments", AssessNonConformanceRiskHandler)

	t.Run("Weighted score without auto escalation", func(t *testing.T) {
		withFeatureToggles(t, map[string]bool{})
		publisher := &channelPublisher{events: make(chan notifications.RiskAssessedSummary, 1)}
		withNotifications(t, nil, publisher)

		ncID := uuid.New()
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "non_conformances" WHERE id = $1 AND organization_id = $2`)).
			WillReturnRows(sqlmock.NewRows(ncColumns).AddRow(ncID.String(), testOrgID.String(), "Foreign body", "high", "open", time.Now()))
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`INSERT INTO "nc_risk_assessments"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodPost, "/non-conformances/"+ncID.String()+"/risk-assessments", mixedImpacts)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp NCRiskAssessmentResponse
		decodeBody(t, rr, &resp)
		require.NotNil(t, resp.Assessment)
		// 4*0.4 + 3*0.3 + 2*0.2 + 1*0.1
		assert.InDelta(t, 3.0, resp.Assessment.OverallRiskScore, 0.0001)
		assert.Equal(t, "high", resp.Assessment.RiskLevel)
		assert.True(t, resp.Assessment.RequiresEscalation)
		if assert.NotNil(t, resp.Assessment.EscalationLevel) {
			assert.Equal(t, "director", *resp.Assessment.EscalationLevel)
		}
		assert.Equal(t, "high", resp.Assessment.RegulatoryImpact, "impacts are stored normalised")
		assert.Empty(t, resp.Escalations)
		assert.NoError(t, sqlMock.ExpectationsWereMet())

		select {
		case summary := <-publisher.events:
			assert.Equal(t, "non_conformance", summary.Domain)
			assert.Equal(t, ncID.String(), summary.SubjectID)
			assert.Equal(t, "high", summary.RiskLevel)
		case <-time.After(2 * time.Second):
			t.Fatal("risk_assessed event was not published")
		}
	})

	t.Run("Unknown impact level", func(t *testing.T) {
		payload := mixedImpacts
		payload.CustomerImpact = "severe"
		rr := performJSON(router, http.MethodPost, "/non-conformances/"+uuid.NewString()+"/risk-assessments", payload)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "customer_impact")
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Non-conformance not found", func(t *testing.T) {
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "non_conformances"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rr := performJSON(router, http.MethodPost, "/non-conformances/"+uuid.NewString()+"/risk-assessments", mixedImpacts)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Auto escalation fires matching rules", func(t *testing.T) {
		withFeatureToggles(t, map[string]bool{
			features.AutoEscalation:          true,
			features.EscalationNotifications: true,
		})
		dispatcher := &recordingDispatcher{}
		withNotifications(t, dispatcher, nil)

		ncID, ruleID := uuid.New(), uuid.New()
		reported := time.Now().UTC().Add(-time.Hour)
		ncRow := func() *sqlmock.Rows {
			return sqlmock.NewRows(ncColumns).AddRow(ncID.String(), testOrgID.String(), "Foreign body", "high", "open", reported)
		}

		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "non_conformances"`)).WillReturnRows(ncRow())
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`INSERT INTO "nc_risk_assessments"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		sqlMock.ExpectCommit()

		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "non_conformances"`)).WillReturnRows(ncRow())
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "nc_risk_assessments"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "non_conformance_id", "overall_risk_score"}).
				AddRow(uuid.New().String(), testOrgID.String(), ncID.String(), 3.0))
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "escalation_rules" WHERE organization_id = $1 AND is_active = $2`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "trigger_condition", "trigger_value", "escalation_level", "escalation_timeframe", "recipients", "is_active"}).
				AddRow(ruleID.String(), testOrgID.String(), "Score at 3", "risk_score", 3.0, "director", 4, "qa.director@example.com", true).
				AddRow(uuid.New().String(), testOrgID.String(), "Open for two days", "time_delay", 48.0, "manager", 24, "qa@example.com", true))
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`INSERT INTO "escalation_events"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodPost, "/non-conformances/"+ncID.String()+"/risk-assessments", mixedImpacts)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp NCRiskAssessmentResponse
		decodeBody(t, rr, &resp)
		require.Len(t, resp.Escalations, 1)
		assert.Equal(t, ruleID.String(), resp.Escalations[0].RuleID)
		assert.Equal(t, ncID.String(), resp.Escalations[0].SubjectID)
		require.Len(t, dispatcher.reqs, 1)
		assert.Equal(t, riskengine.EscalationDirector, dispatcher.reqs[0].EscalationLevel)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestEvaluateNonConformanceEscalationsHandler(t *testing.T) {
	router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleManager)
	router.POST("/non-conformances/:ncId/escalations/evaluate", EvaluateNonConformanceEscalationsHandler)

	t.Run("Missing non-conformance yields an empty result", func(t *testing.T) {
		withNotifications(t, nil, nil)
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "non_conformances"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rr := performJSON(router, http.MethodPost, "/non-conformances/"+uuid.NewString()+"/escalations/evaluate", nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		var body struct {
			Triggered   int                              `json:"triggered"`
			Escalations []riskengine.NotificationRequest `json:"escalations"`
		}
		decodeBody(t, rr, &body)
		assert.Equal(t, 0, body.Triggered)
		assert.NotNil(t, body.Escalations)
		assert.Empty(t, body.Escalations)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}
