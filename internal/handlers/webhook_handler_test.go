package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"fsms/backend/internal/models"
	"fsms/backend/internal/notifications"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webhookColumns = []string{"id", "organization_id", "name", "url", "event_types", "is_active"}

func TestCreateWebhookHandler(t *testing.T) {
	validPayload := WebhookPayload{
		Name:       "QA escalations",
		URL:        "https://chat.example.com/v1/spaces/AAA/messages",
		EventTypes: []string{"escalation_triggered", "risk_assessed"},
	}

	t.Run("Organization mismatch", func(t *testing.T) {
		router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleAdmin)
		router.POST("/organizations/:orgId/webhooks", CreateWebhookHandler)

		rr := performJSON(router, http.MethodPost, "/organizations/"+uuid.NewString()+"/webhooks", validPayload)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Plain users cannot manage webhooks", func(t *testing.T) {
		router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleUser)
		router.POST("/organizations/:orgId/webhooks", CreateWebhookHandler)

		rr := performJSON(router, http.MethodPost, "/organizations/"+testOrgID.String()+"/webhooks", validPayload)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "insufficient privileges")
	})

	t.Run("Unknown event type", func(t *testing.T) {
		router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleManager)
		router.POST("/organizations/:orgId/webhooks", CreateWebhookHandler)

		payload := validPayload
		payload.EventTypes = []string{"risk_created"}
		rr := performJSON(router, http.MethodPost, "/organizations/"+testOrgID.String()+"/webhooks", payload)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Successful creation", func(t *testing.T) {
		router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleManager)
		router.POST("/organizations/:orgId/webhooks", CreateWebhookHandler)

		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(escapeSQL(`INSERT INTO "webhook_configurations"`)).WillReturnResult(sqlmock.NewResult(1, 1))
		sqlMock.ExpectCommit()

		rr := performJSON(router, http.MethodPost, "/organizations/"+testOrgID.String()+"/webhooks", validPayload)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var resp struct {
			ID         uuid.UUID `json:"id"`
			IsActive   bool      `json:"is_active"`
			EventTypes []string  `json:"event_types"`
		}
		decodeBody(t, rr, &resp)
		assert.NotEqual(t, uuid.Nil, resp.ID)
		assert.True(t, resp.IsActive)
		assert.Equal(t, []string{"escalation_triggered", "risk_assessed"}, resp.EventTypes)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestSendTestWebhookHandler(t *testing.T) {
	router := getRouterWithAuthenticatedContext(testUserID, testOrgID, models.RoleUser)
	router.POST("/organizations/:orgId/webhooks/:webhookId/test", SendTestWebhookHandler)

	webhookID := uuid.New()
	path := "/organizations/" + testOrgID.String() + "/webhooks/" + webhookID.String() + "/test"

	original := webhookTestSender
	webhookTestSender = notifications.NewWebhookSender()
	t.Cleanup(func() { webhookTestSender = original })

	t.Run("Delivered", func(t *testing.T) {
		var hits int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "webhook_configurations" WHERE id = $1 AND organization_id = $2`)).
			WillReturnRows(sqlmock.NewRows(webhookColumns).AddRow(webhookID.String(), testOrgID.String(), "QA chat", server.URL, "risk_assessed", true))

		rr := performJSON(router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Rejected by the receiver", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "webhook_configurations"`)).
			WillReturnRows(sqlmock.NewRows(webhookColumns).AddRow(webhookID.String(), testOrgID.String(), "QA chat", server.URL, "risk_assessed", true))

		rr := performJSON(router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("Unknown webhook", func(t *testing.T) {
		sqlMock.ExpectQuery(escapeSQL(`SELECT * FROM "webhook_configurations"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rr := performJSON(router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}
