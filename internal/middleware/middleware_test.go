package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	phxmetrics "fsms/backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinZapAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	router := gin.New()
	router.Use(RequestID(), GinZap(logger, "", true))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req, _ := http.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", rr.Header().Get(RequestIDHeader))

	req, _ = http.NewRequest(http.MethodGet, "/missing", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Request processed", entries[0].Message)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "Client error", entries[1].Message)
}

func TestGinRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(GinRecovery(zap.New(core), true))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	req, _ := http.NewRequest(http.MethodGet, "/panic", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Panic Recovered")
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestMetrics(t *testing.T) {
	router := gin.New()
	router.Use(Metrics())
	router.GET("/api/v1/escalation-rules/:ruleId", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := phxmetrics.HTTPRequestCounter.WithLabelValues(http.MethodGet, "/api/v1/escalation-rules/:ruleId", "200")
	read := func() float64 {
		var m dto.Metric
		require.NoError(t, counter.Write(&m))
		return m.GetCounter().GetValue()
	}
	before := read()

	req, _ := http.NewRequest(http.MethodGet, "/api/v1/escalation-rules/abc", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, before+1, read(), "route template is used as the path label")
}
