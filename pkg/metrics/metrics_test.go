package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordHelpers(t *testing.T) {
	before := counterValue(t, RiskAssessmentsTotal.WithLabelValues("finding", "critical"))
	RecordRiskAssessment("finding", "critical")
	assert.Equal(t, before+1, counterValue(t, RiskAssessmentsTotal.WithLabelValues("finding", "critical")))

	beforeEsc := counterValue(t, EscalationsTriggeredTotal.WithLabelValues("director"))
	RecordEscalation("director")
	assert.Equal(t, beforeEsc+1, counterValue(t, EscalationsTriggeredTotal.WithLabelValues("director")))

	beforeFail := counterValue(t, NotificationsSentTotal.WithLabelValues("webhook", "failure"))
	beforeOK := counterValue(t, NotificationsSentTotal.WithLabelValues("webhook", "success"))
	RecordNotification("webhook", errors.New("boom"))
	RecordNotification("webhook", nil)
	assert.Equal(t, beforeFail+1, counterValue(t, NotificationsSentTotal.WithLabelValues("webhook", "failure")))
	assert.Equal(t, beforeOK+1, counterValue(t, NotificationsSentTotal.WithLabelValues("webhook", "success")))
}
