package metrics

import (
	"fsms/backend/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestCounter conta o total de requisições HTTP.
	HTTPRequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsms_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestDuration observa a duração das requisições HTTP.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fsms_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RiskAssessmentsTotal conta avaliações de risco calculadas, por domínio (non_conformance, audit, finding) e nível.
	RiskAssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsms_risk_assessments_total",
			Help: "Total number of risk assessments computed, by domain and resulting level.",
		},
		[]string{"domain", "level"},
	)

	// EscalationsTriggeredTotal conta escalações disparadas por nível organizacional.
	EscalationsTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsms_escalations_triggered_total",
			Help: "Total number of escalations triggered, by escalation level.",
		},
		[]string{"level"},
	)

	// NotificationsSentTotal conta tentativas de notificação por canal (webhook, email) e resultado.
	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsms_notifications_sent_total",
			Help: "Total number of escalation notifications attempted, by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	// AppInfo expõe informações sobre a aplicação.
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fsms_app_info",
			Help: "Information about the FSMS backend.",
		},
		[]string{"version"},
	)
)

// RecordRiskAssessment incrementa o contador de avaliações para o domínio e nível.
func RecordRiskAssessment(domain, level string) {
	RiskAssessmentsTotal.WithLabelValues(domain, level).Inc()
}

// RecordEscalation incrementa o contador de escalações disparadas.
func RecordEscalation(level string) {
	EscalationsTriggeredTotal.WithLabelValues(level).Inc()
}

// RecordNotification registra o resultado de uma tentativa de notificação.
func RecordNotification(channel string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	NotificationsSentTotal.WithLabelValues(channel, outcome).Inc()
}

func init() {
	AppInfo.With(prometheus.Labels{"version": config.Cfg.AppVersion}).Set(1)
}
