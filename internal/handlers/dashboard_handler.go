package handlers

import (
	"net/http"
	"strconv"
	"time"

	"fsms/backend/internal/database"
	"fsms/backend/internal/models"
	"fsms/backend/internal/riskengine"
	"fsms/backend/internal/risklogic"

	"github.com/gin-gonic/gin"
)

// LevelCount is one bar of a level histogram.
type LevelCount struct {
	Level string `json:"level"`
	Count int64  `json:"count"`
}

// RiskOverview resume a situação de risco da organização.
type RiskOverview struct {
	Audits              risklogic.AggregateResult `json:"audits"`
	Findings            risklogic.AggregateResult `json:"findings"`
	NonConformanceLevel []LevelCount              `json:"non_conformance_levels"`
	RegisterTotal       int64                     `json:"register_total"`
	RegisterAcceptable  int64                     `json:"register_acceptable"`
	RegisterAcceptance  float64                   `json:"register_acceptance_rate"`
}

// GetRiskOverviewHandler aggregates audit and finding assessments, counts the latest
// non-conformance levels and reports register acceptability. ?days=N limits the
// audit window (default: all time).
func GetRiskOverviewHandler(c *gin.Context) {
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	var since time.Time
	if daysStr := c.Query("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days, must be a positive integer"})
			return
		}
		since = time.Now().UTC().AddDate(0, 0, -days)
	}

	ctx := c.Request.Context()
	db := database.GetDB()
	var overview RiskOverview
	var err error

	overview.Audits, err = risklogic.AggregateAuditRisk(ctx, db, orgID, risklogic.AggregateFilter{SubjectType: models.SubjectAudit, Since: since})
	if err != nil {
		respondServiceError(c, err, "aggregate audit risk")
		return
	}
	overview.Findings, err = risklogic.AggregateAuditRisk(ctx, db, orgID, risklogic.AggregateFilter{SubjectType: models.SubjectFinding, Since: since})
	if err != nil {
		respondServiceError(c, err, "aggregate finding risk")
		return
	}

	// Apenas a avaliação mais recente de cada não conformidade conta.
	if err := db.WithContext(ctx).Raw(`
		SELECT risk_level AS level, COUNT(*) AS count FROM (
			SELECT DISTINCT ON (non_conformance_id) risk_level
			FROM nc_risk_assessments
			WHERE organization_id = ?
			ORDER BY non_conformance_id, created_at DESC, id DESC
		) latest
		GROUP BY risk_level`, orgID).Scan(&overview.NonConformanceLevel).Error; err != nil {
		respondServiceError(c, err, "count non-conformance risk levels")
		return
	}

	registerQuery := db.WithContext(ctx).Model(&models.RiskItem{}).Where("organization_id = ?", orgID)
	if err := registerQuery.Count(&overview.RegisterTotal).Error; err != nil {
		respondServiceError(c, err, "count register")
		return
	}
	if err := db.WithContext(ctx).Model(&models.RiskItem{}).
		Where("organization_id = ? AND risk_acceptable = ?", orgID, true).
		Count(&overview.RegisterAcceptable).Error; err != nil {
		respondServiceError(c, err, "count acceptable risks")
		return
	}
	overview.RegisterAcceptance = riskengine.ComplianceRate(int(overview.RegisterAcceptable), int(overview.RegisterTotal))

	c.JSON(http.StatusOK, overview)
}

// EscalationSummary conta escalações recentes por nível.
type EscalationSummary struct {
	Days        int          `json:"days"`
	Total       int64        `json:"total"`
	ByLevel     []LevelCount `json:"by_level"`
	ActiveRules int64        `json:"active_rules"`
}

// GetEscalationSummaryHandler counts escalation events of the last ?days=N days (default 30).
func GetEscalationSummaryHandler(c *gin.Context) {
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		v, err := strconv.Atoi(daysStr)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days, must be a positive integer"})
			return
		}
		days = v
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	db := database.GetDB().WithContext(c.Request.Context())
	summary := EscalationSummary{Days: days, ByLevel: []LevelCount{}}
	if err := db.Model(&models.EscalationEvent{}).
		Select("escalation_level AS level, COUNT(*) AS count").
		Where("organization_id = ? AND created_at >= ?", orgID, since).
		Group("escalation_level").
		Scan(&summary.ByLevel).Error; err != nil {
		respondServiceError(c, err, "summarize escalations")
		return
	}
	for _, lc := range summary.ByLevel {
		summary.Total += lc.Count
	}

	if err := db.Model(&models.EscalationRule{}).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Count(&summary.ActiveRules).Error; err != nil {
		respondServiceError(c, err, "count active rules")
		return
	}
	c.JSON(http.StatusOK, summary)
}
