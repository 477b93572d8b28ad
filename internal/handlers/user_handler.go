package handlers

import (
	"net/http"

	"fsms/backend/internal/database"
	"fsms/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Register items at or above this score count as high in the personal summary.
const highRiskScore = 15

type UserDashboardSummaryResponse struct {
	OwnedRisksOpenCount     int64 `json:"owned_risks_open_count"`
	OwnedHighRisksOpenCount int64 `json:"owned_high_risks_open_count"`
	ReportedOpenNCCount     int64 `json:"reported_open_non_conformances_count"`
}

// GetUserDashboardSummaryHandler retorna um resumo de dados para o dashboard do usuário autenticado.
func GetUserDashboardSummaryHandler(c *gin.Context) {
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	userID := getUserID(c)
	if userID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}
	db := database.GetDB().WithContext(c.Request.Context())

	var summary UserDashboardSummaryResponse

	ownedOpen := db.Model(&models.RiskItem{}).
		Where("owner_id = ? AND organization_id = ? AND status <> ?", *userID, orgID, models.RiskItemStatusClosed)
	if err := ownedOpen.Count(&summary.OwnedRisksOpenCount).Error; err != nil {
		respondServiceError(c, err, "count owned risks")
		return
	}

	if err := db.Model(&models.RiskItem{}).
		Where("owner_id = ? AND organization_id = ? AND status <> ? AND risk_score >= ?",
			*userID, orgID, models.RiskItemStatusClosed, highRiskScore).
		Count(&summary.OwnedHighRisksOpenCount).Error; err != nil {
		respondServiceError(c, err, "count owned high risks")
		return
	}

	if err := db.Model(&models.NonConformance{}).
		Where("reported_by_id = ? AND organization_id = ? AND status <> ?", *userID, orgID, models.NCStatusClosed).
		Count(&summary.ReportedOpenNCCount).Error; err != nil {
		respondServiceError(c, err, "count reported non-conformances")
		return
	}

	c.JSON(http.StatusOK, summary)
}
