package handlers

import (
	"errors"
	"net/http"

	"fsms/backend/internal/database"
	"fsms/backend/internal/models"
	"fsms/backend/internal/risklogic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RiskPayload defines the structure for creating or updating a register item.
// Likelihood and severity are validated by risklogic.ScoreRiskItem.
type RiskPayload struct {
	Title             string                `json:"title" binding:"required,min=3,max=255"`
	Description       string                `json:"description"`
	Category          string                `json:"category" binding:"required,max=50"`
	BusinessUnit      string                `json:"business_unit" binding:"max=100"`
	ProjectID         string                `json:"project_id"`
	Likelihood        int                   `json:"likelihood" binding:"required"`
	Severity          int                   `json:"severity" binding:"required"`
	Status            models.RiskItemStatus `json:"status" binding:"omitempty,oneof=identified mitigating monitored closed"`
	RiskAcceptable    bool                  `json:"risk_acceptable"`
	CascadeEffect     bool                  `json:"cascade_effect"`
	AmplificationRisk bool                  `json:"amplification_risk"`
	OwnerID           string                `json:"owner_id"`
}

func (p RiskPayload) apply(item *models.RiskItem, defaultOwner *uuid.UUID) error {
	item.Title = p.Title
	item.Description = p.Description
	item.Category = p.Category
	item.BusinessUnit = p.BusinessUnit
	item.Likelihood = p.Likelihood
	item.Severity = p.Severity
	item.RiskAcceptable = p.RiskAcceptable
	item.CascadeEffect = p.CascadeEffect
	item.AmplificationRisk = p.AmplificationRisk
	if p.Status != "" {
		item.Status = p.Status
	}
	if item.Status == "" {
		item.Status = models.RiskItemStatusIdentified
	}

	item.ProjectID = nil
	if p.ProjectID != "" {
		projectID, err := uuid.Parse(p.ProjectID)
		if err != nil {
			return errors.New("invalid project_id format")
		}
		item.ProjectID = &projectID
	}

	if p.OwnerID != "" {
		ownerID, err := uuid.Parse(p.OwnerID)
		if err != nil {
			return errors.New("invalid owner_id format")
		}
		item.OwnerID = &ownerID
	} else if item.OwnerID == nil {
		item.OwnerID = defaultOwner
	}
	return nil
}

// CreateRiskHandler handles the creation of a new register item.
func CreateRiskHandler(c *gin.Context) {
	var payload RiskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	item := models.RiskItem{OrganizationID: orgID}
	if err := payload.apply(&item, getUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := risklogic.ScoreRiskItem(&item); err != nil {
		respondServiceError(c, err, "create risk")
		return
	}

	if err := database.GetDB().WithContext(c.Request.Context()).Create(&item).Error; err != nil {
		respondServiceError(c, err, "create risk")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// GetRiskHandler handles fetching a single register item by its ID.
func GetRiskHandler(c *gin.Context) {
	riskID, ok := parseUUIDParam(c, "riskId", "risk")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	item, err := risklogic.FindRiskItem(c.Request.Context(), database.GetDB(), orgID, riskID)
	if err != nil {
		respondServiceError(c, err, "fetch risk")
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListRisksHandler lists the organization's register, optionally filtered by category or status.
func ListRisksHandler(c *gin.Context) {
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	page, pageSize := GetPaginationParams(c)

	query := database.GetDB().WithContext(c.Request.Context()).Model(&models.RiskItem{}).Where("organization_id = ?", orgID)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondServiceError(c, err, "count risks")
		return
	}

	var items []models.RiskItem
	if err := query.Scopes(PaginateScope(page, pageSize)).Order("risk_score DESC").Find(&items).Error; err != nil {
		respondServiceError(c, err, "list risks")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(items, total, page, pageSize))
}

// UpdateRiskHandler handles updating an existing register item. The score is recomputed.
func UpdateRiskHandler(c *gin.Context) {
	riskID, ok := parseUUIDParam(c, "riskId", "risk")
	if !ok {
		return
	}
	var payload RiskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	db := database.GetDB().WithContext(c.Request.Context())
	item, err := risklogic.FindRiskItem(c.Request.Context(), db, orgID, riskID)
	if err != nil {
		respondServiceError(c, err, "fetch risk for update")
		return
	}
	if err := payload.apply(item, getUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := risklogic.ScoreRiskItem(item); err != nil {
		respondServiceError(c, err, "update risk")
		return
	}

	if err := db.Save(item).Error; err != nil {
		respondServiceError(c, err, "update risk")
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteRiskHandler removes a register item and its correlations.
func DeleteRiskHandler(c *gin.Context) {
	riskID, ok := parseUUIDParam(c, "riskId", "risk")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	err := database.GetDB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if _, err := risklogic.FindRiskItem(c.Request.Context(), tx, orgID, riskID); err != nil {
			return err
		}
		if err := tx.Where("organization_id = ? AND (primary_risk_id = ? OR related_risk_id = ?)", orgID, riskID, riskID).
			Delete(&models.RiskCorrelation{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND organization_id = ?", riskID, orgID).Delete(&models.RiskItem{}).Error
	})
	if err != nil {
		respondServiceError(c, err, "delete risk")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Risk deleted successfully"})
}

// CorrelateRisksPayload names the two register items to correlate.
type CorrelateRisksPayload struct {
	PrimaryRiskID string `json:"primary_risk_id" binding:"required,uuid"`
	RelatedRiskID string `json:"related_risk_id" binding:"required,uuid"`
}

// CorrelateRisksHandler computes and stores the correlation between two register items.
func CorrelateRisksHandler(c *gin.Context) {
	var payload CorrelateRisksPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	correlation, err := risklogic.CorrelateRisks(c.Request.Context(), database.GetDB(), orgID,
		uuid.MustParse(payload.PrimaryRiskID), uuid.MustParse(payload.RelatedRiskID))
	if err != nil {
		respondServiceError(c, err, "correlate risks")
		return
	}
	c.JSON(http.StatusCreated, correlation)
}

// ListRiskCorrelationsHandler lists the correlations that involve a register item.
func ListRiskCorrelationsHandler(c *gin.Context) {
	riskID, ok := parseUUIDParam(c, "riskId", "risk")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	correlations, err := risklogic.ListCorrelations(c.Request.Context(), database.GetDB(), orgID, riskID)
	if err != nil {
		respondServiceError(c, err, "list risk correlations")
		return
	}
	c.JSON(http.StatusOK, correlations)
}
