package handlers

import (
	"net/http"
	"time"

	"fsms/backend/internal/database"
	"fsms/backend/internal/escalation"
	"fsms/backend/internal/models"
	"fsms/backend/internal/notifications"
	"fsms/backend/internal/riskengine"
	"fsms/backend/internal/risklogic"
	"fsms/backend/pkg/features"
	phxlog "fsms/backend/pkg/log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NonConformancePayload defines the structure for reporting a non-conformance.
type NonConformancePayload struct {
	Title       string     `json:"title" binding:"required,min=3,max=255"`
	Description string     `json:"description"`
	Source      string     `json:"source" binding:"max=50"`
	Severity    string     `json:"severity" binding:"required,oneof=low medium high critical"`
	ReportedAt  *time.Time `json:"reported_at"`
}

// CreateNonConformanceHandler registers a new non-conformance.
func CreateNonConformanceHandler(c *gin.Context) {
	var payload NonConformancePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	nc := models.NonConformance{
		OrganizationID: orgID,
		Title:          payload.Title,
		Description:    payload.Description,
		Source:         payload.Source,
		Severity:       payload.Severity,
		Status:         models.NCStatusOpen,
		ReportedAt:     time.Now().UTC(),
		ReportedByID:   getUserID(c),
	}
	if payload.ReportedAt != nil {
		nc.ReportedAt = payload.ReportedAt.UTC()
	}

	if err := database.GetDB().WithContext(c.Request.Context()).Create(&nc).Error; err != nil {
		respondServiceError(c, err, "create non-conformance")
		return
	}
	c.JSON(http.StatusCreated, nc)
}

// GetNonConformanceHandler fetches a non-conformance by ID.
func GetNonConformanceHandler(c *gin.Context) {
	ncID, ok := parseUUIDParam(c, "ncId", "non-conformance")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	nc, err := risklogic.FindNonConformance(c.Request.Context(), database.GetDB(), orgID, ncID)
	if err != nil {
		respondServiceError(c, err, "fetch non-conformance")
		return
	}
	c.JSON(http.StatusOK, nc)
}

// ListNonConformancesHandler lists the organization's non-conformances, newest first.
func ListNonConformancesHandler(c *gin.Context) {
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	page, pageSize := GetPaginationParams(c)

	query := database.GetDB().WithContext(c.Request.Context()).Model(&models.NonConformance{}).Where("organization_id = ?", orgID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondServiceError(c, err, "count non-conformances")
		return
	}
	var items []models.NonConformance
	if err := query.Scopes(PaginateScope(page, pageSize)).Order("reported_at DESC").Find(&items).Error; err != nil {
		respondServiceError(c, err, "list non-conformances")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(items, total, page, pageSize))
}

// NCRiskAssessmentPayload carries the four categorical impacts. Values are
// validated case-insensitively against low, medium, high and critical.
type NCRiskAssessmentPayload struct {
	FoodSafetyImpact string `json:"food_safety_impact" binding:"required"`
	RegulatoryImpact string `json:"regulatory_impact" binding:"required"`
	CustomerImpact   string `json:"customer_impact" binding:"required"`
	BusinessImpact   string `json:"business_impact" binding:"required"`
	RiskAcceptable   bool   `json:"risk_acceptable"`
}

// NCRiskAssessmentResponse é a avaliação gravada e, com AUTO_ESCALATION, as escalações disparadas.
type NCRiskAssessmentResponse struct {
	Assessment  *models.NCRiskAssessment         `json:"assessment"`
	Escalations []riskengine.NotificationRequest `json:"escalations,omitempty"`
}

// AssessNonConformanceRiskHandler scores a non-conformance and stores the assessment.
func AssessNonConformanceRiskHandler(c *gin.Context) {
	ncID, ok := parseUUIDParam(c, "ncId", "non-conformance")
	if !ok {
		return
	}
	var payload NCRiskAssessmentPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	db := database.GetDB()
	assessment, err := risklogic.AssessNonConformanceRisk(ctx, db, orgID, ncID, risklogic.NCAssessmentInput{
		FoodSafetyImpact: payload.FoodSafetyImpact,
		RegulatoryImpact: payload.RegulatoryImpact,
		CustomerImpact:   payload.CustomerImpact,
		BusinessImpact:   payload.BusinessImpact,
		RiskAcceptable:   payload.RiskAcceptable,
		AssessedByID:     getUserID(c),
	})
	if err != nil {
		respondServiceError(c, err, "assess non-conformance risk")
		return
	}

	resp := NCRiskAssessmentResponse{Assessment: assessment}
	if features.IsEnabled(features.AutoEscalation) {
		fired, err := escalation.NewEvaluator(db, escalationDispatcher).EvaluateNonConformance(ctx, orgID, ncID, time.Now().UTC())
		if err != nil {
			// A avaliação já foi gravada; a escalação pode ser reavaliada manualmente.
			phxlog.L.Error("Automatic escalation evaluation failed",
				zap.String("nonConformanceID", ncID.String()), zap.Error(err))
		}
		resp.Escalations = fired
	}

	publishRiskAssessed(c, orgID, notifications.RiskAssessedSummary{
		Domain:    "non_conformance",
		SubjectID: ncID.String(),
		Score:     assessment.OverallRiskScore,
		RiskLevel: assessment.RiskLevel,
	})
	c.JSON(http.StatusCreated, resp)
}

// ListNonConformanceRiskAssessmentsHandler returns the assessment history of a non-conformance.
func ListNonConformanceRiskAssessmentsHandler(c *gin.Context) {
	ncID, ok := parseUUIDParam(c, "ncId", "non-conformance")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := risklogic.FindNonConformance(ctx, database.GetDB(), orgID, ncID); err != nil {
		respondServiceError(c, err, "fetch non-conformance")
		return
	}
	assessments, err := risklogic.ListNCAssessments(ctx, database.GetDB(), orgID, ncID)
	if err != nil {
		respondServiceError(c, err, "list risk assessments")
		return
	}
	c.JSON(http.StatusOK, assessments)
}

// EvaluateNonConformanceEscalationsHandler runs every active escalation rule against a non-conformance.
func EvaluateNonConformanceEscalationsHandler(c *gin.Context) {
	ncID, ok := parseUUIDParam(c, "ncId", "non-conformance")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	fired, err := escalation.NewEvaluator(database.GetDB(), escalationDispatcher).
		EvaluateNonConformance(c.Request.Context(), orgID, ncID, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err, "evaluate escalation rules")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"non_conformance_id": ncID,
		"triggered":          len(fired),
		"escalations":        fired,
	})
}
