package handlers

import (
	"errors"
	"net/http"
	"time"

	"fsms/backend/internal/database"
	"fsms/backend/internal/filestorage"
	"fsms/backend/internal/models"
	"fsms/backend/internal/notifications"
	"fsms/backend/internal/risklogic"
	phxlog "fsms/backend/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tamanho máximo de um arquivo de evidência.
const maxEvidenceSize = 10 << 20

// --- Audit Handlers ---

// AuditPayload defines the structure for planning an audit.
type AuditPayload struct {
	Title            string             `json:"title" binding:"required,min=3,max=255"`
	AuditType        models.AuditType   `json:"audit_type" binding:"required,oneof=internal external supplier certification regulatory"`
	Status           models.AuditStatus `json:"status" binding:"omitempty,oneof=planned in_progress completed closed"`
	Scope            string             `json:"scope"`
	ComplianceImpact int                `json:"compliance_impact" binding:"required,min=1,max=5"`
	PlannedDate      *time.Time         `json:"planned_date"`
	LeadAuditorID    string             `json:"lead_auditor_id" binding:"omitempty,uuid"`
}

// CreateAuditHandler handles the creation of a new audit.
func CreateAuditHandler(c *gin.Context) {
	var payload AuditPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	audit := models.Audit{
		OrganizationID:   orgID,
		Title:            payload.Title,
		AuditType:        payload.AuditType,
		Status:           payload.Status,
		Scope:            payload.Scope,
		ComplianceImpact: payload.ComplianceImpact,
		PlannedDate:      payload.PlannedDate,
	}
	if audit.Status == "" {
		audit.Status = models.AuditStatusPlanned
	}
	if payload.LeadAuditorID != "" {
		leadID := uuid.MustParse(payload.LeadAuditorID)
		audit.LeadAuditorID = &leadID
	}

	if err := database.GetDB().WithContext(c.Request.Context()).Create(&audit).Error; err != nil {
		respondServiceError(c, err, "create audit")
		return
	}
	c.JSON(http.StatusCreated, audit)
}

// GetAuditHandler fetches an audit with its findings.
func GetAuditHandler(c *gin.Context) {
	auditID, ok := parseUUIDParam(c, "auditId", "audit")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	db := database.GetDB().WithContext(c.Request.Context())
	audit, err := risklogic.FindAudit(c.Request.Context(), db, orgID, auditID)
	if err != nil {
		respondServiceError(c, err, "fetch audit")
		return
	}
	if err := db.Where("audit_id = ? AND organization_id = ?", audit.ID, orgID).Order("created_at ASC").Find(&audit.Findings).Error; err != nil {
		respondServiceError(c, err, "fetch audit findings")
		return
	}
	c.JSON(http.StatusOK, audit)
}

// ListAuditsHandler lists the organization's audits.
func ListAuditsHandler(c *gin.Context) {
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	page, pageSize := GetPaginationParams(c)

	query := database.GetDB().WithContext(c.Request.Context()).Model(&models.Audit{}).Where("organization_id = ?", orgID)
	if auditType := c.Query("audit_type"); auditType != "" {
		query = query.Where("audit_type = ?", auditType)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondServiceError(c, err, "count audits")
		return
	}
	var audits []models.Audit
	if err := query.Scopes(PaginateScope(page, pageSize)).Order("created_at DESC").Find(&audits).Error; err != nil {
		respondServiceError(c, err, "list audits")
		return
	}
	c.JSON(http.StatusOK, newPaginatedResponse(audits, total, page, pageSize))
}

// ControlEffectivenessPayload carries the 1-5 effectiveness of the controls in place.
type ControlEffectivenessPayload struct {
	ControlEffectiveness int `json:"control_effectiveness" binding:"required"`
}

// AssessAuditRiskHandler scores an audit and stores initial and residual risk.
func AssessAuditRiskHandler(c *gin.Context) {
	auditID, ok := parseUUIDParam(c, "auditId", "audit")
	if !ok {
		return
	}
	var payload ControlEffectivenessPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	assessment, err := risklogic.AssessAuditRisk(c.Request.Context(), database.GetDB(), orgID, auditID, payload.ControlEffectiveness)
	if err != nil {
		respondServiceError(c, err, "assess audit risk")
		return
	}
	publishRiskAssessed(c, orgID, notifications.RiskAssessedSummary{
		Domain:    "audit",
		SubjectID: auditID.String(),
		Score:     float64(assessment.InitialRiskScore),
		RiskLevel: assessment.InitialRiskLevel,
	})
	c.JSON(http.StatusCreated, assessment)
}

// --- Finding Handlers ---

// FindingPayload defines the structure for recording an audit finding.
type FindingPayload struct {
	Description       string                 `json:"description" binding:"required"`
	Clause            string                 `json:"clause" binding:"max=50"`
	Severity          models.FindingSeverity `json:"severity" binding:"required,oneof=observation minor major critical"`
	Status            models.FindingStatus   `json:"status" binding:"omitempty,oneof=open in_progress closed verified"`
	ComplianceImpact  int                    `json:"compliance_impact" binding:"required,min=1,max=5"`
	OperationalImpact int                    `json:"operational_impact" binding:"required,min=1,max=5"`
}

// CreateFindingHandler records a finding under an audit.
func CreateFindingHandler(c *gin.Context) {
	auditID, ok := parseUUIDParam(c, "auditId", "audit")
	if !ok {
		return
	}
	var payload FindingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	db := database.GetDB()
	if _, err := risklogic.FindAudit(c.Request.Context(), db, orgID, auditID); err != nil {
		respondServiceError(c, err, "fetch audit")
		return
	}

	finding := models.AuditFinding{
		OrganizationID:    orgID,
		AuditID:           auditID,
		Description:       payload.Description,
		Clause:            payload.Clause,
		Severity:          payload.Severity,
		Status:            payload.Status,
		ComplianceImpact:  payload.ComplianceImpact,
		OperationalImpact: payload.OperationalImpact,
	}
	if finding.Status == "" {
		finding.Status = models.FindingStatusOpen
	}

	if err := db.WithContext(c.Request.Context()).Create(&finding).Error; err != nil {
		respondServiceError(c, err, "create finding")
		return
	}
	c.JSON(http.StatusCreated, finding)
}

// ListFindingsHandler lists the findings of an audit.
func ListFindingsHandler(c *gin.Context) {
	auditID, ok := parseUUIDParam(c, "auditId", "audit")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	db := database.GetDB()
	if _, err := risklogic.FindAudit(c.Request.Context(), db, orgID, auditID); err != nil {
		respondServiceError(c, err, "fetch audit")
		return
	}
	var findings []models.AuditFinding
	if err := db.WithContext(c.Request.Context()).
		Where("audit_id = ? AND organization_id = ?", auditID, orgID).
		Order("created_at ASC").Find(&findings).Error; err != nil {
		respondServiceError(c, err, "list findings")
		return
	}
	c.JSON(http.StatusOK, findings)
}

// AssessFindingRiskHandler scores a finding and stores initial and residual risk.
func AssessFindingRiskHandler(c *gin.Context) {
	findingID, ok := parseUUIDParam(c, "findingId", "finding")
	if !ok {
		return
	}
	var payload ControlEffectivenessPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	assessment, err := risklogic.AssessFindingRisk(c.Request.Context(), database.GetDB(), orgID, findingID, payload.ControlEffectiveness)
	if err != nil {
		respondServiceError(c, err, "assess finding risk")
		return
	}
	publishRiskAssessed(c, orgID, notifications.RiskAssessedSummary{
		Domain:    "finding",
		SubjectID: findingID.String(),
		Score:     float64(assessment.InitialRiskScore),
		RiskLevel: assessment.InitialRiskLevel,
	})
	c.JSON(http.StatusCreated, assessment)
}

// UploadFindingEvidenceHandler stores an evidence file (multipart field "file")
// and links it to the finding. A previous evidence object is removed.
func UploadFindingEvidenceHandler(c *gin.Context) {
	findingID, ok := parseUUIDParam(c, "findingId", "finding")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	provider := filestorage.DefaultFileStorageProvider
	if provider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage provider not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Evidence file is required in the 'file' form field"})
		return
	}
	if fileHeader.Size > maxEvidenceSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Evidence file exceeds the 10 MB limit"})
		return
	}

	ctx := c.Request.Context()
	db := database.GetDB()
	finding, err := risklogic.FindFinding(ctx, db, orgID, findingID)
	if err != nil {
		respondServiceError(c, err, "fetch finding")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read evidence file"})
		return
	}
	defer file.Close()

	objectName := filestorage.EvidenceObjectName(orgID, findingID, fileHeader.Filename)
	stored, err := provider.UploadFile(ctx, orgID.String(), objectName, file)
	if err != nil {
		if errors.Is(err, filestorage.ErrStorageNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		respondServiceError(c, err, "upload evidence")
		return
	}

	previous := finding.EvidenceObject
	if err := db.WithContext(ctx).Model(finding).Update("evidence_object", stored).Error; err != nil {
		respondServiceError(c, err, "link evidence to finding")
		return
	}
	if previous != "" && previous != stored {
		if err := provider.DeleteFile(ctx, previous); err != nil {
			phxlog.L.Warn("Failed to delete replaced evidence object",
				zap.String("findingID", findingID.String()),
				zap.String("objectName", previous),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"finding_id": findingID, "evidence_object": stored})
}
