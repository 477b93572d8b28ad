package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"fsms/backend/internal/escalation"
	"fsms/backend/internal/models"
	"fsms/backend/internal/notifications"
	"fsms/backend/internal/riskengine"
	"fsms/backend/internal/risklogic"
	phxlog "fsms/backend/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PaginatedResponse is a generic struct for paginated API responses.
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	TotalItems int64       `json:"total_items"`
	TotalPages int64       `json:"total_pages"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}

// GetPaginationParams extracts and validates pagination parameters from Gin context.
func GetPaginationParams(c *gin.Context) (page int, pageSize int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(DefaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// PaginateScope returns a GORM scope function to apply pagination.
func PaginateScope(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		offset := (page - 1) * pageSize
		return db.Offset(offset).Limit(pageSize)
	}
}

func newPaginatedResponse(items interface{}, total int64, page, pageSize int) PaginatedResponse {
	totalPages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPages++
	}
	return PaginatedResponse{Items: items, TotalItems: total, TotalPages: totalPages, Page: page, PageSize: pageSize}
}

// RiskAssessedPublisher recebe avaliações recém gravadas (evento risk_assessed).
type RiskAssessedPublisher interface {
	DispatchRiskAssessed(ctx context.Context, orgID uuid.UUID, summary notifications.RiskAssessedSummary) error
}

var (
	escalationDispatcher escalation.Dispatcher
	riskPublisher        RiskAssessedPublisher
)

// ConfigureNotifications define para onde vão escalações disparadas e eventos de avaliação.
// Qualquer um dos dois pode ser nil; nesse caso o evento só é registrado.
func ConfigureNotifications(dispatcher escalation.Dispatcher, publisher RiskAssessedPublisher) {
	escalationDispatcher = dispatcher
	riskPublisher = publisher
}

// publishRiskAssessed notifica em background; a resposta HTTP não espera os webhooks.
func publishRiskAssessed(c *gin.Context, orgID uuid.UUID, summary notifications.RiskAssessedSummary) {
	if riskPublisher == nil {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if err := riskPublisher.DispatchRiskAssessed(ctx, orgID, summary); err != nil {
			phxlog.L.Warn("Failed to publish risk_assessed event",
				zap.String("subjectID", summary.SubjectID), zap.Error(err))
		}
	}()
}

// getOrganizationID lê o organizationID colocado no contexto pelo AuthMiddleware.
func getOrganizationID(c *gin.Context) (uuid.UUID, bool) {
	orgID, exists := c.Get("organizationID")
	if !exists {
		c.JSON(http.StatusForbidden, gin.H{"error": "Organization ID not found in token"})
		return uuid.Nil, false
	}
	id, ok := orgID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid organization ID in token"})
		return uuid.Nil, false
	}
	return id, true
}

func getUserID(c *gin.Context) *uuid.UUID {
	userID, exists := c.Get("userID")
	if !exists {
		return nil
	}
	id, ok := userID.(uuid.UUID)
	if !ok {
		return nil
	}
	return &id
}

// organizationScope valida :orgId contra o token. Quando requireManager, só admin e manager passam.
func organizationScope(c *gin.Context, requireManager bool) (uuid.UUID, bool) {
	targetOrgID, ok := parseUUIDParam(c, "orgId", "organization")
	if !ok {
		return uuid.Nil, false
	}
	tokenOrgID, ok := getOrganizationID(c)
	if !ok {
		return uuid.Nil, false
	}
	if tokenOrgID != targetOrgID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied to this organization"})
		return uuid.Nil, false
	}
	if requireManager {
		role, _ := c.Get("userRole")
		if role != models.RoleAdmin && role != models.RoleManager {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied or insufficient privileges"})
			return uuid.Nil, false
		}
	}
	return targetOrgID, true
}

func parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError traduz os erros de risklogic/escalation para status HTTP.
func respondServiceError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, risklogic.ErrRiskNotFound),
		errors.Is(err, risklogic.ErrAuditNotFound),
		errors.Is(err, risklogic.ErrFindingNotFound),
		errors.Is(err, risklogic.ErrNonConformanceNotFound),
		errors.Is(err, escalation.ErrEscalationRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, risklogic.ErrOutOfScale),
		errors.Is(err, riskengine.ErrUnknownImpactLevel),
		errors.Is(err, risklogic.ErrSelfCorrelation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		phxlog.L.Error("Request failed", zap.String("action", action), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}
