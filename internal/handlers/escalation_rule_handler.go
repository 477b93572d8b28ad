package handlers

import (
	"errors"
	"net/http"

	"fsms/backend/internal/database"
	"fsms/backend/internal/escalation"
	"fsms/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EscalationRulePayload defines the structure for creating or updating an escalation rule.
type EscalationRulePayload struct {
	Name                string   `json:"name" binding:"required,min=3,max=100"`
	TriggerCondition    string   `json:"trigger_condition" binding:"required,oneof=risk_score severity_level time_delay"`
	TriggerValue        *float64 `json:"trigger_value" binding:"required"`
	EscalationLevel     string   `json:"escalation_level" binding:"required,oneof=supervisor manager director executive"`
	EscalationTimeframe int      `json:"escalation_timeframe" binding:"omitempty,min=1"`
	Recipients          []string `json:"recipients" binding:"dive,max=255"`
	IsActive            *bool    `json:"is_active"`
}

// EscalationRuleResponse expõe Recipients como lista em vez da coluna separada por vírgula.
type EscalationRuleResponse struct {
	models.EscalationRule
	Recipients []string `json:"recipients"`
}

func newEscalationRuleResponse(rule models.EscalationRule) EscalationRuleResponse {
	recipients := escalation.SplitRecipients(rule.Recipients)
	if recipients == nil {
		recipients = []string{}
	}
	return EscalationRuleResponse{EscalationRule: rule, Recipients: recipients}
}

func (p EscalationRulePayload) apply(rule *models.EscalationRule) {
	rule.Name = p.Name
	rule.TriggerCondition = p.TriggerCondition
	rule.TriggerValue = *p.TriggerValue
	rule.EscalationLevel = p.EscalationLevel
	rule.Recipients = escalation.JoinRecipients(p.Recipients)
	if p.EscalationTimeframe > 0 {
		rule.EscalationTimeframe = p.EscalationTimeframe
	}
	if rule.EscalationTimeframe == 0 {
		rule.EscalationTimeframe = 24
	}
	if p.IsActive != nil {
		rule.IsActive = *p.IsActive
	}
}

func findEscalationRule(c *gin.Context, orgID, ruleID uuid.UUID) (*models.EscalationRule, bool) {
	var rule models.EscalationRule
	err := database.GetDB().WithContext(c.Request.Context()).
		Where("id = ? AND organization_id = ?", ruleID, orgID).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondServiceError(c, escalation.ErrEscalationRuleNotFound, "fetch escalation rule")
			return nil, false
		}
		respondServiceError(c, err, "fetch escalation rule")
		return nil, false
	}
	return &rule, true
}

// CreateEscalationRuleHandler creates a rule for the caller's organization.
func CreateEscalationRuleHandler(c *gin.Context) {
	var payload EscalationRulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	rule := models.EscalationRule{OrganizationID: orgID, IsActive: true}
	payload.apply(&rule)

	if err := database.GetDB().WithContext(c.Request.Context()).Create(&rule).Error; err != nil {
		respondServiceError(c, err, "create escalation rule")
		return
	}
	c.JSON(http.StatusCreated, newEscalationRuleResponse(rule))
}

// ListEscalationRulesHandler lists rules in evaluation order. ?active=true keeps only active rules.
func ListEscalationRulesHandler(c *gin.Context) {
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	query := database.GetDB().WithContext(c.Request.Context()).Where("organization_id = ?", orgID)
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}
	var rules []models.EscalationRule
	if err := query.Order("created_at ASC").Find(&rules).Error; err != nil {
		respondServiceError(c, err, "list escalation rules")
		return
	}

	resp := make([]EscalationRuleResponse, 0, len(rules))
	for _, r := range rules {
		resp = append(resp, newEscalationRuleResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

// GetEscalationRuleHandler fetches a rule by ID.
func GetEscalationRuleHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "ruleId", "escalation rule")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	rule, ok := findEscalationRule(c, orgID, ruleID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newEscalationRuleResponse(*rule))
}

// UpdateEscalationRuleHandler replaces a rule's definition.
func UpdateEscalationRuleHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "ruleId", "escalation rule")
	if !ok {
		return
	}
	var payload EscalationRulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}
	rule, ok := findEscalationRule(c, orgID, ruleID)
	if !ok {
		return
	}

	payload.apply(rule)
	if err := database.GetDB().WithContext(c.Request.Context()).Save(rule).Error; err != nil {
		respondServiceError(c, err, "update escalation rule")
		return
	}
	c.JSON(http.StatusOK, newEscalationRuleResponse(*rule))
}

// DeleteEscalationRuleHandler deletes a rule. Recorded escalation events are kept.
func DeleteEscalationRuleHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "ruleId", "escalation rule")
	if !ok {
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	result := database.GetDB().WithContext(c.Request.Context()).
		Where("id = ? AND organization_id = ?", ruleID, orgID).Delete(&models.EscalationRule{})
	if result.Error != nil {
		respondServiceError(c, result.Error, "delete escalation rule")
		return
	}
	if result.RowsAffected == 0 {
		respondServiceError(c, escalation.ErrEscalationRuleNotFound, "delete escalation rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Escalation rule deleted successfully"})
}

// TriggerRulePayload carries the measured value for a manual trigger check.
type TriggerRulePayload struct {
	TriggerValue *float64 `json:"trigger_value" binding:"required"`
}

// TriggerEscalationRuleHandler checks one rule against a supplied value and escalates when it fires.
func TriggerEscalationRuleHandler(c *gin.Context) {
	ruleID, ok := parseUUIDParam(c, "ruleId", "escalation rule")
	if !ok {
		return
	}
	var payload TriggerRulePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	orgID, ok := getOrganizationID(c)
	if !ok {
		return
	}

	req, err := escalation.NewEvaluator(database.GetDB(), escalationDispatcher).
		TriggerRule(c.Request.Context(), orgID, ruleID, *payload.TriggerValue)
	if err != nil {
		respondServiceError(c, err, "trigger escalation rule")
		return
	}
	if req == nil {
		c.JSON(http.StatusOK, gin.H{"triggered": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggered": true, "notification": req})
}
