package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fsms/backend/internal/database"
	"fsms/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserResponse DTO para evitar expor PasswordHash.
type UserResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           models.UserRole `json:"role"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

func newUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		OrganizationID: user.OrganizationID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      user.UpdatedAt.Format(time.RFC3339),
	}
}

func findOrganizationUser(c *gin.Context, orgID uuid.UUID) (*models.User, bool) {
	userID, ok := parseUUIDParam(c, "userId", "user")
	if !ok {
		return nil, false
	}
	var user models.User
	err := database.GetDB().WithContext(c.Request.Context()).
		Where("id = ? AND organization_id = ?", userID, orgID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found in this organization"})
			return nil, false
		}
		respondServiceError(c, err, "fetch user")
		return nil, false
	}
	return &user, true
}

// countOtherManagers conta admins/managers ativos além de excludeID.
func countOtherManagers(c *gin.Context, orgID, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := database.GetDB().WithContext(c.Request.Context()).Model(&models.User{}).
		Where("organization_id = ? AND id <> ? AND is_active = ? AND role IN ?",
			orgID, excludeID, true, []models.UserRole{models.RoleAdmin, models.RoleManager}).
		Count(&count).Error
	return count, err
}

// CreateUserPayload cadastra um usuário na organização.
type CreateUserPayload struct {
	Name     string          `json:"name" binding:"required,min=2,max=255"`
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required,min=8"`
	Role     models.UserRole `json:"role" binding:"required,oneof=admin manager auditor user"`
}

// CreateOrganizationUserHandler adds a user to the organization. Admin or manager only.
func CreateOrganizationUserHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	var payload CreateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if payload.Role == models.RoleAdmin {
		if role, _ := c.Get("userRole"); role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can create admin users"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), bcrypt.DefaultCost)
	if err != nil {
		respondServiceError(c, err, "hash password")
		return
	}

	db := database.GetDB().WithContext(c.Request.Context())
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		respondServiceError(c, err, "check e-mail")
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "A user with this e-mail already exists"})
		return
	}

	user := models.User{
		OrganizationID: orgID,
		Name:           payload.Name,
		Email:          email,
		PasswordHash:   string(hash),
		Role:           payload.Role,
		IsActive:       true,
	}
	if err := db.Create(&user).Error; err != nil {
		respondServiceError(c, err, "create user")
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// ListOrganizationUsersHandler lista usuários de uma organização com paginação.
func ListOrganizationUsersHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	page, pageSize := GetPaginationParams(c)

	query := database.GetDB().WithContext(c.Request.Context()).Model(&models.User{}).Where("organization_id = ?", orgID)
	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		respondServiceError(c, err, "count users")
		return
	}
	var users []models.User
	if err := query.Scopes(PaginateScope(page, pageSize)).Order("name asc").Find(&users).Error; err != nil {
		respondServiceError(c, err, "list users")
		return
	}

	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}
	c.JSON(http.StatusOK, newPaginatedResponse(items, totalItems, page, pageSize))
}

// GetOrganizationUserHandler obtém detalhes de um usuário específico da organização.
func GetOrganizationUserHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	user, ok := findOrganizationUser(c, orgID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// UpdateUserRolePayload define o payload para atualizar a role de um usuário.
type UpdateUserRolePayload struct {
	Role models.UserRole `json:"role" binding:"required,oneof=admin manager auditor user"`
}

// UpdateOrganizationUserRoleHandler atualiza a role de um usuário na organização.
// O último admin/manager ativo não pode ser rebaixado.
func UpdateOrganizationUserRoleHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	var payload UpdateUserRolePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	user, ok := findOrganizationUser(c, orgID)
	if !ok {
		return
	}

	demoted := (user.Role == models.RoleAdmin || user.Role == models.RoleManager) &&
		payload.Role != models.RoleAdmin && payload.Role != models.RoleManager
	if demoted && user.IsActive {
		others, err := countOtherManagers(c, orgID, user.ID)
		if err != nil {
			respondServiceError(c, err, "count managers")
			return
		}
		if others == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot demote the last active admin or manager of the organization"})
			return
		}
	}

	user.Role = payload.Role
	if err := database.GetDB().WithContext(c.Request.Context()).Save(user).Error; err != nil {
		respondServiceError(c, err, "update user role")
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// UpdateUserStatusPayload define o payload para ativar/desativar um usuário.
type UpdateUserStatusPayload struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// UpdateOrganizationUserStatusHandler ativa ou desativa um usuário na organização.
// O último admin/manager ativo não pode ser desativado.
func UpdateOrganizationUserStatusHandler(c *gin.Context) {
	orgID, ok := organizationScope(c, true)
	if !ok {
		return
	}
	var payload UpdateUserStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	user, ok := findOrganizationUser(c, orgID)
	if !ok {
		return
	}

	if !*payload.IsActive && user.IsActive && (user.Role == models.RoleAdmin || user.Role == models.RoleManager) {
		others, err := countOtherManagers(c, orgID, user.ID)
		if err != nil {
			respondServiceError(c, err, "count managers")
			return
		}
		if others == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot deactivate the last active admin or manager of the organization"})
			return
		}
	}

	user.IsActive = *payload.IsActive
	if err := database.GetDB().WithContext(c.Request.Context()).Save(user).Error; err != nil {
		respondServiceError(c, err, "update user status")
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}
