package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"fsms/backend/internal/models"
	"fsms/backend/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	config.Cfg.JWTSecret = "testsecretkeyforjwtauthentication"
	config.Cfg.JWTTokenLifespan = time.Hour
	if err := InitializeJWT(); err != nil {
		panic("Failed to initialize JWT for testing: " + err.Error())
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestUser(role models.UserRole) *models.User {
	return &models.User{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Email:          "qa@example.com",
		Role:           role,
	}
}

func TestGenerateToken(t *testing.T) {
	user := newTestUser(models.RoleAuditor)

	tokenString, err := GenerateToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	claims, err := ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.OrganizationID, claims.OrganizationID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleAuditor, claims.Role)
	assert.Equal(t, "fsms", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateToken_InvalidSignature(t *testing.T) {
	tokenString, err := GenerateToken(newTestUser(models.RoleUser))
	require.NoError(t, err)

	originalKey := jwtKey
	jwtKey = []byte("wrongsecretkey")
	defer func() { jwtKey = originalKey }()

	_, err = ValidateToken(tokenString)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateToken_Expired(t *testing.T) {
	originalLifespan := tokenLifespan
	tokenLifespan = -time.Hour
	defer func() { tokenLifespan = originalLifespan }()

	tokenString, err := GenerateToken(newTestUser(models.RoleUser))
	require.NoError(t, err)

	_, err = ValidateToken(tokenString)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired), "expected jwt.ErrTokenExpired, got %v", err)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	claims := &Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtKey)
	require.NoError(t, err)

	_, err = ValidateToken(tokenString)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestAuthMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(AuthMiddleware())
	router.GET("/testauth", func(c *gin.Context) {
		orgID, exists := c.Get("organizationID")
		assert.True(t, exists)
		assert.NotEqual(t, uuid.Nil, orgID)
		c.Status(http.StatusOK)
	})

	cases := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"No Authorization Header", "", http.StatusUnauthorized, "Authorization header required"},
		{"Malformed Header", "Bearer", http.StatusUnauthorized, "Authorization header format must be Bearer {token}"},
		{"Invalid Token", "Bearer aninvalidtokenstring", http.StatusUnauthorized, "Invalid token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/testauth", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tc.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.wantBody)
		})
	}

	t.Run("Valid Token", func(t *testing.T) {
		token, err := GenerateToken(newTestUser(models.RoleManager))
		require.NoError(t, err)
		req, _ := http.NewRequest(http.MethodGet, "/testauth", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	router := gin.New()
	router.Use(AuthMiddleware())
	router.POST("/rules", RequireRoles(models.RoleAdmin, models.RoleManager), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	for role, want := range map[models.UserRole]int{
		models.RoleAdmin:   http.StatusCreated,
		models.RoleManager: http.StatusCreated,
		models.RoleAuditor: http.StatusForbidden,
		models.RoleUser:    http.StatusForbidden,
	} {
		token, err := GenerateToken(newTestUser(role))
		require.NoError(t, err)
		req, _ := http.NewRequest(http.MethodPost, "/rules", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, "role %s", role)
	}
}
