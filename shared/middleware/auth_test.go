package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

func issueFor(t *testing.T, am *AuthMiddleware, role models.UserRole, tenantID *uuid.UUID) string {
	t.Helper()
	user := &models.User{
		ID:            uuid.New(),
		Username:      "someone",
		Role:          role,
		ConsultancyID: tenantID,
	}
	token, err := am.IssueToken(user, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_ValidatesBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware("test-secret")

	var gotRole string
	router := gin.New()
	router.GET("/probe", am.RequireAuth(), func(c *gin.Context) {
		gotRole = c.GetString("role")
		c.Status(http.StatusOK)
	})

	// No token.
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "").Code)

	// Garbage token.
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, "not-a-jwt").Code)

	// Token signed with a different secret.
	other := NewAuthMiddleware("other-secret")
	assert.Equal(t, http.StatusUnauthorized,
		doRequest(router, issueFor(t, other, models.RoleAdmin, nil)).Code)

	// Valid token passes and populates the context.
	assert.Equal(t, http.StatusOK,
		doRequest(router, issueFor(t, am, models.RoleAgent, nil)).Code)
	assert.Equal(t, string(models.RoleAgent), gotRole)
}

func TestRequireAuth_RejectsExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware("test-secret")

	user := &models.User{ID: uuid.New(), Username: "late", Role: models.RoleAdmin}
	token, err := am.IssueToken(user, -time.Minute)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/probe", am.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, doRequest(router, token).Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware("test-secret")

	router := gin.New()
	router.GET("/probe", am.RequireAuth(), am.RequireRole(string(models.RoleAdmin)),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK,
		doRequest(router, issueFor(t, am, models.RoleAdmin, nil)).Code)
	assert.Equal(t, http.StatusForbidden,
		doRequest(router, issueFor(t, am, models.RoleStudent, nil)).Code)
}

func TestRequireAgentOrAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware("test-secret")

	router := gin.New()
	router.GET("/probe", am.RequireAuth(), am.RequireAgentOrAdmin(),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	tenant := uuid.New()
	assert.Equal(t, http.StatusOK,
		doRequest(router, issueFor(t, am, models.RoleAdmin, nil)).Code)
	assert.Equal(t, http.StatusOK,
		doRequest(router, issueFor(t, am, models.RoleAgent, &tenant)).Code)
	assert.Equal(t, http.StatusForbidden,
		doRequest(router, issueFor(t, am, models.RoleStudent, &tenant)).Code)
}

func TestTenantScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware("test-secret")

	tenant := uuid.New()
	var scope *uuid.UUID
	var scopeOK bool

	router := gin.New()
	router.GET("/probe", am.RequireAuth(), func(c *gin.Context) {
		scope, scopeOK = TenantScope(c)
		c.Status(http.StatusOK)
	})

	// Admins are unscoped.
	doRequest(router, issueFor(t, am, models.RoleAdmin, nil))
	require.True(t, scopeOK)
	assert.Nil(t, scope)

	// Agents are confined to their own tenant.
	doRequest(router, issueFor(t, am, models.RoleAgent, &tenant))
	require.True(t, scopeOK)
	require.NotNil(t, scope)
	assert.Equal(t, tenant, *scope)
}

func TestCurrentUserID_RoundTripsSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware("test-secret")

	user := &models.User{ID: uuid.New(), Username: "whoami", Role: models.RoleStudent}
	token, err := am.IssueToken(user, time.Hour)
	require.NoError(t, err)

	var got uuid.UUID
	var ok bool
	router := gin.New()
	router.GET("/probe", am.RequireAuth(), func(c *gin.Context) {
		got, ok = CurrentUserID(c)
		c.Status(http.StatusOK)
	})

	doRequest(router, token)
	require.True(t, ok)
	assert.Equal(t, user.ID, got)
}
