package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

// AuthMiddleware validates locally issued JWT tokens and enforces role
// and tenant scoping on the route groups.
type AuthMiddleware struct {
	secret []byte
}

// Claims are the token claims carried by every issued JWT. TenantID is
// empty for admins.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// IssueToken signs a token for the given identity, valid for ttl.
func (am *AuthMiddleware) IssueToken(user *models.User, ttl time.Duration) (string, error) {
	claims := Claims{
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	if user.ConsultancyID != nil {
		claims.TenantID = user.ConsultancyID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(am.secret)
}

func (am *AuthMiddleware) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// RequireAuth middleware validates JWT tokens
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		claims, err := am.parseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.Subject)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Set("tenant_id", claims.TenantID)

		c.Next()
	}
}

// RequireRole middleware validates user role
func (am *AuthMiddleware) RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")

		if role != requiredRole {
			c.JSON(http.StatusForbidden, gin.H{
				"error":         "Insufficient permissions",
				"required_role": requiredRole,
				"user_role":     role,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAgentOrAdmin allows admins everywhere and agents only within
// their own tenant. Handlers read the effective tenant scope via
// TenantScope.
func (am *AuthMiddleware) RequireAgentOrAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == string(models.RoleAdmin) || role == string(models.RoleAgent) {
			c.Next()
			return
		}

		c.JSON(http.StatusForbidden, gin.H{
			"error":         "Insufficient permissions",
			"required_role": "agent or admin",
			"user_role":     role,
		})
		c.Abort()
	}
}

// CurrentUserID returns the authenticated identity's id.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// TenantScope returns the tenant the caller is confined to. Admins are
// unscoped (nil, true); agents and students get their own tenant.
func TenantScope(c *gin.Context) (*uuid.UUID, bool) {
	if c.GetString("role") == string(models.RoleAdmin) {
		return nil, true
	}
	id, err := uuid.Parse(c.GetString("tenant_id"))
	if err != nil {
		return nil, false
	}
	return &id, true
}

// extractToken extracts the bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimPrefix(bearerToken, "Bearer ")
	}
	return ""
}
