package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plate_reader/internal/service"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	UserRoleKey             = "userRole"
	UsernameKey             = "username"
)

type AuthMiddleware struct {
	authService *service.AuthService
}

func NewAuthMiddleware(authService *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Authenticate validates the bearer JWT and stores the operator in the gin context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		_, claims, err := m.authService.ValidateToken(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "details": err.Error()})
			return
		}

		role, okRole := claims["role"].(string)
		username, okUsername := claims["username"].(string)
		if !okRole || !okUsername {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token carries no operator identity"})
			return
		}

		c.Set(UserRoleKey, role)
		c.Set(UsernameKey, username)
		c.Next()
	}
}

// AuthorizeRole must run after Authenticate.
func (m *AuthMiddleware) AuthorizeRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(UserRoleKey)
		if role == "" {
			log.Printf("AuthorizeRole: no role in context (Authenticate() must run first)")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied (missing role)"})
			return
		}

		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		log.Printf("AuthorizeRole: operator %q with role '%s' denied (requires: %v)", c.GetString(UsernameKey), role, requiredRoles)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied (insufficient role)"})
	}
}
