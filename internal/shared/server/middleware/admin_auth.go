package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"revops-backend/internal/shared/server/respond"
)

const adminRoleKey = "adminRole"

// TokenVerifier validates admin tokens and returns the granted role.
type TokenVerifier interface {
	VerifyRole(token string) (string, error)
}

// AdminAuth requires a valid admin token from the Authorization header or the token query parameter.
func AdminAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
			return
		}
		role, err := verifier.VerifyRole(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", nil)
			return
		}
		c.Set(adminRoleKey, role)
		c.Next()
	}
}

// AdminRoleFromContext returns the role set by AdminAuth.
func AdminRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(adminRoleKey)
	if role, ok := val.(string); ok {
		return role
	}
	return ""
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
