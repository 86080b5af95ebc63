package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/marketplace/backend/internal/domain/identity"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
)

// RequireRole admits only callers holding one of roles. It must run after
// JWTAuth: a request without a principal gets 401, a wrong role gets 403.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = r.String()
	}

	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.Fail(dto.ErrCodeUnauthorized, "Authentication required", GetRequestID(c)))
			return
		}
		if !slices.Contains(allowed, role) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.Fail(dto.ErrCodeForbidden, "This action requires the "+allowed[0]+" role", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
