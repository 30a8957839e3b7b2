package middleware

import (
	"slices"

	"github.com/billforge/backend/internal/infrastructure/auth"
	"github.com/billforge/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireAdmin allows only JWT callers holding the admin role.
// API keys never carry roles and are always refused.
func RequireAdmin(logger *zap.Logger) gin.HandlerFunc {
	return RequireRole(logger, auth.RoleAdmin)
}

// RequireRole allows JWT callers holding any of roles
func RequireRole(logger *zap.Logger, roles ...string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortForbidden(c, logger, roles, "No token claims on request")
			return
		}
		if !slices.ContainsFunc(roles, func(r string) bool { return slices.Contains(claims.Roles, r) }) {
			abortForbidden(c, logger, roles, "Caller lacks required role")
			return
		}
		c.Next()
	}
}

func abortForbidden(c *gin.Context, logger *zap.Logger, roles []string, reason string) {
	logger.Warn("Access denied",
		zap.String("reason", reason),
		zap.Strings("required_roles", roles),
		zap.String("user_id", GetUserID(c)),
		zap.String("path", c.Request.URL.Path),
	)
	c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeForbidden), dto.NewErrorResponseWithRequestID(
		dto.ErrCodeForbidden, "Insufficient permissions", c.GetString(RequestIDKey),
	))
}
