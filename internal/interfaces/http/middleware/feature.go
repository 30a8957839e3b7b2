package middleware

import (
	"context"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EntitlementKey holds the resolved entitlement for downstream handlers
const EntitlementKey = "entitlement"

// EntitlementSource resolves the caller's current entitlement
type EntitlementSource interface {
	ResolveForUser(ctx context.Context, userID string) (*billing.Entitlement, error)
}

// RequireFeature gates a route on a plan capability. Resolution failures
// are reported through the error envelope rather than treated as a denial.
func RequireFeature(source EntitlementSource, feature billing.Feature, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeUnauthorized), dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnauthorized, "Authentication required", c.GetString(RequestIDKey),
			))
			return
		}

		entitlement, err := source.ResolveForUser(c.Request.Context(), userID)
		if err != nil {
			logger.Error("Failed to resolve entitlement", zap.String("user_id", userID), zap.Error(err))
			status, resp := dto.FromError(err, c.GetString(RequestIDKey))
			c.AbortWithStatusJSON(status, resp)
			return
		}

		if !billing.HasFeature(entitlement, feature) {
			logger.Debug("Feature not on plan",
				zap.String("user_id", userID),
				zap.String("feature", string(feature)),
				zap.String("plan_id", entitlement.EffectivePlan.ID),
			)
			status, resp := dto.FromError(shared.ErrFeatureNotAvailable, c.GetString(RequestIDKey))
			c.AbortWithStatusJSON(status, resp)
			return
		}

		c.Set(EntitlementKey, entitlement)
		c.Next()
	}
}

// GetEntitlement returns the entitlement stored by RequireFeature, or nil
func GetEntitlement(c *gin.Context) *billing.Entitlement {
	if v, ok := c.Get(EntitlementKey); ok {
		if e, ok := v.(*billing.Entitlement); ok {
			return e
		}
	}
	return nil
}
