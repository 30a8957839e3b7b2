package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/billforge/backend/internal/infrastructure/auth"
	"github.com/billforge/backend/internal/infrastructure/logger"
	"github.com/billforge/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Auth context keys
const (
	JWTClaimsKey  = "jwt_claims"
	UserIDKey     = "user_id"
	AuthMethodKey = "auth_method"

	AuthHeaderKey = "Authorization"
	APIKeyHeader  = "X-API-Key"
	BearerPrefix  = "Bearer "
)

// Authentication methods recorded under AuthMethodKey
const (
	AuthMethodJWT    = "jwt"
	AuthMethodAPIKey = "api_key"
)

// APIKeyAuthenticator resolves an API key to the user that owns it
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, plaintext string) (string, error)
}

// AuthConfig holds configuration for the authentication middleware
type AuthConfig struct {
	// JWTService is required for bearer token validation
	JWTService *auth.JWTService
	// TokenBlacklist is optional; checks revoked tokens and signed-out users
	TokenBlacklist auth.TokenBlacklist
	// APIKeys enables the X-API-Key header when set
	APIKeys APIKeyAuthenticator
	Logger  *zap.Logger
}

// Authenticate accepts a bearer JWT or, when configured, an X-API-Key header.
// The bearer token wins when both are present.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if header := c.GetHeader(AuthHeaderKey); header != "" {
			authenticateJWT(c, cfg, log, header)
			return
		}
		if key := c.GetHeader(APIKeyHeader); key != "" && cfg.APIKeys != nil {
			authenticateAPIKey(c, cfg, log, key)
			return
		}
		abortAuth(c, log, auth.ErrInvalidToken, "Missing authorization header")
	}
}

// JWTAuthMiddleware authenticates bearer tokens only
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return Authenticate(AuthConfig{JWTService: jwtService})
}

func authenticateJWT(c *gin.Context, cfg AuthConfig, log *zap.Logger, header string) {
	if !strings.HasPrefix(header, BearerPrefix) {
		abortAuth(c, log, auth.ErrInvalidToken, "Invalid authorization header format")
		return
	}
	tokenString := strings.TrimPrefix(header, BearerPrefix)
	if tokenString == "" {
		abortAuth(c, log, auth.ErrInvalidToken, "Missing token")
		return
	}

	claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
	if err != nil {
		abortAuth(c, log, err, "Token validation failed")
		return
	}

	if cfg.TokenBlacklist != nil && revoked(c.Request.Context(), cfg.TokenBlacklist, log, claims) {
		abortAuth(c, log, auth.ErrTokenBlacklisted, "Token has been revoked")
		return
	}

	c.Set(JWTClaimsKey, claims)
	setUser(c, claims.UserID, AuthMethodJWT)
	c.Next()
}

// revoked fails open: a blacklist outage must not lock every user out.
func revoked(ctx context.Context, blacklist auth.TokenBlacklist, log *zap.Logger, claims *auth.Claims) bool {
	if claims.ID != "" {
		blacklisted, err := blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			log.Error("Failed to check token blacklist", zap.String("jti", claims.ID), zap.Error(err))
		} else if blacklisted {
			return true
		}
	}

	invalidated, err := blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		log.Error("Failed to check user token invalidation", zap.String("user_id", claims.UserID), zap.Error(err))
		return false
	}
	return invalidated
}

func authenticateAPIKey(c *gin.Context, cfg AuthConfig, log *zap.Logger, key string) {
	userID, err := cfg.APIKeys.Authenticate(c.Request.Context(), key)
	if err != nil {
		log.Warn("API key authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		status, resp := dto.FromError(err, c.GetString(RequestIDKey))
		if status >= 500 {
			c.AbortWithStatusJSON(status, resp)
			return
		}
		c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeUnauthorized),
			dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Invalid API key", c.GetString(RequestIDKey)))
		return
	}
	setUser(c, userID, AuthMethodAPIKey)
	c.Next()
}

func setUser(c *gin.Context, userID, method string) {
	c.Set(UserIDKey, userID)
	c.Set(AuthMethodKey, method)

	ctx := c.Request.Context()
	ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), userID)
	c.Request = c.Request.WithContext(ctx)
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("Authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, text := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		code, text = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidTokenType),
		errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrMissingUserID):
		code, text = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, text, c.GetString(RequestIDKey)))
}

// GetJWTClaims returns the claims of a JWT-authenticated request, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, ok := c.Get(JWTClaimsKey); ok {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetUserID returns the authenticated user id, or ""
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
