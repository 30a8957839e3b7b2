package auth

import (
	"testing"
	"time"

	"github.com/billforge/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService()

	token, err := svc.GenerateAccessToken(GenerateTokenInput{
		UserID: "user_123",
		Email:  "owner@example.com",
		Roles:  []string{RoleUser},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims.UserID)
	assert.Equal(t, "user_123", claims.Subject)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
	assert.False(t, claims.IsAdmin())
	assert.Greater(t, claims.GetRemainingTTL(), 14*time.Minute)
	assert.False(t, claims.GetIssuedAtTime().IsZero())
}

func TestJWTService_GenerateRequiresUserID(t *testing.T) {
	_, err := newTestJWTService().GenerateAccessToken(GenerateTokenInput{})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestClaims_IsAdmin(t *testing.T) {
	assert.True(t, (&Claims{Roles: []string{RoleUser, RoleAdmin}}).IsAdmin())
	assert.False(t, (&Claims{}).IsAdmin())
}

func TestJWTService_ValidateErrors(t *testing.T) {
	svc := newTestJWTService()
	token, err := svc.GenerateAccessToken(GenerateTokenInput{UserID: "user_1"})
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-of-32-characters",
			Issuer:                "test-issuer",
			AccessTokenExpiration: time.Minute,
		})
		_, err := other.ValidateAccessToken(token.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			Issuer:                "someone-else",
			AccessTokenExpiration: time.Minute,
		})
		_, err := other.ValidateAccessToken(token.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		svc := newTestJWTService()
		svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := svc.GenerateAccessToken(GenerateTokenInput{UserID: "user_1"})
		require.NoError(t, err)

		_, err = newTestJWTService().ValidateAccessToken(old.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		svc := newTestJWTService()
		svc.now = func() time.Time { return time.Now().Add(time.Hour) }
		future, err := svc.GenerateAccessToken(GenerateTokenInput{UserID: "user_1"})
		require.NoError(t, err)

		_, err = newTestJWTService().ValidateAccessToken(future.Token)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test-issuer"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			UserID:    "user_1",
			TokenType: TokenTypeAccess,
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test-issuer"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			UserID:    "user_1",
			TokenType: "refresh",
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("missing user id", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				Audience:  jwt.ClaimStrings{"test-issuer"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			TokenType: TokenTypeAccess,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(signed)
		assert.ErrorIs(t, err, ErrMissingUserID)
	})
}
