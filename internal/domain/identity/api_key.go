package identity

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// APIKeyPrefix marks plaintext keys issued by this service
const APIKeyPrefix = "bf_"

const (
	apiKeyLookupLen = 8
	apiKeySecretLen = 32
	bcryptCost      = 12
)

var keyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// APIKey lets a user call the API without an access token.
// Only the bcrypt hash of the secret is stored; the plaintext is shown once.
type APIKey struct {
	ID         uuid.UUID
	OwnerID    string
	Name       string
	Prefix     string // public lookup part, "bf_XXXXXXXX"
	Hash       string
	LastUsedAt *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// GenerateAPIKey creates a key and returns it with its plaintext form
// "bf_<lookup>_<secret>".
func GenerateAPIKey(ownerID, name string) (*APIKey, string, error) {
	if ownerID == "" {
		return nil, "", shared.NewDomainError(shared.CodeInvalidInput, "Owner cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", shared.NewDomainError(shared.CodeInvalidInput, "API key name cannot be empty")
	}
	if len(name) > 100 {
		return nil, "", shared.NewDomainError(shared.CodeInvalidInput, "API key name cannot exceed 100 characters")
	}

	lookup, err := randomToken(apiKeyLookupLen)
	if err != nil {
		return nil, "", err
	}
	secret, err := randomToken(apiKeySecretLen)
	if err != nil {
		return nil, "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		return nil, "", err
	}

	prefix := APIKeyPrefix + lookup
	return &APIKey{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Prefix:    prefix,
		Hash:      string(hash),
		CreatedAt: time.Now().UTC(),
	}, prefix + "_" + secret, nil
}

// SplitAPIKey splits a plaintext key into its lookup prefix and secret
func SplitAPIKey(plaintext string) (prefix, secret string, err error) {
	if !strings.HasPrefix(plaintext, APIKeyPrefix) {
		return "", "", shared.ErrUnauthorized
	}
	rest := strings.TrimPrefix(plaintext, APIKeyPrefix)
	lookup, secret, ok := strings.Cut(rest, "_")
	if !ok || len(lookup) != apiKeyLookupLen || len(secret) != apiKeySecretLen {
		return "", "", shared.ErrUnauthorized
	}
	return APIKeyPrefix + lookup, secret, nil
}

// Verify checks the secret part against the stored hash
func (k *APIKey) Verify(secret string) bool {
	if !k.IsActive() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(secret)) == nil
}

// IsActive reports whether the key has not been revoked
func (k *APIKey) IsActive() bool {
	return k.RevokedAt == nil
}

// Revoke disables the key
func (k *APIKey) Revoke() error {
	if !k.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidState, "API key is already revoked")
	}
	now := time.Now().UTC()
	k.RevokedAt = &now
	return nil
}

// MarkUsed records the last successful authentication
func (k *APIKey) MarkUsed(at time.Time) {
	at = at.UTC()
	k.LastUsedAt = &at
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToLower(keyEncoding.EncodeToString(buf))[:n], nil
}
