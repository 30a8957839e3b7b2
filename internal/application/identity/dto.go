package identity

import (
	"time"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// CreateAPIKeyRequest issues a new API key
type CreateAPIKeyRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// APIKeyResponse describes a key without its secret
type APIKeyResponse struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreatedAPIKeyResponse carries the plaintext key; it is only returned once
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

// ToAPIKeyResponse converts a domain key
func ToAPIKeyResponse(k *identity.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:         k.ID,
		Name:       k.Name,
		Prefix:     k.Prefix,
		LastUsedAt: k.LastUsedAt,
		RevokedAt:  k.RevokedAt,
		CreatedAt:  k.CreatedAt,
	}
}

// SessionWebhookPayload is the body the identity provider posts on session changes
type SessionWebhookPayload struct {
	EventID  string         `json:"event_id" binding:"required"`
	Kind     string         `json:"type" binding:"required"`
	UserID   string         `json:"user_id" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}
