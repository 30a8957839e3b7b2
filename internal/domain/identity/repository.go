package identity

import (
	"context"

	"github.com/google/uuid"
)

// APIKeyRepository persists API keys
type APIKeyRepository interface {
	Create(ctx context.Context, key *APIKey) error
	FindByPrefix(ctx context.Context, prefix string) (*APIKey, error)
	FindByIDForOwner(ctx context.Context, ownerID string, id uuid.UUID) (*APIKey, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*APIKey, error)
	Update(ctx context.Context, key *APIKey) error
}
