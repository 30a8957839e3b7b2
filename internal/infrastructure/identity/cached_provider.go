package identity

import (
	"context"
	"time"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedProvider keeps recently read accounts in a bounded expiring LRU.
// Metadata writes and session-change events evict the user.
type CachedProvider struct {
	inner identity.Provider
	users *expirable.LRU[string, *identity.User]
}

// NewCachedProvider wraps inner
func NewCachedProvider(inner identity.Provider, size int, ttl time.Duration) *CachedProvider {
	if size <= 0 {
		size = 10000
	}
	return &CachedProvider{
		inner: inner,
		users: expirable.NewLRU[string, *identity.User](size, nil, ttl),
	}
}

// GetUser returns a copy of the cached account, loading it on a miss
func (c *CachedProvider) GetUser(ctx context.Context, userID string) (*identity.User, error) {
	if u, ok := c.users.Get(userID); ok {
		return copyUser(u), nil
	}
	u, err := c.inner.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.users.Add(userID, copyUser(u))
	return u, nil
}

// UpdateMetadata patches the provider and evicts the stale copy
func (c *CachedProvider) UpdateMetadata(ctx context.Context, userID string, patch identity.MetadataPatch) error {
	err := c.inner.UpdateMetadata(ctx, userID, patch)
	c.users.Remove(userID)
	return err
}

// Invalidate drops the cached account
func (c *CachedProvider) Invalidate(_ context.Context, userID string) error {
	c.users.Remove(userID)
	return nil
}

// Len returns the number of cached accounts
func (c *CachedProvider) Len() int {
	return c.users.Len()
}

func copyUser(u *identity.User) *identity.User {
	cp := *u
	cp.Metadata = identity.MetadataPatch(nil).Apply(u.Metadata)
	return &cp
}

var _ identity.Provider = (*CachedProvider)(nil)
