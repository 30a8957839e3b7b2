package identity

import (
	"context"
	"fmt"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MetadataCache drops cached identity-provider users
type MetadataCache interface {
	Invalidate(ctx context.Context, userID string) error
}

// SessionChangedHandler evicts a user's cached metadata whenever the
// provider reports a session change, so the next plan lookup reads fresh data
type SessionChangedHandler struct {
	cache  MetadataCache
	logger *zap.Logger
}

// NewSessionChangedHandler creates a SessionChangedHandler
func NewSessionChangedHandler(cache MetadataCache, logger *zap.Logger) *SessionChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionChangedHandler{cache: cache, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *SessionChangedHandler) EventTypes() []string {
	return []string{identity.EventTypeSessionChanged}
}

// Handle implements shared.EventHandler
func (h *SessionChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*identity.SessionChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	if err := h.cache.Invalidate(ctx, changed.UserID()); err != nil {
		return fmt.Errorf("invalidate metadata cache: %w", err)
	}
	h.logger.Debug("Identity metadata cache invalidated",
		zap.String("user_id", changed.UserID()),
		zap.String("kind", string(changed.Kind)))
	return nil
}
