package identity

import (
	"context"
	"fmt"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TokenRevoker invalidates bearer tokens already issued to a user
type TokenRevoker interface {
	RevokeUserTokens(ctx context.Context, userID string) error
}

// SignOutHandler revokes outstanding tokens when the provider reports a sign-out
type SignOutHandler struct {
	revoker TokenRevoker
	logger  *zap.Logger
}

// NewSignOutHandler creates a SignOutHandler
func NewSignOutHandler(revoker TokenRevoker, logger *zap.Logger) *SignOutHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignOutHandler{revoker: revoker, logger: logger}
}

// EventTypes implements shared.EventHandler
func (h *SignOutHandler) EventTypes() []string {
	return []string{identity.EventTypeSessionChanged}
}

// Handle implements shared.EventHandler
func (h *SignOutHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*identity.SessionChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	if changed.Kind != identity.SessionSignedOut {
		return nil
	}
	if err := h.revoker.RevokeUserTokens(ctx, changed.UserID()); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	h.logger.Info("Revoked tokens after sign-out", zap.String("user_id", changed.UserID()))
	return nil
}
