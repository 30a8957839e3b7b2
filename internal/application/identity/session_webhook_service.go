package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// webhookNamespace derives stable event ids from provider event ids so that
// redeliveries of the same notification share one id.
var webhookNamespace = uuid.MustParse("6f1c9d2e-4b1a-5c7e-9a3d-2e8f0b4c6d1a")

// SessionWebhookService turns signed identity-provider notifications into
// identity.session_changed events
type SessionWebhookService struct {
	secret    []byte
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewSessionWebhookService creates a SessionWebhookService
func NewSessionWebhookService(secret string, publisher shared.EventPublisher, logger *zap.Logger) *SessionWebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionWebhookService{secret: []byte(secret), publisher: publisher, logger: logger}
}

// SignWebhook returns the hex HMAC-SHA256 of body
func SignWebhook(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Handle verifies the signature over the raw body, then publishes the event
func (s *SessionWebhookService) Handle(ctx context.Context, body []byte, signature string) error {
	if len(s.secret) == 0 {
		s.logger.Error("Identity webhook secret is not configured")
		return shared.NewDomainError(shared.CodeConfiguration, "Identity webhook is not configured")
	}
	expected := SignWebhook(s.secret, body)
	if signature == "" || !hmac.Equal([]byte(expected), []byte(signature)) {
		return shared.NewDomainError(shared.CodeInvalidSignature, "Webhook signature verification failed")
	}

	var payload SessionWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Malformed webhook payload")
	}
	kind := identity.SessionChangeKind(payload.Kind)
	if payload.EventID == "" || payload.UserID == "" || !kind.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unsupported webhook event %q", payload.Kind))
	}

	event := identity.NewSessionChangedEvent(payload.UserID, kind, payload.Metadata)
	event.ID = uuid.NewSHA1(webhookNamespace, []byte(payload.EventID))

	s.logger.Debug("Identity session change received",
		zap.String("user_id", payload.UserID),
		zap.String("kind", payload.Kind),
		zap.String("provider_event_id", payload.EventID))
	return s.publisher.Publish(ctx, event)
}
