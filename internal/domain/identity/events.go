package identity

import (
	"github.com/billforge/backend/internal/domain/shared"
)

// AggregateTypeUser is the aggregate type for identity events
const AggregateTypeUser = "User"

// EventTypeSessionChanged is published when the identity provider reports
// a sign-in, sign-out or profile update.
const EventTypeSessionChanged = "identity.session_changed"

// SessionChangeKind is the kind of change reported by the provider
type SessionChangeKind string

const (
	SessionSignedIn    SessionChangeKind = "signed_in"
	SessionSignedOut   SessionChangeKind = "signed_out"
	SessionUserUpdated SessionChangeKind = "user_updated"
)

// IsValid checks the kind
func (k SessionChangeKind) IsValid() bool {
	switch k {
	case SessionSignedIn, SessionSignedOut, SessionUserUpdated:
		return true
	}
	return false
}

// SessionChangedEvent carries a provider notification into the event bus
type SessionChangedEvent struct {
	shared.BaseDomainEvent
	Kind     SessionChangeKind `json:"kind"`
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// NewSessionChangedEvent creates a SessionChangedEvent
func NewSessionChangedEvent(userID string, kind SessionChangeKind, metadata map[string]any) *SessionChangedEvent {
	return &SessionChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionChanged, AggregateTypeUser, userID, userID),
		Kind:            kind,
		Metadata:        metadata,
	}
}
