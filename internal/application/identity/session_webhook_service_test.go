package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

const webhookSecret = "whsec_test"

func TestSessionWebhookService_Handle(t *testing.T) {
	ctx := context.Background()
	body := []byte(`{"event_id":"evt_1","type":"user_updated","user_id":"user_1","metadata":{"planId":"pro"}}`)

	t.Run("valid signature publishes event", func(t *testing.T) {
		pub := &capturePublisher{}
		svc := NewSessionWebhookService(webhookSecret, pub, nil)

		require.NoError(t, svc.Handle(ctx, body, SignWebhook([]byte(webhookSecret), body)))

		require.Len(t, pub.events, 1)
		ev, ok := pub.events[0].(*identity.SessionChangedEvent)
		require.True(t, ok)
		assert.Equal(t, "user_1", ev.UserID())
		assert.Equal(t, identity.SessionUserUpdated, ev.Kind)
		assert.Equal(t, "pro", ev.Metadata["planId"])
	})

	t.Run("redelivery keeps the event id", func(t *testing.T) {
		pub := &capturePublisher{}
		svc := NewSessionWebhookService(webhookSecret, pub, nil)
		sig := SignWebhook([]byte(webhookSecret), body)

		require.NoError(t, svc.Handle(ctx, body, sig))
		require.NoError(t, svc.Handle(ctx, body, sig))

		require.Len(t, pub.events, 2)
		assert.Equal(t, pub.events[0].EventID(), pub.events[1].EventID())
	})

	t.Run("bad signature", func(t *testing.T) {
		pub := &capturePublisher{}
		svc := NewSessionWebhookService(webhookSecret, pub, nil)

		err := svc.Handle(ctx, body, SignWebhook([]byte("other"), body))

		assert.ErrorIs(t, err, shared.ErrInvalidSignature)
		assert.Empty(t, pub.events)

		assert.ErrorIs(t, svc.Handle(ctx, body, ""), shared.ErrInvalidSignature)
	})

	t.Run("unknown kind", func(t *testing.T) {
		svc := NewSessionWebhookService(webhookSecret, &capturePublisher{}, nil)
		bad := []byte(`{"event_id":"evt_2","type":"deleted","user_id":"user_1"}`)

		err := svc.Handle(ctx, bad, SignWebhook([]byte(webhookSecret), bad))

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("missing secret", func(t *testing.T) {
		svc := NewSessionWebhookService("", &capturePublisher{}, nil)
		assert.ErrorIs(t, svc.Handle(ctx, body, "x"), shared.ErrConfiguration)
	})
}

type recordingCache struct {
	invalidated []string
	err         error
}

func (c *recordingCache) Invalidate(_ context.Context, userID string) error {
	c.invalidated = append(c.invalidated, userID)
	return c.err
}

func TestSessionChangedHandler(t *testing.T) {
	ctx := context.Background()
	cache := &recordingCache{}
	h := NewSessionChangedHandler(cache, nil)

	assert.Equal(t, []string{identity.EventTypeSessionChanged}, h.EventTypes())
	require.NoError(t, h.Handle(ctx, identity.NewSessionChangedEvent("user_1", identity.SessionSignedIn, nil)))
	assert.Equal(t, []string{"user_1"}, cache.invalidated)

	cache.err = errors.New("redis down")
	assert.Error(t, h.Handle(ctx, identity.NewSessionChangedEvent("user_1", identity.SessionSignedOut, nil)))
}

type recordingRevoker struct {
	revoked []string
}

func (r *recordingRevoker) RevokeUserTokens(_ context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

func TestSignOutHandler(t *testing.T) {
	ctx := context.Background()
	revoker := &recordingRevoker{}
	h := NewSignOutHandler(revoker, nil)

	require.NoError(t, h.Handle(ctx, identity.NewSessionChangedEvent("user_1", identity.SessionSignedIn, nil)))
	require.NoError(t, h.Handle(ctx, identity.NewSessionChangedEvent("user_1", identity.SessionUserUpdated, nil)))
	assert.Empty(t, revoker.revoked)

	require.NoError(t, h.Handle(ctx, identity.NewSessionChangedEvent("user_2", identity.SessionSignedOut, nil)))
	assert.Equal(t, []string{"user_2"}, revoker.revoked)
}
