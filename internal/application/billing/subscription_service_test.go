package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type failingSubscriptionStore struct {
	*fakeSubscriptionStore
	err error
}

func (f *failingSubscriptionStore) FindByUserID(context.Context, string) (*billing.Subscription, error) {
	return nil, f.err
}

func TestSubscriptionService_CurrentPlanID(t *testing.T) {
	ctx := context.Background()

	t.Run("subscription row wins over metadata", func(t *testing.T) {
		store := newFakeSubscriptionStore()
		_, err := store.ApplyFree(ctx, "user-1", "starter")
		require.NoError(t, err)
		provider := new(mockIdentityProvider)

		svc := NewSubscriptionService(store, provider, "", nil)
		planID, err := svc.CurrentPlanID(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, "starter", planID)
		provider.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("falls back to provider metadata", func(t *testing.T) {
		provider := new(mockIdentityProvider)
		provider.On("GetUser", mock.Anything, "user-2").Return(&identity.User{
			ID:       "user-2",
			Metadata: map[string]any{identity.MetadataKeyPlanID: "pro"},
		}, nil)

		svc := NewSubscriptionService(newFakeSubscriptionStore(), provider, "", nil)
		planID, err := svc.CurrentPlanID(ctx, "user-2")

		require.NoError(t, err)
		assert.Equal(t, "pro", planID)
	})

	t.Run("default plan when metadata is empty", func(t *testing.T) {
		provider := new(mockIdentityProvider)
		provider.On("GetUser", mock.Anything, "user-3").Return(&identity.User{ID: "user-3"}, nil)

		svc := NewSubscriptionService(newFakeSubscriptionStore(), provider, "", nil)
		planID, err := svc.CurrentPlanID(ctx, "user-3")

		require.NoError(t, err)
		assert.Equal(t, billing.DefaultPlanID, planID)
	})

	t.Run("unreachable provider does not block", func(t *testing.T) {
		provider := new(mockIdentityProvider)
		provider.On("GetUser", mock.Anything, "user-4").Return(nil, shared.ErrGatewayUnavailable)

		svc := NewSubscriptionService(newFakeSubscriptionStore(), provider, "basic", nil)
		planID, err := svc.CurrentPlanID(ctx, "user-4")

		require.NoError(t, err)
		assert.Equal(t, "basic", planID)
	})

	t.Run("no provider configured", func(t *testing.T) {
		svc := NewSubscriptionService(newFakeSubscriptionStore(), nil, "", nil)
		planID, err := svc.CurrentPlanID(ctx, "user-5")

		require.NoError(t, err)
		assert.Equal(t, billing.DefaultPlanID, planID)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		boom := errors.New("connection reset")
		store := &failingSubscriptionStore{fakeSubscriptionStore: newFakeSubscriptionStore(), err: boom}

		svc := NewSubscriptionService(store, nil, "", nil)
		_, err := svc.CurrentPlanID(ctx, "user-6")

		assert.ErrorIs(t, err, boom)
	})
}
