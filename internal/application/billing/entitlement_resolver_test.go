package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/document"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newResolver(plans *mockPlanRepository, counter *mockDocumentCounter) *EntitlementResolver {
	return NewEntitlementResolver(EntitlementResolverConfig{
		Plans: plans,
		Usage: NewUsageMeterService(counter, nil),
	})
}

func TestEntitlementResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	anyTime := mock.AnythingOfType("time.Time")

	t.Run("free tier below and at the limit", func(t *testing.T) {
		for _, tc := range []struct {
			used    int64
			reached bool
		}{{2, false}, {3, true}, {4, true}} {
			plans := new(mockPlanRepository)
			plans.On("FindByID", ctx, "free_tier").Return(freePlan(), nil)
			counter := new(mockDocumentCounter)
			counter.On("CountCreated", ctx, "user_1", document.TypeInvoice, anyTime, anyTime).Return(tc.used, nil)

			ent, err := newResolver(plans, counter).Resolve(ctx, "user_1", "free_tier")

			require.NoError(t, err)
			assert.Equal(t, tc.reached, ent.IsLimitReached, "used=%d", tc.used)
			assert.Equal(t, tc.used, ent.UsedThisMonth)
			assert.False(t, ent.FellBack)
		}
	})

	t.Run("unlimited plan is never reached", func(t *testing.T) {
		plans := new(mockPlanRepository)
		plans.On("FindByID", ctx, "pro").Return(proPlan(), nil)
		counter := new(mockDocumentCounter)
		counter.On("CountCreated", ctx, "user_1", document.TypeInvoice, anyTime, anyTime).Return(int64(5000), nil)

		ent, err := newResolver(plans, counter).Resolve(ctx, "user_1", "pro")

		require.NoError(t, err)
		assert.False(t, ent.IsLimitReached)
		assert.True(t, billing.HasFeature(ent, billing.FeatureAdvancedReports))
		assert.False(t, billing.HasFeature(ent, billing.FeatureAPIAccess))
	})

	t.Run("missing assigned plan falls back to default", func(t *testing.T) {
		plans := new(mockPlanRepository)
		plans.On("FindByID", ctx, "legacy").Return(nil, shared.ErrNotFound)
		plans.On("FindByID", ctx, "free_tier").Return(freePlan(), nil)
		counter := new(mockDocumentCounter)
		counter.On("CountCreated", ctx, "user_1", document.TypeInvoice, anyTime, anyTime).Return(int64(0), nil)

		ent, err := newResolver(plans, counter).Resolve(ctx, "user_1", "legacy")

		require.NoError(t, err)
		assert.Equal(t, "free_tier", ent.EffectivePlan.ID)
		assert.Equal(t, "legacy", ent.PlanID)
		assert.True(t, ent.FellBack)
	})

	t.Run("missing default plan is a configuration error", func(t *testing.T) {
		plans := new(mockPlanRepository)
		plans.On("FindByID", ctx, "legacy").Return(nil, shared.ErrNotFound)
		plans.On("FindByID", ctx, "free_tier").Return(nil, shared.ErrNotFound)

		_, err := newResolver(plans, new(mockDocumentCounter)).Resolve(ctx, "user_1", "legacy")

		assert.ErrorIs(t, err, shared.ErrConfiguration)
		assert.False(t, shared.IsRetryable(err))
	})

	t.Run("unknown usage never blocks", func(t *testing.T) {
		plans := new(mockPlanRepository)
		plans.On("FindByID", ctx, "free_tier").Return(freePlan(), nil)
		counter := new(mockDocumentCounter)
		counter.On("CountCreated", ctx, "user_1", document.TypeInvoice, anyTime, anyTime).Return(int64(0), errors.New("db down"))

		ent, err := newResolver(plans, counter).Resolve(ctx, "user_1", "free_tier")

		require.NoError(t, err)
		assert.False(t, ent.UsageKnown)
		assert.False(t, ent.IsLimitReached)
		assert.Equal(t, int64(-1), ent.RemainingInvoices())
	})

	t.Run("plan store failure is not masked as fallback", func(t *testing.T) {
		plans := new(mockPlanRepository)
		plans.On("FindByID", ctx, "pro").Return(nil, errors.New("connection refused"))

		_, err := newResolver(plans, new(mockDocumentCounter)).Resolve(ctx, "user_1", "pro")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, shared.ErrConfiguration)
	})
}

type staticAssignments string

func (s staticAssignments) CurrentPlanID(context.Context, string) (string, error) {
	return string(s), nil
}

func TestEntitlementResolver_ResolveForUser(t *testing.T) {
	ctx := context.Background()
	plans := new(mockPlanRepository)
	plans.On("FindByID", ctx, "pro").Return(proPlan(), nil)
	counter := new(mockDocumentCounter)
	counter.On("CountCreated", ctx, "user_1", document.TypeInvoice, mock.Anything, mock.Anything).Return(int64(1), nil)

	r := NewEntitlementResolver(EntitlementResolverConfig{
		Plans:       plans,
		Usage:       NewUsageMeterService(counter, nil),
		Assignments: staticAssignments("pro"),
	})
	ent, err := r.ResolveForUser(ctx, "user_1")

	require.NoError(t, err)
	assert.Equal(t, "pro", ent.EffectivePlan.ID)
	assert.True(t, r.HasFeature(ent, billing.FeatureBranding))
}
