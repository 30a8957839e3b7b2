package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPlanCatalogService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)

	business, _ := billing.NewPlan("business", billing.PlanAttributes{Name: "Business", PriceMinor: 99900, SortOrder: 2})
	team, _ := billing.NewPlan("agency", billing.PlanAttributes{Name: "Agency", PriceMinor: 99900, SortOrder: 2})
	repo.On("FindAll", ctx).Return([]*billing.Plan{business, proPlan(), team, freePlan()}, nil)

	svc := NewPlanCatalogService(repo, "", nil)
	plans, err := svc.List(ctx)

	require.NoError(t, err)
	ids := make([]string, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
	}
	assert.Equal(t, []string{"free_tier", "pro", "agency", "business"}, ids)
}

func TestPlanCatalogService_Get(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)
	repo.On("FindByID", ctx, "pro").Return(proPlan(), nil)
	repo.On("FindByID", ctx, "gold").Return(nil, shared.ErrNotFound)

	svc := NewPlanCatalogService(repo, "", nil)

	plan, err := svc.Get(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, "Pro", plan.Name)

	_, err = svc.Get(ctx, "gold")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPlanCatalogService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates plan", func(t *testing.T) {
		repo := new(mockPlanRepository)
		repo.On("Create", ctx, mock.MatchedBy(func(p *billing.Plan) bool {
			return p.ID == "team" && p.HasFeature(billing.FeatureAPIAccess) && p.Currency == "USD"
		})).Return(nil)

		svc := NewPlanCatalogService(repo, "", nil)
		plan, err := svc.Create(ctx, CreatePlanInput{
			ID: "team",
			PlanInput: PlanInput{
				Name:       "Team",
				PriceMinor: 1900,
				Currency:   "usd",
				Features:   []string{"api_access"},
			},
		})

		require.NoError(t, err)
		assert.Nil(t, plan.InvoiceLimit)
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown feature before writing", func(t *testing.T) {
		repo := new(mockPlanRepository)
		svc := NewPlanCatalogService(repo, "", nil)

		_, err := svc.Create(ctx, CreatePlanInput{ID: "team", PlanInput: PlanInput{Name: "Team", Features: []string{"teleport"}}})

		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("reused id", func(t *testing.T) {
		repo := new(mockPlanRepository)
		repo.On("Create", ctx, mock.Anything).Return(shared.ErrAlreadyExists)
		svc := NewPlanCatalogService(repo, "", nil)

		_, err := svc.Create(ctx, CreatePlanInput{ID: "pro", PlanInput: PlanInput{Name: "Pro"}})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestPlanCatalogService_Update(t *testing.T) {
	ctx := context.Background()
	repo := new(mockPlanRepository)
	repo.On("FindByID", ctx, "pro").Return(proPlan(), nil)
	repo.On("Update", ctx, mock.MatchedBy(func(p *billing.Plan) bool {
		return p.PriceMinor == 59900 && p.InvoiceLimit != nil && *p.InvoiceLimit == 100
	})).Return(nil)

	svc := NewPlanCatalogService(repo, "", nil)
	plan, err := svc.Update(ctx, "pro", PlanInput{Name: "Pro", PriceMinor: 59900, InvoiceLimit: billing.IntPtr(100)})

	require.NoError(t, err)
	assert.Equal(t, int64(59900), plan.PriceMinor)
	repo.AssertExpectations(t)
}

func TestPlanCatalogService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses default plan", func(t *testing.T) {
		repo := new(mockPlanRepository)
		svc := NewPlanCatalogService(repo, "free_tier", nil)

		err := svc.Delete(ctx, "free_tier")

		assert.ErrorIs(t, err, shared.ErrInvalidState)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("deletes other plans", func(t *testing.T) {
		repo := new(mockPlanRepository)
		repo.On("Delete", ctx, "pro").Return(nil)
		svc := NewPlanCatalogService(repo, "free_tier", nil)

		require.NoError(t, svc.Delete(ctx, "pro"))
		repo.AssertExpectations(t)
	})

	t.Run("propagates store errors", func(t *testing.T) {
		repo := new(mockPlanRepository)
		repo.On("Delete", ctx, "pro").Return(errors.New("db down"))
		svc := NewPlanCatalogService(repo, "free_tier", nil)

		assert.Error(t, svc.Delete(ctx, "pro"))
	})
}
