package billing

import (
	"context"
	"fmt"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PlanCatalogService serves and administers the plan catalog
type PlanCatalogService struct {
	plans         billing.PlanRepository
	defaultPlanID string
	logger        *zap.Logger
}

// NewPlanCatalogService creates a PlanCatalogService.
// An empty defaultPlanID falls back to billing.DefaultPlanID.
func NewPlanCatalogService(plans billing.PlanRepository, defaultPlanID string, logger *zap.Logger) *PlanCatalogService {
	if defaultPlanID == "" {
		defaultPlanID = billing.DefaultPlanID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanCatalogService{
		plans:         plans,
		defaultPlanID: defaultPlanID,
		logger:        logger,
	}
}

// DefaultPlanID returns the configured fallback plan id
func (s *PlanCatalogService) DefaultPlanID() string {
	return s.defaultPlanID
}

// List returns every plan ordered by sort order, then id
func (s *PlanCatalogService) List(ctx context.Context) ([]*billing.Plan, error) {
	plans, err := s.plans.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	billing.SortPlans(plans)
	return plans, nil
}

// Get returns one plan or shared.ErrNotFound
func (s *PlanCatalogService) Get(ctx context.Context, id string) (*billing.Plan, error) {
	return s.plans.FindByID(ctx, id)
}

// Create adds a plan. Plan ids are never reused.
func (s *PlanCatalogService) Create(ctx context.Context, in CreatePlanInput) (*billing.Plan, error) {
	attrs, err := in.attributes()
	if err != nil {
		return nil, err
	}
	plan, err := billing.NewPlan(in.ID, attrs)
	if err != nil {
		return nil, err
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Info("Plan created", zap.String("plan_id", plan.ID))
	return plan, nil
}

// Update replaces the attributes of an existing plan
func (s *PlanCatalogService) Update(ctx context.Context, id string, in PlanInput) (*billing.Plan, error) {
	plan, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	attrs, err := in.attributes()
	if err != nil {
		return nil, err
	}
	if err := plan.Update(attrs); err != nil {
		return nil, err
	}
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	s.logger.Info("Plan updated", zap.String("plan_id", plan.ID))
	return plan, nil
}

// Delete tombstones a plan. The default plan cannot be deleted because
// entitlement resolution falls back to it.
func (s *PlanCatalogService) Delete(ctx context.Context, id string) error {
	if id == s.defaultPlanID {
		return shared.NewDomainError(shared.CodeInvalidState, "The default plan cannot be deleted")
	}
	if err := s.plans.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Plan deleted", zap.String("plan_id", id))
	return nil
}
