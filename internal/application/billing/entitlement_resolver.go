package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/document"
	"github.com/billforge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UsageCounter is implemented by UsageMeterService
type UsageCounter interface {
	CountThisMonth(ctx context.Context, userID string, docType document.Type) billing.UsageCount
}

// PlanAssignmentReader returns the plan id a user is assigned to
type PlanAssignmentReader interface {
	CurrentPlanID(ctx context.Context, userID string) (string, error)
}

// EntitlementResolver derives a user's effective plan and usage on demand.
// Nothing is written and nothing is cached beyond a single call.
type EntitlementResolver struct {
	plans         billing.PlanRepository
	usage         UsageCounter
	assignments   PlanAssignmentReader
	defaultPlanID string
	logger        *zap.Logger
}

// EntitlementResolverConfig holds the collaborators of the resolver
type EntitlementResolverConfig struct {
	Plans         billing.PlanRepository
	Usage         UsageCounter
	Assignments   PlanAssignmentReader
	DefaultPlanID string
	Logger        *zap.Logger
}

// NewEntitlementResolver creates an EntitlementResolver
func NewEntitlementResolver(cfg EntitlementResolverConfig) *EntitlementResolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultPlanID := cfg.DefaultPlanID
	if defaultPlanID == "" {
		defaultPlanID = billing.DefaultPlanID
	}
	return &EntitlementResolver{
		plans:         cfg.Plans,
		usage:         cfg.Usage,
		assignments:   cfg.Assignments,
		defaultPlanID: defaultPlanID,
		logger:        logger,
	}
}

// Resolve computes the entitlement for a user assigned to assignedPlanID.
// A missing assigned plan falls back to the default plan; a missing default
// plan is a configuration error.
func (r *EntitlementResolver) Resolve(ctx context.Context, userID, assignedPlanID string) (*billing.Entitlement, error) {
	plan, err := r.effectivePlan(ctx, userID, assignedPlanID)
	if err != nil {
		return nil, err
	}
	used := r.usage.CountThisMonth(ctx, userID, document.TypeInvoice)
	return billing.NewEntitlement(userID, assignedPlanID, plan, used), nil
}

// ResolveForUser looks up the user's current plan assignment and resolves it
func (r *EntitlementResolver) ResolveForUser(ctx context.Context, userID string) (*billing.Entitlement, error) {
	planID := r.defaultPlanID
	if r.assignments != nil {
		current, err := r.assignments.CurrentPlanID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("read plan assignment: %w", err)
		}
		planID = current
	}
	return r.Resolve(ctx, userID, planID)
}

// HasFeature is a pure capability lookup
func (r *EntitlementResolver) HasFeature(e *billing.Entitlement, feature billing.Feature) bool {
	return billing.HasFeature(e, feature)
}

func (r *EntitlementResolver) effectivePlan(ctx context.Context, userID, assignedPlanID string) (*billing.Plan, error) {
	if assignedPlanID != "" {
		plan, err := r.plans.FindByID(ctx, assignedPlanID)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("load assigned plan: %w", err)
		}
		r.logger.Warn("Assigned plan not found, falling back to default plan",
			zap.String("user_id", userID),
			zap.String("plan_id", assignedPlanID),
			zap.String("default_plan_id", r.defaultPlanID))
	}

	plan, err := r.plans.FindByID(ctx, r.defaultPlanID)
	if err == nil {
		return plan, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		r.logger.Error("Default plan is missing from the catalog",
			zap.String("default_plan_id", r.defaultPlanID),
			zap.String("user_id", userID))
		return nil, shared.NewDomainError(shared.CodeConfiguration,
			fmt.Sprintf("Default plan %q is not configured", r.defaultPlanID))
	}
	return nil, fmt.Errorf("load default plan: %w", err)
}
