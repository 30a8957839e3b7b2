package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PlanTransitionCoordinator switches users between plans.
//
// The subscription row is written first, in the same transaction as the
// payment ledger entry for paid plans. The identity provider metadata is
// patched afterwards as a cache. A failure of either write after a verified
// payment surfaces as EntitlementCommitFailed so that operators can reconcile
// from the gateway records; retrying with the same payment id is safe.
type PlanTransitionCoordinator struct {
	plans     billing.PlanRepository
	subs      billing.SubscriptionRepository
	provider  identity.Provider
	publisher shared.EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// PlanTransitionCoordinatorConfig holds the collaborators of the coordinator
type PlanTransitionCoordinatorConfig struct {
	Plans     billing.PlanRepository
	Subs      billing.SubscriptionRepository
	Provider  identity.Provider
	Publisher shared.EventPublisher
	Metrics   MetricsRecorder
	Logger    *zap.Logger
}

// NewPlanTransitionCoordinator creates a PlanTransitionCoordinator
func NewPlanTransitionCoordinator(cfg PlanTransitionCoordinatorConfig) *PlanTransitionCoordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanTransitionCoordinator{
		plans:     cfg.Plans,
		subs:      cfg.Subs,
		provider:  cfg.Provider,
		publisher: cfg.Publisher,
		metrics:   metricsOrNoop(cfg.Metrics),
		logger:    logger,
	}
}

// ApplyFreePlan moves the user to a plan that costs nothing
func (c *PlanTransitionCoordinator) ApplyFreePlan(ctx context.Context, userID, planID string) (*TransitionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "plan_transition", "apply_free")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPlanID, planID)

	plan, err := c.plans.FindByID(ctx, planID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !plan.IsFree() {
		err := shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Plan %s requires payment", plan.ID))
		telemetry.RecordError(span, err)
		return nil, err
	}

	outcome, err := c.subs.ApplyFree(ctx, userID, plan.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("apply free plan: %w", err)
	}

	if err := c.syncMetadata(ctx, outcome.Subscription); err != nil {
		c.logger.Error("Plan metadata sync failed after free plan change",
			zap.String("user_id", userID),
			zap.String("plan_id", plan.ID),
			zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.ErrEntitlementCommit.WithCause(err)
	}

	c.metrics.RecordTransition(ctx, TransitionFree, outcome.Applied)
	if outcome.Applied {
		c.publish(ctx, billing.NewPlanChangedEvent(userID, outcome.PreviousPlan, plan.ID, nil))
	}
	c.logger.Info("Free plan applied",
		zap.String("user_id", userID),
		zap.String("plan_id", plan.ID),
		zap.String("previous_plan_id", outcome.PreviousPlan))

	return &TransitionResult{
		PlanID:         plan.ID,
		PreviousPlanID: outcome.PreviousPlan,
		Applied:        outcome.Applied,
	}, nil
}

// ApplyPaidPlan grants the plan of a verified payment. It is idempotent on
// the payment id: a payment already in the ledger changes nothing and only
// re-syncs the metadata cache from the stored subscription.
func (c *PlanTransitionCoordinator) ApplyPaidPlan(ctx context.Context, userID string, verified *billing.VerificationResult) (*TransitionResult, error) {
	if verified == nil || verified.Status != billing.VerificationVerified || verified.Order == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Payment has not been verified")
	}
	if verified.Order.UserID != userID {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Payment belongs to another user")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "plan_transition", "apply_paid")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPlanID, verified.PlanID,
		telemetry.SpanAttrOrderID, verified.OrderID,
		telemetry.SpanAttrPaymentID, verified.PaymentID,
	)

	paymentID := verified.PaymentID
	fields := []zap.Field{
		zap.String("user_id", userID),
		zap.String("plan_id", verified.PlanID),
		zap.String("order_id", verified.OrderID),
		zap.String("payment_id", paymentID),
	}

	outcome, err := c.subs.CommitPaid(ctx, billing.NewLedgerEntry(verified.Order, paymentID))
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrInvalidState) {
			c.logger.Warn("Payment order already consumed by another payment", fields...)
			return nil, err
		}
		c.metrics.RecordEntitlementCommitFailure(ctx, verified.PlanID)
		c.logger.Error("Verified payment could not be committed, reconcile from gateway records",
			append(fields, zap.Error(err))...)
		return nil, shared.ErrEntitlementCommit.WithCause(err)
	}

	if err := c.syncMetadata(ctx, outcome.Subscription); err != nil {
		telemetry.RecordError(span, err)
		c.metrics.RecordEntitlementCommitFailure(ctx, verified.PlanID)
		c.logger.Error("Plan metadata sync failed after verified payment",
			append(fields, zap.Bool("ledger_applied", outcome.Applied), zap.Error(err))...)
		return nil, shared.ErrEntitlementCommit.WithCause(err)
	}

	c.metrics.RecordTransition(ctx, TransitionPaid, outcome.Applied)
	if outcome.Applied {
		c.publish(ctx, billing.NewPlanChangedEvent(userID, outcome.PreviousPlan, outcome.Subscription.PlanID, &paymentID))
		c.logger.Info("Paid plan applied", append(fields, zap.String("previous_plan_id", outcome.PreviousPlan))...)
	} else {
		c.logger.Info("Duplicate payment ignored, entitlement already granted", fields...)
	}

	return &TransitionResult{
		PlanID:         outcome.Subscription.PlanID,
		PreviousPlanID: outcome.PreviousPlan,
		Applied:        outcome.Applied,
		PaymentID:      &paymentID,
	}, nil
}

// syncMetadata patches only the planId and status keys
func (c *PlanTransitionCoordinator) syncMetadata(ctx context.Context, sub *billing.Subscription) error {
	if c.provider == nil || sub == nil {
		return nil
	}
	patch := identity.PlanMetadataPatch(sub.PlanID, string(sub.Status))
	return c.provider.UpdateMetadata(ctx, sub.UserID, patch)
}

func (c *PlanTransitionCoordinator) publish(ctx context.Context, event shared.DomainEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("Failed to publish plan change event",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	}
}
