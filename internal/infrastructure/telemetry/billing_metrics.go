package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BillingMetrics counts checkout, verification and plan-change activity.
// It satisfies the billing and document services' metrics interfaces.
type BillingMetrics struct {
	logger *zap.Logger

	ordersCreated   *Counter
	verifications   *Counter
	transitions     *Counter
	commitFailures  *Counter
	quotaRejections *Counter
}

// NewBillingMetrics creates the billing counters on meter
func NewBillingMetrics(meter metric.Meter, logger *zap.Logger) (*BillingMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{logger: logger}
	var err error

	if bm.ordersCreated, err = NewCounter(meter,
		"billing_payment_orders_created_total",
		"Payment orders created with the gateway",
		"{orders}",
	); err != nil {
		return nil, err
	}
	if bm.verifications, err = NewCounter(meter,
		"billing_payment_verifications_total",
		"Payment verification attempts by outcome",
		"{verifications}",
	); err != nil {
		return nil, err
	}
	if bm.transitions, err = NewCounter(meter,
		"billing_plan_transitions_total",
		"Plan transitions by kind and whether anything changed",
		"{transitions}",
	); err != nil {
		return nil, err
	}
	if bm.commitFailures, err = NewCounter(meter,
		"billing_entitlement_commit_failures_total",
		"Verified payments whose plan change could not be committed",
		"{failures}",
	); err != nil {
		return nil, err
	}
	if bm.quotaRejections, err = NewCounter(meter,
		"billing_quota_rejections_total",
		"Invoice creations rejected by the monthly plan limit",
		"{rejections}",
	); err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordOrderCreated counts a gateway order for planID
func (m *BillingMetrics) RecordOrderCreated(ctx context.Context, planID string) {
	m.ordersCreated.Inc(ctx, AttrPlanID.String(planID))
}

// RecordVerification counts a verification attempt by outcome
func (m *BillingMetrics) RecordVerification(ctx context.Context, outcome string) {
	m.verifications.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordTransition counts a free or paid transition
func (m *BillingMetrics) RecordTransition(ctx context.Context, kind string, applied bool) {
	m.transitions.Inc(ctx, AttrTransitionKind.String(kind), AttrApplied.Bool(applied))
}

// RecordEntitlementCommitFailure counts a paid transition stuck after payment.
// These need operator follow-up, so each one is also logged.
func (m *BillingMetrics) RecordEntitlementCommitFailure(ctx context.Context, planID string) {
	m.commitFailures.Inc(ctx, AttrPlanID.String(planID))
	m.logger.Warn("Entitlement commit failed after verified payment", zap.String("plan_id", planID))
}

// RecordQuotaRejection counts an invoice blocked by the plan limit
func (m *BillingMetrics) RecordQuotaRejection(ctx context.Context, planID string) {
	m.quotaRejections.Inc(ctx, AttrPlanID.String(planID))
}
