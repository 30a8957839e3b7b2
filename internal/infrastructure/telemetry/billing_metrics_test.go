package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewBillingMetrics_NilMeter(t *testing.T) {
	bm, err := NewBillingMetrics(nil, nil)
	assert.Nil(t, bm)

	var me *MetricsError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "NewBillingMetrics", me.Op)
}

func TestBillingMetrics_Counters(t *testing.T) {
	reader, mp := newTestMeter(t)
	bm, err := NewBillingMetrics(mp.Meter("test"), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOrderCreated(ctx, "pro")
	bm.RecordOrderCreated(ctx, "pro")
	bm.RecordOrderCreated(ctx, "business")
	bm.RecordVerification(ctx, "verified")
	bm.RecordVerification(ctx, "invalid_signature")
	bm.RecordTransition(ctx, "free", true)
	bm.RecordTransition(ctx, "paid", false)
	bm.RecordQuotaRejection(ctx, "free_tier")

	got := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumValue(t, got["billing_payment_orders_created_total"], AttrPlanID.String("pro")))
	assert.Equal(t, int64(1), sumValue(t, got["billing_payment_orders_created_total"], AttrPlanID.String("business")))
	assert.Equal(t, int64(1), sumValue(t, got["billing_payment_verifications_total"], AttrOutcome.String("invalid_signature")))
	assert.Equal(t, int64(1), sumValue(t, got["billing_plan_transitions_total"],
		AttrTransitionKind.String("free"), AttrApplied.Bool(true)))
	assert.Equal(t, int64(1), sumValue(t, got["billing_plan_transitions_total"],
		AttrTransitionKind.String("paid"), AttrApplied.Bool(false)))
	assert.Equal(t, int64(1), sumValue(t, got["billing_quota_rejections_total"], AttrPlanID.String("free_tier")))
}

func TestBillingMetrics_CommitFailureIsLogged(t *testing.T) {
	reader, mp := newTestMeter(t)
	core, logs := observer.New(zapcore.WarnLevel)
	bm, err := NewBillingMetrics(mp.Meter("test"), zap.New(core))
	require.NoError(t, err)

	bm.RecordEntitlementCommitFailure(context.Background(), "pro")

	got := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, got["billing_entitlement_commit_failures_total"], AttrPlanID.String("pro")))

	entries := logs.FilterField(zap.String("plan_id", "pro")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}
