package billing

import "context"

// MetricsRecorder receives billing counters. telemetry.BillingMetrics
// implements it; a nil recorder is replaced with a no-op.
type MetricsRecorder interface {
	RecordOrderCreated(ctx context.Context, planID string)
	RecordVerification(ctx context.Context, outcome string)
	RecordTransition(ctx context.Context, kind string, applied bool)
	RecordEntitlementCommitFailure(ctx context.Context, planID string)
	RecordQuotaRejection(ctx context.Context, planID string)
}

// Transition kinds
const (
	TransitionFree = "free"
	TransitionPaid = "paid"
)

type noopMetrics struct{}

func (noopMetrics) RecordOrderCreated(context.Context, string)             {}
func (noopMetrics) RecordVerification(context.Context, string)             {}
func (noopMetrics) RecordTransition(context.Context, string, bool)         {}
func (noopMetrics) RecordEntitlementCommitFailure(context.Context, string) {}
func (noopMetrics) RecordQuotaRejection(context.Context, string)           {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
