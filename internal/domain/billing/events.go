package billing

import "github.com/billforge/backend/internal/domain/shared"

const (
	// AggregateTypeSubscription is the aggregate type for subscription events
	AggregateTypeSubscription = "Subscription"

	EventTypePlanChanged = "billing.plan_changed"
)

// PlanChangedEvent is published after a plan transition commits
type PlanChangedEvent struct {
	shared.BaseDomainEvent
	FromPlanID string  `json:"from_plan_id"`
	ToPlanID   string  `json:"to_plan_id"`
	PaymentID  *string `json:"payment_id,omitempty"`
}

// NewPlanChangedEvent creates a PlanChangedEvent
func NewPlanChangedEvent(userID, fromPlanID, toPlanID string, paymentID *string) *PlanChangedEvent {
	return &PlanChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlanChanged, AggregateTypeSubscription, userID, userID),
		FromPlanID:      fromPlanID,
		ToPlanID:        toPlanID,
		PaymentID:       paymentID,
	}
}
