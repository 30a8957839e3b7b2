package billing

import "context"

// PaymentOrderRepository persists gateway orders
type PaymentOrderRepository interface {
	Create(ctx context.Context, order *PaymentOrder) error
	FindByID(ctx context.Context, orderID string) (*PaymentOrder, error)
}

// SubscriptionRepository persists subscriptions and the payment ledger
type SubscriptionRepository interface {
	// FindByUserID returns shared.ErrNotFound when the user never had a plan
	FindByUserID(ctx context.Context, userID string) (*Subscription, error)

	// ApplyFree upserts the user's subscription to a free plan
	ApplyFree(ctx context.Context, userID, planID string) (*TransitionOutcome, error)

	// CommitPaid inserts the ledger entry and upserts the subscription in one
	// transaction. When the payment id is already in the ledger nothing is
	// written and Applied is false. When the order was consumed by a different
	// payment it fails with shared.ErrInvalidState.
	CommitPaid(ctx context.Context, entry *LedgerEntry) (*TransitionOutcome, error)

	// FindLedgerEntry returns the ledger row for a payment id
	FindLedgerEntry(ctx context.Context, paymentID string) (*LedgerEntry, error)
}
