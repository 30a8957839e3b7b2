package billing

import (
	"time"

	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SubscriptionStatus is the status flag written alongside the plan id
type SubscriptionStatus string

const (
	SubscriptionActive SubscriptionStatus = "active"
)

// Subscription records which plan a user is on.
// It is the source of truth; the identity provider metadata mirrors it.
type Subscription struct {
	UserID          string
	PlanID          string
	Status          SubscriptionStatus
	SourcePaymentID *string // nil for free plan transitions
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSubscription builds an active subscription for the user
func NewSubscription(userID, planID string, paymentID *string) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		UserID:          userID,
		PlanID:          planID,
		Status:          SubscriptionActive,
		SourcePaymentID: paymentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// LedgerEntry records that a verified payment was applied.
// PaymentID is unique across the ledger; a second entry for the same
// payment is never written.
type LedgerEntry struct {
	ID          uuid.UUID
	PaymentID   string
	OrderID     string
	UserID      string
	PlanID      string
	AmountMinor int64
	Currency    valueobject.Currency
	CreatedAt   time.Time
}

// NewLedgerEntry builds the ledger row for a verified order and payment
func NewLedgerEntry(order *PaymentOrder, paymentID string) *LedgerEntry {
	return &LedgerEntry{
		ID:          uuid.New(),
		PaymentID:   paymentID,
		OrderID:     order.ID,
		UserID:      order.UserID,
		PlanID:      order.PlanID,
		AmountMinor: order.AmountMinor,
		Currency:    order.Currency,
		CreatedAt:   time.Now().UTC(),
	}
}

// TransitionOutcome describes what a commit did
type TransitionOutcome struct {
	Applied      bool          // false when the payment was already recorded
	Subscription *Subscription // current subscription after the commit
	PreviousPlan string        // plan before the change, "" if none
}
