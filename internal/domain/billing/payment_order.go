package billing

import (
	"strings"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
)

// PaymentOrder is a gateway order minted for one paid plan transition.
// It is immutable once created; it is consumed by the ledger entry that
// references it, and an unconsumed order grants nothing.
type PaymentOrder struct {
	ID          string // gateway order id
	UserID      string
	PlanID      string
	AmountMinor int64
	Currency    valueobject.Currency
	PublicKeyID string
	CreatedAt   time.Time
}

// NewPaymentOrder records an order the gateway has just created
func NewPaymentOrder(gatewayOrderID, userID, planID string, amountMinor int64, currency valueobject.Currency, publicKeyID string) (*PaymentOrder, error) {
	if strings.TrimSpace(gatewayOrderID) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Gateway order id cannot be empty")
	}
	if userID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "User id cannot be empty")
	}
	if amountMinor <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Amount must be positive")
	}
	return &PaymentOrder{
		ID:          gatewayOrderID,
		UserID:      userID,
		PlanID:      planID,
		AmountMinor: amountMinor,
		Currency:    currency,
		PublicKeyID: publicKeyID,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Matches reports whether a verification request for userID and planID may consume this order
func (o *PaymentOrder) Matches(userID, planID string) bool {
	return o.UserID == userID && o.PlanID == planID
}

// Receipt is the gateway-signed tuple returned by the checkout widget
type Receipt struct {
	OrderID   string
	PaymentID string
	Signature string
}

// Validate checks that every part of the receipt is present
func (r Receipt) Validate() error {
	if r.OrderID == "" || r.PaymentID == "" || r.Signature == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Receipt requires order id, payment id and signature")
	}
	return nil
}

// VerificationStatus is the outcome of checking a receipt
type VerificationStatus string

const (
	VerificationVerified         VerificationStatus = "verified"
	VerificationInvalidSignature VerificationStatus = "invalid_signature"
)

// VerificationResult is returned by a successful verification.
// The caller must hand PaymentID to the plan transition exactly once.
type VerificationResult struct {
	Status    VerificationStatus
	OrderID   string
	PaymentID string
	PlanID    string
	Order     *PaymentOrder
}
