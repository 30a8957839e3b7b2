package billing

import (
	"context"

	"github.com/billforge/backend/internal/domain/shared/valueobject"
)

// GatewayOrderRequest asks the payment gateway to mint a hosted order
type GatewayOrderRequest struct {
	AmountMinor int64
	Currency    valueobject.Currency
	Receipt     string
	Notes       map[string]string
}

// GatewayOrder is what the gateway returns for a new order.
// PublicKeyID is the only gateway credential that may reach the browser.
type GatewayOrder struct {
	OrderID     string
	PublicKeyID string
	AmountMinor int64
	Currency    valueobject.Currency
}

// OrderGateway is the payment gateway port.
// Implementations return shared.ErrGatewayUnavailable (retryable) on
// timeouts, transport failures and gateway 5xx responses.
type OrderGateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
}
