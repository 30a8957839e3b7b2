package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

const (
	ordersPath = "/orders"
	// gateway receipts are limited to 40 characters
	maxReceiptLen = 40
)

// RazorpayAdapter implements billing.OrderGateway against the Razorpay Orders API
type RazorpayAdapter struct {
	config     RazorpayConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// RazorpayOption is a functional option for the adapter
type RazorpayOption func(*RazorpayAdapter)

// WithHTTPClient replaces the default client, e.g. with an instrumented one
func WithHTTPClient(client *http.Client) RazorpayOption {
	return func(a *RazorpayAdapter) {
		a.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RazorpayOption {
	return func(a *RazorpayAdapter) {
		a.logger = logger
	}
}

// NewRazorpayAdapter creates a new adapter
func NewRazorpayAdapter(cfg RazorpayConfig, opts ...RazorpayOption) (*RazorpayAdapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &RazorpayAdapter{
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return a, nil
}

// PublicKeyID returns the key id that checkout pages need
func (a *RazorpayAdapter) PublicKeyID() string {
	return a.config.KeyID
}

// CreateOrder mints a hosted order.
// Transport errors, timeouts and 5xx responses map to shared.ErrGatewayUnavailable.
func (a *RazorpayAdapter) CreateOrder(ctx context.Context, req billing.GatewayOrderRequest) (*billing.GatewayOrder, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency.String(),
		Receipt:  truncateReceipt(req.Receipt),
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to marshal request: %w", err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, ordersPath, body)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	if err := json.Unmarshal(respBody, &order); err != nil || order.ID == "" {
		return nil, shared.ErrGatewayUnavailable.WithCause(fmt.Errorf("razorpay: malformed order response"))
	}

	a.logger.Debug("Gateway order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount_minor", order.Amount),
		zap.String("currency", order.Currency))

	return &billing.GatewayOrder{
		OrderID:     order.ID,
		PublicKeyID: a.config.KeyID,
		AmountMinor: order.Amount,
		Currency:    valueobject.Currency(order.Currency),
	}, nil
}

// truncateReceipt cuts at a rune boundary so the receipt stays valid UTF-8
// within maxReceiptLen bytes.
func truncateReceipt(receipt string) string {
	if len(receipt) <= maxReceiptLen {
		return receipt
	}
	cut := maxReceiptLen
	for cut > 0 && !utf8.RuneStart(receipt[cut]) {
		cut--
	}
	return receipt[:cut]
}

func (a *RazorpayAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("razorpay: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(a.config.KeyID, a.config.KeySecret)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("Payment gateway request failed", zap.String("path", path), zap.Error(err))
		return nil, shared.ErrGatewayUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, shared.ErrGatewayUnavailable.WithCause(err)
	}

	if resp.StatusCode >= 400 {
		return nil, a.mapError(path, resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (a *RazorpayAdapter) mapError(path string, status int, body []byte) error {
	var errResp errorResponse
	_ = json.Unmarshal(body, &errResp)
	detail := errResp.Error.Description
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d", status)
	}
	cause := fmt.Errorf("razorpay %s: %s %s", path, errResp.Error.Code, detail)

	switch {
	case status >= 500 || status == http.StatusTooManyRequests:
		a.logger.Warn("Payment gateway unavailable", zap.Int("status", status), zap.String("detail", detail))
		return shared.ErrGatewayUnavailable.WithCause(cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		a.logger.Error("Payment gateway rejected credentials", zap.Int("status", status))
		return shared.ErrConfiguration.WithCause(cause)
	default:
		return shared.NewDomainError(shared.CodeInvalidInput, "Payment gateway rejected the order: "+detail)
	}
}

var _ billing.OrderGateway = (*RazorpayAdapter)(nil)
