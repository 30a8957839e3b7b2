package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *RazorpayAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := NewRazorpayAdapter(RazorpayConfig{
		BaseURL:   srv.URL + "/",
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		Timeout:   200 * time.Millisecond,
	})
	require.NoError(t, err)
	return a
}

func orderRequest() billing.GatewayOrderRequest {
	return billing.GatewayOrderRequest{
		AmountMinor: 49900,
		Currency:    "INR",
		Receipt:     "user-1:pro:0123456789abcdef0123456789abcdef",
		Notes:       map[string]string{"plan_id": "pro", "user_id": "user-1"},
	}
}

func TestRazorpayConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  RazorpayConfig
		wantErr error
	}{
		{"missing key id", RazorpayConfig{KeySecret: "s"}, ErrMissingKeyID},
		{"missing key secret", RazorpayConfig{KeyID: "k"}, ErrMissingKeySecret},
		{"invalid base url", RazorpayConfig{KeyID: "k", KeySecret: "s", BaseURL: "not a url"}, ErrInvalidBaseURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("fills defaults", func(t *testing.T) {
		cfg := ConfigFromApp(config.PaymentConfig{KeyID: "k", KeySecret: "s"})
		require.NoError(t, cfg.Validate())
		assert.Equal(t, defaultRazorpayBaseURL, cfg.BaseURL)
		assert.Equal(t, defaultTimeout, cfg.Timeout)
	})
}

func TestRazorpayAdapter_CreateOrder(t *testing.T) {
	var got createOrderRequest
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_Abc123","entity":"order","amount":49900,"currency":"INR","status":"created"}`))
	})

	order, err := a.CreateOrder(context.Background(), orderRequest())
	require.NoError(t, err)

	assert.Equal(t, "order_Abc123", order.OrderID)
	assert.Equal(t, "rzp_test_key", order.PublicKeyID)
	assert.Equal(t, int64(49900), order.AmountMinor)
	assert.Equal(t, "INR", order.Currency.String())

	assert.Equal(t, int64(49900), got.Amount)
	assert.Equal(t, "pro", got.Notes["plan_id"])
	assert.Len(t, got.Receipt, maxReceiptLen)
}

func TestTruncateReceipt(t *testing.T) {
	assert.Equal(t, "pro:user-1", truncateReceipt("pro:user-1"))

	ascii := strings.Repeat("a", maxReceiptLen+5)
	assert.Equal(t, ascii[:maxReceiptLen], truncateReceipt(ascii))

	// 38 ASCII bytes followed by three-byte runes: byte 40 falls inside a rune
	multi := "business:" + strings.Repeat("u", 29) + "用户用户"
	got := truncateReceipt(multi)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxReceiptLen)
	assert.Equal(t, "business:"+strings.Repeat("u", 29), got)
}

func TestRazorpayAdapter_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  string
		retryable bool
	}{
		{"server error", http.StatusBadGateway, `oops`, shared.CodeGatewayUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, `{}`, shared.CodeGatewayUnavailable, true},
		{"bad credentials", http.StatusUnauthorized, `{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`, shared.CodeConfiguration, false},
		{"bad request", http.StatusBadRequest, `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount exceeds maximum"}}`, shared.CodeInvalidInput, false},
		{"malformed success", http.StatusOK, `{"entity":"order"}`, shared.CodeGatewayUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := a.CreateOrder(context.Background(), orderRequest())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, shared.ErrorCode(err))
			assert.Equal(t, tt.retryable, shared.IsRetryable(err))
		})
	}

	t.Run("gateway description is surfaced", func(t *testing.T) {
		a := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"description":"currency not supported"}}`))
		})
		_, err := a.CreateOrder(context.Background(), orderRequest())
		assert.True(t, strings.Contains(err.Error(), "currency not supported"))
	})
}

func TestRazorpayAdapter_TimeoutIsRetryable(t *testing.T) {
	release := make(chan struct{})
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := a.CreateOrder(context.Background(), orderRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrGatewayUnavailable)
	assert.True(t, shared.IsRetryable(err))
}

func TestRazorpayAdapter_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a, err := NewRazorpayAdapter(RazorpayConfig{BaseURL: url, KeyID: "k", KeySecret: "s"})
	require.NoError(t, err)

	_, err = a.CreateOrder(context.Background(), orderRequest())
	assert.ErrorIs(t, err, shared.ErrGatewayUnavailable)
}
