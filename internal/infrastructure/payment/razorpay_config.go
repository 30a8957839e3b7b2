package payment

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/billforge/backend/internal/infrastructure/config"
)

const (
	defaultRazorpayBaseURL = "https://api.razorpay.com/v1"
	defaultTimeout         = 10 * time.Second
)

// RazorpayConfig holds the gateway credentials.
// KeySecret authenticates API calls and signs receipts; it never leaves the process.
type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Errors for configuration validation
var (
	ErrMissingKeyID     = errors.New("razorpay: missing key id")
	ErrMissingKeySecret = errors.New("razorpay: missing key secret")
	ErrInvalidBaseURL   = errors.New("razorpay: invalid base URL")
)

// ConfigFromApp maps the service configuration onto the gateway config
func ConfigFromApp(cfg config.PaymentConfig) RazorpayConfig {
	return RazorpayConfig{
		BaseURL:   cfg.BaseURL,
		KeyID:     cfg.KeyID,
		KeySecret: cfg.KeySecret,
		Timeout:   cfg.Timeout,
	}
}

// Validate checks required fields and fills defaults
func (c *RazorpayConfig) Validate() error {
	if c.KeyID == "" {
		return ErrMissingKeyID
	}
	if c.KeySecret == "" {
		return ErrMissingKeySecret
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultRazorpayBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}
