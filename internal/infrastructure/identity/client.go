package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrMissingBaseURL is returned when the provider URL is not configured
var ErrMissingBaseURL = errors.New("identity: missing base URL")

// userResponse is the provider's admin representation of an account
type userResponse struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// HTTPProvider implements identity.Provider against the provider's admin REST API:
//
//	GET   {base}/users/{id}
//	PATCH {base}/users/{id}/metadata   body: partial metadata, merged server side
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// HTTPProviderOption is a functional option for the client
type HTTPProviderOption func(*HTTPProvider)

// WithHTTPClient replaces the default client
func WithHTTPClient(client *http.Client) HTTPProviderOption {
	return func(p *HTTPProvider) {
		p.httpClient = client
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) HTTPProviderOption {
	return func(p *HTTPProvider) {
		p.logger = logger
	}
}

// NewHTTPProvider creates a client authenticating with a bearer API key
func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration, opts ...HTTPProviderOption) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: timeout}
	}
	return p, nil
}

// GetUser fetches an account; unknown ids return shared.ErrNotFound
func (p *HTTPProvider) GetUser(ctx context.Context, userID string) (*identity.User, error) {
	body, err := p.do(ctx, http.MethodGet, userPath(userID), nil)
	if err != nil {
		return nil, err
	}
	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("identity: malformed user response: %w", err)
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	return &identity.User{
		ID:       resp.ID,
		Email:    resp.Email,
		Name:     resp.Name,
		Metadata: resp.Metadata,
	}, nil
}

// UpdateMetadata sends only the patched keys; the provider merges them
func (p *HTTPProvider) UpdateMetadata(ctx context.Context, userID string, patch identity.MetadataPatch) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("identity: failed to marshal patch: %w", err)
	}
	_, err = p.do(ctx, http.MethodPatch, userPath(userID)+"/metadata", data)
	return err
}

func userPath(userID string) string {
	return "/users/" + url.PathEscape(userID)
}

func (p *HTTPProvider) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("identity: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("identity: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrNotFound
	case resp.StatusCode >= 400:
		p.logger.Warn("Identity provider request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("identity %s %s: HTTP %d", method, path, resp.StatusCode)
	}
	return respBody, nil
}

var _ identity.Provider = (*HTTPProvider)(nil)
