package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// APIKeyService issues, lists, revokes and authenticates API keys
type APIKeyService struct {
	repo   identity.APIKeyRepository
	logger *zap.Logger
}

// NewAPIKeyService creates an APIKeyService
func NewAPIKeyService(repo identity.APIKeyRepository, logger *zap.Logger) *APIKeyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIKeyService{repo: repo, logger: logger}
}

// Create issues a key for the user and returns its plaintext once
func (s *APIKeyService) Create(ctx context.Context, userID string, req CreateAPIKeyRequest) (*CreatedAPIKeyResponse, error) {
	key, plaintext, err := identity.GenerateAPIKey(userID, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, fmt.Errorf("save api key: %w", err)
	}
	s.logger.Info("API key issued",
		zap.String("user_id", userID),
		zap.String("key_prefix", key.Prefix))
	return &CreatedAPIKeyResponse{APIKeyResponse: ToAPIKeyResponse(key), Key: plaintext}, nil
}

// List returns the user's keys, revoked ones included
func (s *APIKeyService) List(ctx context.Context, userID string) ([]APIKeyResponse, error) {
	keys, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		out[i] = ToAPIKeyResponse(k)
	}
	return out, nil
}

// Revoke disables one of the user's keys
func (s *APIKeyService) Revoke(ctx context.Context, userID string, id uuid.UUID) error {
	key, err := s.repo.FindByIDForOwner(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := key.Revoke(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, key); err != nil {
		return err
	}
	s.logger.Info("API key revoked",
		zap.String("user_id", userID),
		zap.String("key_prefix", key.Prefix))
	return nil
}

// Authenticate resolves a plaintext key to its owner. Every failure is
// reported as shared.ErrUnauthorized.
func (s *APIKeyService) Authenticate(ctx context.Context, plaintext string) (string, error) {
	prefix, secret, err := identity.SplitAPIKey(plaintext)
	if err != nil {
		return "", shared.ErrUnauthorized
	}
	key, err := s.repo.FindByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.ErrUnauthorized
		}
		return "", err
	}
	if !key.Verify(secret) {
		return "", shared.ErrUnauthorized
	}

	key.MarkUsed(time.Now())
	if err := s.repo.Update(ctx, key); err != nil {
		s.logger.Warn("Failed to record API key usage",
			zap.String("key_prefix", key.Prefix),
			zap.Error(err))
	}
	return key.OwnerID, nil
}
