package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SubscriptionService answers "which plan is this user on".
// The subscriptions table is authoritative. Users who predate it are read
// from the identity provider's planId metadata, then the default plan.
type SubscriptionService struct {
	subs          billing.SubscriptionRepository
	provider      identity.Provider
	defaultPlanID string
	logger        *zap.Logger
}

// NewSubscriptionService creates a SubscriptionService; provider may be nil
func NewSubscriptionService(subs billing.SubscriptionRepository, provider identity.Provider, defaultPlanID string, logger *zap.Logger) *SubscriptionService {
	if defaultPlanID == "" {
		defaultPlanID = billing.DefaultPlanID
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		subs:          subs,
		provider:      provider,
		defaultPlanID: defaultPlanID,
		logger:        logger,
	}
}

// CurrentPlanID returns the user's assigned plan id
func (s *SubscriptionService) CurrentPlanID(ctx context.Context, userID string) (string, error) {
	sub, err := s.subs.FindByUserID(ctx, userID)
	if err == nil {
		return sub.PlanID, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("load subscription: %w", err)
	}

	if s.provider != nil {
		user, err := s.provider.GetUser(ctx, userID)
		switch {
		case err == nil:
			if planID := user.AssignedPlanID(); planID != "" {
				return planID, nil
			}
		case errors.Is(err, shared.ErrNotFound):
		default:
			// The metadata is only a cache; an unreachable provider must not
			// block entitlement reads.
			s.logger.Warn("Identity provider unavailable, using default plan",
				zap.String("user_id", userID),
				zap.Error(err))
		}
	}
	return s.defaultPlanID, nil
}
