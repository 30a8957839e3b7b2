package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// errLedgerConflict aborts the commit transaction when the ledger insert hits
// a unique constraint; the caller then decides between duplicate payment and
// consumed order.
var errLedgerConflict = errors.New("payment ledger unique violation")

// GormSubscriptionRepository implements billing.SubscriptionRepository.
// The ledger insert and the subscription upsert share one transaction, so a
// payment id changes a user's plan at most once.
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// FindByUserID returns the user's current subscription
func (r *GormSubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// FindLedgerEntry returns the ledger row for a payment id
func (r *GormSubscriptionRepository) FindLedgerEntry(ctx context.Context, paymentID string) (*billing.LedgerEntry, error) {
	var model models.LedgerEntryModel
	if err := r.db.WithContext(ctx).First(&model, "payment_id = ?", paymentID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// ApplyFree upserts the user's subscription to a free plan
func (r *GormSubscriptionRepository) ApplyFree(ctx context.Context, userID, planID string) (*billing.TransitionOutcome, error) {
	var outcome *billing.TransitionOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := lockSubscription(tx, userID)
		if err != nil {
			return err
		}
		sub := billing.NewSubscription(userID, planID, nil)
		if err := upsertSubscription(tx, sub, previous); err != nil {
			return err
		}
		outcome = &billing.TransitionOutcome{
			Applied:      previous == nil || previous.PlanID != planID,
			Subscription: sub,
			PreviousPlan: planIDOf(previous),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply free plan: %w", err)
	}
	return outcome, nil
}

// CommitPaid records the payment and switches the plan in one transaction
func (r *GormSubscriptionRepository) CommitPaid(ctx context.Context, entry *billing.LedgerEntry) (*billing.TransitionOutcome, error) {
	if existing, err := r.FindLedgerEntry(ctx, entry.PaymentID); err == nil {
		return r.duplicateOutcome(ctx, existing)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var outcome *billing.TransitionOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.LedgerEntryModelFromDomain(entry)).Error; err != nil {
			if isDuplicateKey(err) {
				return errLedgerConflict
			}
			return err
		}

		previous, err := lockSubscription(tx, entry.UserID)
		if err != nil {
			return err
		}
		paymentID := entry.PaymentID
		sub := billing.NewSubscription(entry.UserID, entry.PlanID, &paymentID)
		if err := upsertSubscription(tx, sub, previous); err != nil {
			return err
		}
		outcome = &billing.TransitionOutcome{
			Applied:      true,
			Subscription: sub,
			PreviousPlan: planIDOf(previous),
		}
		return nil
	})

	switch {
	case err == nil:
		return outcome, nil
	case errors.Is(err, errLedgerConflict):
		// Lost a race: either the same payment committed concurrently or the
		// order was consumed by a different payment.
		existing, findErr := r.FindLedgerEntry(ctx, entry.PaymentID)
		if findErr == nil {
			return r.duplicateOutcome(ctx, existing)
		}
		if errors.Is(findErr, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Payment order already consumed")
		}
		return nil, findErr
	default:
		return nil, fmt.Errorf("commit paid plan: %w", err)
	}
}

func (r *GormSubscriptionRepository) duplicateOutcome(ctx context.Context, existing *billing.LedgerEntry) (*billing.TransitionOutcome, error) {
	sub, err := r.FindByUserID(ctx, existing.UserID)
	if err != nil {
		return nil, err
	}
	return &billing.TransitionOutcome{Applied: false, Subscription: sub}, nil
}

// lockSubscription reads the current row with a row lock where supported
func lockSubscription(tx *gorm.DB, userID string) (*models.SubscriptionModel, error) {
	var current models.SubscriptionModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&current, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &current, nil
}

func upsertSubscription(tx *gorm.DB, sub *billing.Subscription, previous *models.SubscriptionModel) error {
	if previous != nil {
		sub.CreatedAt = previous.CreatedAt
	}
	sub.UpdatedAt = time.Now().UTC()
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan_id", "status", "source_payment_id", "updated_at"}),
	}).Create(models.SubscriptionModelFromDomain(sub)).Error
}

func planIDOf(m *models.SubscriptionModel) string {
	if m == nil {
		return ""
	}
	return m.PlanID
}

var _ billing.SubscriptionRepository = (*GormSubscriptionRepository)(nil)
