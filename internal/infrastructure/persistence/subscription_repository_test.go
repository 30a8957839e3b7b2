package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, id, userID, planID string) *billing.PaymentOrder {
	t.Helper()
	o, err := billing.NewPaymentOrder(id, userID, planID, 49900, "INR", "rzp_test_key")
	require.NoError(t, err)
	return o
}

func TestGormPaymentOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPaymentOrderRepository(setupTestDB(t))

	order := newTestOrder(t, "order_1", "user-1", "pro")
	require.NoError(t, repo.Create(ctx, order))
	assert.ErrorIs(t, repo.Create(ctx, order), shared.ErrAlreadyExists)

	got, err := repo.FindByID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, int64(49900), got.AmountMinor)
	assert.Equal(t, "rzp_test_key", got.PublicKeyID)

	_, err = repo.FindByID(ctx, "order_missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSubscriptionRepository_ApplyFree(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSubscriptionRepository(setupTestDB(t))

	_, err := repo.FindByUserID(ctx, "user-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	outcome, err := repo.ApplyFree(ctx, "user-1", "free_tier")
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Empty(t, outcome.PreviousPlan)

	again, err := repo.ApplyFree(ctx, "user-1", "free_tier")
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, "free_tier", again.PreviousPlan)

	sub, err := repo.FindByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "free_tier", sub.PlanID)
	assert.Equal(t, billing.SubscriptionActive, sub.Status)
	assert.Nil(t, sub.SourcePaymentID)
}

func TestGormSubscriptionRepository_CommitPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("applies once per payment id", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormSubscriptionRepository(db)
		_, err := repo.ApplyFree(ctx, "user-1", "free_tier")
		require.NoError(t, err)

		order := newTestOrder(t, "order_1", "user-1", "pro")
		first, err := repo.CommitPaid(ctx, billing.NewLedgerEntry(order, "pay_1"))
		require.NoError(t, err)
		assert.True(t, first.Applied)
		assert.Equal(t, "free_tier", first.PreviousPlan)
		assert.Equal(t, "pro", first.Subscription.PlanID)

		second, err := repo.CommitPaid(ctx, billing.NewLedgerEntry(order, "pay_1"))
		require.NoError(t, err)
		assert.False(t, second.Applied)
		assert.Equal(t, "pro", second.Subscription.PlanID)

		var rows int64
		require.NoError(t, db.Model(&models.LedgerEntryModel{}).Count(&rows).Error)
		assert.Equal(t, int64(1), rows)

		sub, err := repo.FindByUserID(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, sub.SourcePaymentID)
		assert.Equal(t, "pay_1", *sub.SourcePaymentID)

		entry, err := repo.FindLedgerEntry(ctx, "pay_1")
		require.NoError(t, err)
		assert.Equal(t, "order_1", entry.OrderID)
	})

	t.Run("order consumed by another payment", func(t *testing.T) {
		repo := NewGormSubscriptionRepository(setupTestDB(t))
		order := newTestOrder(t, "order_1", "user-1", "pro")

		_, err := repo.CommitPaid(ctx, billing.NewLedgerEntry(order, "pay_1"))
		require.NoError(t, err)

		_, err = repo.CommitPaid(ctx, billing.NewLedgerEntry(order, "pay_2"))
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		_, err = repo.FindLedgerEntry(ctx, "pay_2")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("concurrent duplicates change the plan once", func(t *testing.T) {
		repo := NewGormSubscriptionRepository(setupTestDB(t))
		order := newTestOrder(t, "order_1", "user-1", "pro")

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			applied int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := repo.CommitPaid(ctx, billing.NewLedgerEntry(order, "pay_1"))
				if !assert.NoError(t, err) {
					return
				}
				if outcome.Applied {
					mu.Lock()
					applied++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, applied)
	})
}
