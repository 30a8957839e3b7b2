package persistence

import (
	"context"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentOrderRepository implements billing.PaymentOrderRepository using GORM
type GormPaymentOrderRepository struct {
	db *gorm.DB
}

// NewGormPaymentOrderRepository creates a new GormPaymentOrderRepository
func NewGormPaymentOrderRepository(db *gorm.DB) *GormPaymentOrderRepository {
	return &GormPaymentOrderRepository{db: db}
}

// Create records a gateway order. Gateway order ids are unique.
func (r *GormPaymentOrderRepository) Create(ctx context.Context, order *billing.PaymentOrder) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentOrderModelFromDomain(order)).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists.WithCause(err)
		}
		return err
	}
	return nil
}

// FindByID finds an order by gateway order id
func (r *GormPaymentOrderRepository) FindByID(ctx context.Context, orderID string) (*billing.PaymentOrder, error) {
	var model models.PaymentOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", orderID).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

var _ billing.PaymentOrderRepository = (*GormPaymentOrderRepository)(nil)
