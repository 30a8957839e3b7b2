package models

import (
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentOrderModel is the persistence model for a gateway order.
// Rows are immutable; consumption is recorded in payment_ledger.
type PaymentOrderModel struct {
	ID          string    `gorm:"type:varchar(64);primaryKey"`
	UserID      string    `gorm:"type:varchar(128);not null;index"`
	PlanID      string    `gorm:"type:varchar(64);not null"`
	AmountMinor int64     `gorm:"not null"`
	Currency    string    `gorm:"type:char(3);not null"`
	PublicKeyID string    `gorm:"type:varchar(64);not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentOrderModel) TableName() string {
	return "payment_orders"
}

// ToDomain converts the model to a domain order
func (m *PaymentOrderModel) ToDomain() *billing.PaymentOrder {
	return &billing.PaymentOrder{
		ID:          m.ID,
		UserID:      m.UserID,
		PlanID:      m.PlanID,
		AmountMinor: m.AmountMinor,
		Currency:    valueobject.Currency(m.Currency),
		PublicKeyID: m.PublicKeyID,
		CreatedAt:   m.CreatedAt,
	}
}

// PaymentOrderModelFromDomain creates a persistence model from a domain order
func PaymentOrderModelFromDomain(o *billing.PaymentOrder) *PaymentOrderModel {
	return &PaymentOrderModel{
		ID:          o.ID,
		UserID:      o.UserID,
		PlanID:      o.PlanID,
		AmountMinor: o.AmountMinor,
		Currency:    o.Currency.String(),
		PublicKeyID: o.PublicKeyID,
		CreatedAt:   o.CreatedAt,
	}
}

// SubscriptionModel is the persistence model for a user's current plan
type SubscriptionModel struct {
	UserID          string    `gorm:"type:varchar(128);primaryKey"`
	PlanID          string    `gorm:"type:varchar(64);not null;index"`
	Status          string    `gorm:"type:varchar(16);not null"`
	SourcePaymentID *string   `gorm:"type:varchar(64)"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the model to a domain subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	return &billing.Subscription{
		UserID:          m.UserID,
		PlanID:          m.PlanID,
		Status:          billing.SubscriptionStatus(m.Status),
		SourcePaymentID: m.SourcePaymentID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// SubscriptionModelFromDomain creates a persistence model from a domain subscription
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	return &SubscriptionModel{
		UserID:          s.UserID,
		PlanID:          s.PlanID,
		Status:          string(s.Status),
		SourcePaymentID: s.SourcePaymentID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// LedgerEntryModel is one applied payment. payment_id and order_id are both
// unique, which is what makes paid transitions idempotent.
type LedgerEntryModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PaymentID   string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	OrderID     string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID      string    `gorm:"type:varchar(128);not null;index"`
	PlanID      string    `gorm:"type:varchar(64);not null"`
	AmountMinor int64     `gorm:"not null"`
	Currency    string    `gorm:"type:char(3);not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "payment_ledger"
}

// ToDomain converts the model to a domain ledger entry
func (m *LedgerEntryModel) ToDomain() *billing.LedgerEntry {
	return &billing.LedgerEntry{
		ID:          m.ID,
		PaymentID:   m.PaymentID,
		OrderID:     m.OrderID,
		UserID:      m.UserID,
		PlanID:      m.PlanID,
		AmountMinor: m.AmountMinor,
		Currency:    valueobject.Currency(m.Currency),
		CreatedAt:   m.CreatedAt,
	}
}

// LedgerEntryModelFromDomain creates a persistence model from a domain ledger entry
func LedgerEntryModelFromDomain(e *billing.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:          e.ID,
		PaymentID:   e.PaymentID,
		OrderID:     e.OrderID,
		UserID:      e.UserID,
		PlanID:      e.PlanID,
		AmountMinor: e.AmountMinor,
		Currency:    e.Currency.String(),
		CreatedAt:   e.CreatedAt,
	}
}
