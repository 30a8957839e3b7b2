package models

import (
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OwnedAggregateModel provides the persistence fields of a user-owned
// aggregate root: id, owner, version for optimistic locking and timestamps.
type OwnedAggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID   string    `gorm:"type:varchar(128);not null;index"`
	Version   int       `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainOwnedAggregateRoot populates the model from the domain aggregate
func (m *OwnedAggregateModel) FromDomainOwnedAggregateRoot(a shared.OwnedAggregateRoot) {
	m.ID = a.ID
	m.OwnerID = a.OwnerID
	m.Version = a.Version
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// PopulateOwnedAggregateRoot copies the persisted fields into the domain aggregate
func (m *OwnedAggregateModel) PopulateOwnedAggregateRoot(a *shared.OwnedAggregateRoot) {
	a.ID = m.ID
	a.OwnerID = m.OwnerID
	a.Version = m.Version
	a.CreatedAt = m.CreatedAt
	a.UpdatedAt = m.UpdatedAt
}
