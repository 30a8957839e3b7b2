package models

import (
	"time"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// APIKeyModel is the persistence model for an API key. Only the bcrypt hash
// of the secret is stored.
type APIKeyModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID    string     `gorm:"type:varchar(128);not null;index"`
	Name       string     `gorm:"type:varchar(100);not null"`
	Prefix     string     `gorm:"type:varchar(16);not null;uniqueIndex"`
	Hash       string     `gorm:"type:varchar(72);not null"`
	LastUsedAt *time.Time `gorm:""`
	RevokedAt  *time.Time `gorm:""`
	CreatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (APIKeyModel) TableName() string {
	return "api_keys"
}

// ToDomain converts the model to a domain API key
func (m *APIKeyModel) ToDomain() *identity.APIKey {
	return &identity.APIKey{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Name:       m.Name,
		Prefix:     m.Prefix,
		Hash:       m.Hash,
		LastUsedAt: m.LastUsedAt,
		RevokedAt:  m.RevokedAt,
		CreatedAt:  m.CreatedAt,
	}
}

// APIKeyModelFromDomain creates a persistence model from a domain API key
func APIKeyModelFromDomain(k *identity.APIKey) *APIKeyModel {
	return &APIKeyModel{
		ID:         k.ID,
		OwnerID:    k.OwnerID,
		Name:       k.Name,
		Prefix:     k.Prefix,
		Hash:       k.Hash,
		LastUsedAt: k.LastUsedAt,
		RevokedAt:  k.RevokedAt,
		CreatedAt:  k.CreatedAt,
	}
}
