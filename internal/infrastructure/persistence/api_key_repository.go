package persistence

import (
	"context"

	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAPIKeyRepository implements identity.APIKeyRepository using GORM
type GormAPIKeyRepository struct {
	db *gorm.DB
}

// NewGormAPIKeyRepository creates a new GormAPIKeyRepository
func NewGormAPIKeyRepository(db *gorm.DB) *GormAPIKeyRepository {
	return &GormAPIKeyRepository{db: db}
}

// Create inserts a key; lookup prefixes are unique
func (r *GormAPIKeyRepository) Create(ctx context.Context, key *identity.APIKey) error {
	if err := r.db.WithContext(ctx).Create(models.APIKeyModelFromDomain(key)).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.ErrAlreadyExists.WithCause(err)
		}
		return err
	}
	return nil
}

// FindByPrefix finds a key by its public lookup prefix
func (r *GormAPIKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*identity.APIKey, error) {
	var model models.APIKeyModel
	if err := r.db.WithContext(ctx).First(&model, "prefix = ?", prefix).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForOwner finds a key owned by ownerID
func (r *GormAPIKeyRepository) FindByIDForOwner(ctx context.Context, ownerID string, id uuid.UUID) (*identity.APIKey, error) {
	var model models.APIKeyModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&model).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// ListByOwner returns the owner's keys, newest first
func (r *GormAPIKeyRepository) ListByOwner(ctx context.Context, ownerID string) ([]*identity.APIKey, error) {
	var rows []models.APIKeyModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	keys := make([]*identity.APIKey, len(rows))
	for i := range rows {
		keys[i] = rows[i].ToDomain()
	}
	return keys, nil
}

// Update saves usage and revocation timestamps
func (r *GormAPIKeyRepository) Update(ctx context.Context, key *identity.APIKey) error {
	result := r.db.WithContext(ctx).Model(&models.APIKeyModel{}).
		Where("id = ?", key.ID).
		Updates(map[string]any{
			"name":         key.Name,
			"last_used_at": key.LastUsedAt,
			"revoked_at":   key.RevokedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.APIKeyRepository = (*GormAPIKeyRepository)(nil)
