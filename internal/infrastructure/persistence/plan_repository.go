package persistence

import (
	"context"
	"fmt"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPlanRepository implements billing.PlanRepository using GORM.
// Deleted plans are soft-deleted so their ids stay reserved.
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID finds a live plan by id
func (r *GormPlanRepository) FindByID(ctx context.Context, id string) (*billing.Plan, error) {
	var model models.PlanModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns every live plan
func (r *GormPlanRepository) FindAll(ctx context.Context) ([]*billing.Plan, error) {
	var rows []models.PlanModel
	if err := r.db.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	plans := make([]*billing.Plan, len(rows))
	for i := range rows {
		plans[i] = rows[i].ToDomain()
	}
	return plans, nil
}

// Create inserts a plan. Ids of deleted plans still collide.
func (r *GormPlanRepository) Create(ctx context.Context, plan *billing.Plan) error {
	if err := r.db.WithContext(ctx).Create(models.PlanModelFromDomain(plan)).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("Plan id %s is already taken", plan.ID))
		}
		return err
	}
	return nil
}

// Update saves the mutable attributes of a live plan
func (r *GormPlanRepository) Update(ctx context.Context, plan *billing.Plan) error {
	m := models.PlanModelFromDomain(plan)
	result := r.db.WithContext(ctx).Model(&models.PlanModel{}).
		Where("id = ?", plan.ID).
		Updates(map[string]any{
			"name":              m.Name,
			"price_minor":       m.PriceMinor,
			"currency":          m.Currency,
			"invoice_limit":     m.InvoiceLimit,
			"team_member_limit": m.TeamMemberLimit,
			"features":          m.FeaturesJSON,
			"sort_order":        m.SortOrder,
			"updated_at":        m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete tombstones a live plan
func (r *GormPlanRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.PlanModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ billing.PlanRepository = (*GormPlanRepository)(nil)
