package billing

import "context"

// PlanRepository persists catalog plans
type PlanRepository interface {
	// FindByID returns shared.ErrNotFound for unknown or deleted plans
	FindByID(ctx context.Context, id string) (*Plan, error)
	// FindAll returns every live plan, unordered
	FindAll(ctx context.Context) ([]*Plan, error)
	// Create fails with shared.ErrAlreadyExists if the id was ever used
	Create(ctx context.Context, plan *Plan) error
	Update(ctx context.Context, plan *Plan) error
	// Delete tombstones the plan so its id cannot be reused
	Delete(ctx context.Context, id string) error
}
