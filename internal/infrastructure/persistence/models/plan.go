package models

import (
	"encoding/json"
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"gorm.io/gorm"
)

// PlanModel is the persistence model for a catalog plan.
// DeletedAt marks a tombstone; the primary key keeps the id reserved.
type PlanModel struct {
	ID              string         `gorm:"type:varchar(64);primaryKey"`
	Name            string         `gorm:"type:varchar(100);not null"`
	PriceMinor      int64          `gorm:"not null;default:0"`
	Currency        string         `gorm:"type:char(3);not null"`
	InvoiceLimit    *int           `gorm:""`
	TeamMemberLimit *int           `gorm:""`
	FeaturesJSON    string         `gorm:"column:features;type:jsonb;not null;default:'[]'"`
	SortOrder       int            `gorm:"not null;default:0"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return "plans"
}

// ToDomain converts the model to a domain plan. Unknown feature names left
// behind by older rows are dropped rather than failing the read.
func (m *PlanModel) ToDomain() *billing.Plan {
	var names []string
	_ = json.Unmarshal([]byte(m.FeaturesJSON), &names)
	features := billing.NewFeatureSet()
	for _, n := range names {
		if f := billing.Feature(n); f.IsValid() {
			features[f] = struct{}{}
		}
	}
	return &billing.Plan{
		ID:              m.ID,
		Name:            m.Name,
		PriceMinor:      m.PriceMinor,
		Currency:        valueobject.Currency(m.Currency),
		InvoiceLimit:    m.InvoiceLimit,
		TeamMemberLimit: m.TeamMemberLimit,
		Features:        features,
		SortOrder:       m.SortOrder,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// PlanModelFromDomain creates a persistence model from a domain plan
func PlanModelFromDomain(p *billing.Plan) *PlanModel {
	features, _ := json.Marshal(p.Features.Strings())
	return &PlanModel{
		ID:              p.ID,
		Name:            p.Name,
		PriceMinor:      p.PriceMinor,
		Currency:        p.Currency.String(),
		InvoiceLimit:    p.InvoiceLimit,
		TeamMemberLimit: p.TeamMemberLimit,
		FeaturesJSON:    string(features),
		SortOrder:       p.SortOrder,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
