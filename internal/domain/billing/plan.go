package billing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
)

// DefaultPlanID is the fallback plan when a user's assigned plan cannot be found
const DefaultPlanID = "free_tier"

// Feature is a capability a plan may grant
type Feature string

const (
	FeatureAdvancedReports Feature = "advanced_reports"
	FeatureAPIAccess       Feature = "api_access"
	FeatureBranding        Feature = "has_branding"
)

// KnownFeatures lists every capability a plan may carry
var KnownFeatures = []Feature{FeatureAdvancedReports, FeatureAPIAccess, FeatureBranding}

// IsValid returns true if the feature is known
func (f Feature) IsValid() bool {
	for _, k := range KnownFeatures {
		if k == f {
			return true
		}
	}
	return false
}

// FeatureSet is the set of capabilities granted by a plan
type FeatureSet map[Feature]struct{}

// NewFeatureSet builds a set from the given features
func NewFeatureSet(features ...Feature) FeatureSet {
	fs := make(FeatureSet, len(features))
	for _, f := range features {
		fs[f] = struct{}{}
	}
	return fs
}

// ParseFeatureSet builds a set from raw names, rejecting unknown ones
func ParseFeatureSet(names []string) (FeatureSet, error) {
	fs := make(FeatureSet, len(names))
	for _, n := range names {
		f := Feature(strings.TrimSpace(n))
		if !f.IsValid() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown feature: %s", n))
		}
		fs[f] = struct{}{}
	}
	return fs, nil
}

// Has reports whether the set contains f
func (fs FeatureSet) Has(f Feature) bool {
	_, ok := fs[f]
	return ok
}

// List returns the features sorted by name
func (fs FeatureSet) List() []Feature {
	out := make([]Feature, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the feature names sorted
func (fs FeatureSet) Strings() []string {
	list := fs.List()
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = string(f)
	}
	return out
}

var planIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,62}$`)

// Plan is a subscription plan in the catalog.
// ID is a stable slug and is never reused once deleted.
type Plan struct {
	ID              string
	Name            string
	PriceMinor      int64
	Currency        valueobject.Currency
	InvoiceLimit    *int // nil = unlimited
	TeamMemberLimit *int // nil = unlimited
	Features        FeatureSet
	SortOrder       int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PlanAttributes holds the mutable attributes of a plan
type PlanAttributes struct {
	Name            string
	PriceMinor      int64
	Currency        valueobject.Currency
	InvoiceLimit    *int
	TeamMemberLimit *int
	Features        FeatureSet
	SortOrder       int
}

// NewPlan creates a validated plan
func NewPlan(id string, attrs PlanAttributes) (*Plan, error) {
	if !planIDPattern.MatchString(id) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Plan id must be a lowercase slug")
	}
	now := time.Now().UTC()
	p := &Plan{ID: id, CreatedAt: now}
	if err := p.apply(attrs); err != nil {
		return nil, err
	}
	p.UpdatedAt = now
	return p, nil
}

// Update replaces the plan's mutable attributes
func (p *Plan) Update(attrs PlanAttributes) error {
	if err := p.apply(attrs); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Plan) apply(attrs PlanAttributes) error {
	name := strings.TrimSpace(attrs.Name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Plan name cannot be empty")
	}
	if attrs.PriceMinor < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Plan price cannot be negative")
	}
	if attrs.InvoiceLimit != nil && *attrs.InvoiceLimit < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Invoice limit cannot be negative")
	}
	if attrs.TeamMemberLimit != nil && *attrs.TeamMemberLimit < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Team member limit cannot be negative")
	}
	cur := attrs.Currency
	if cur == "" {
		cur = valueobject.DefaultCurrency
	}
	cur, err := valueobject.ParseCurrency(string(cur))
	if err != nil {
		return shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}
	features := attrs.Features
	if features == nil {
		features = NewFeatureSet()
	}
	for f := range features {
		if !f.IsValid() {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown feature: %s", f))
		}
	}

	p.Name = name
	p.PriceMinor = attrs.PriceMinor
	p.Currency = cur
	p.InvoiceLimit = attrs.InvoiceLimit
	p.TeamMemberLimit = attrs.TeamMemberLimit
	p.Features = features
	p.SortOrder = attrs.SortOrder
	return nil
}

// HasFeature reports whether the plan grants f
func (p *Plan) HasFeature(f Feature) bool {
	return p.Features.Has(f)
}

// IsFree returns true if the plan costs nothing
func (p *Plan) IsFree() bool {
	return p.PriceMinor == 0
}

// Price returns the monthly price as Money
func (p *Plan) Price() valueobject.Money {
	return valueobject.NewMoneyFromMinor(p.PriceMinor, p.Currency)
}

// SortPlans orders plans for display: sort_order ascending, ties broken by id
func SortPlans(plans []*Plan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].SortOrder != plans[j].SortOrder {
			return plans[i].SortOrder < plans[j].SortOrder
		}
		return plans[i].ID < plans[j].ID
	})
}

// IntPtr is a helper for optional limits
func IntPtr(v int) *int {
	return &v
}
