package billing

// Entitlement is the effective plan and usage of a user at one point in time.
// It is derived on every request and never persisted.
type Entitlement struct {
	UserID         string
	PlanID         string // the plan id the user is assigned to
	EffectivePlan  *Plan  // the plan actually applied, may be the default fallback
	UsedThisMonth  int64
	UsageKnown     bool
	IsLimitReached bool
	FellBack       bool // true when the assigned plan was missing
}

// NewEntitlement combines a plan and a usage count.
// The limit is only reached when usage is known; unknown usage never blocks.
func NewEntitlement(userID, assignedPlanID string, plan *Plan, usage UsageCount) *Entitlement {
	reached := false
	if plan.InvoiceLimit != nil && usage.Known {
		reached = usage.Count >= int64(*plan.InvoiceLimit)
	}
	return &Entitlement{
		UserID:         userID,
		PlanID:         assignedPlanID,
		EffectivePlan:  plan,
		UsedThisMonth:  usage.Count,
		UsageKnown:     usage.Known,
		IsLimitReached: reached,
		FellBack:       assignedPlanID != plan.ID,
	}
}

// HasFeature is a pure capability lookup on the effective plan
func HasFeature(e *Entitlement, feature Feature) bool {
	if e == nil || e.EffectivePlan == nil {
		return false
	}
	return e.EffectivePlan.HasFeature(feature)
}

// RemainingInvoices returns how many invoices may still be created this
// month, or -1 when the plan is unlimited or usage is unknown.
func (e *Entitlement) RemainingInvoices() int64 {
	if e.EffectivePlan.InvoiceLimit == nil || !e.UsageKnown {
		return -1
	}
	remaining := int64(*e.EffectivePlan.InvoiceLimit) - e.UsedThisMonth
	if remaining < 0 {
		return 0
	}
	return remaining
}
