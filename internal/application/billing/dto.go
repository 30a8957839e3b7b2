package billing

import (
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
)

// PlanResponse is the public view of a catalog plan
type PlanResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	PriceMinor      int64    `json:"price_minor"`
	Price           string   `json:"price"`
	Currency        string   `json:"currency"`
	InvoiceLimit    *int     `json:"invoice_limit"`
	TeamMemberLimit *int     `json:"team_member_limit"`
	Features        []string `json:"features"`
	SortOrder       int      `json:"sort_order"`
}

// ToPlanResponse converts a domain plan
func ToPlanResponse(p *billing.Plan) PlanResponse {
	return PlanResponse{
		ID:              p.ID,
		Name:            p.Name,
		PriceMinor:      p.PriceMinor,
		Price:           p.Price().Amount().StringFixed(p.Currency.MinorUnitScale()),
		Currency:        p.Currency.String(),
		InvoiceLimit:    p.InvoiceLimit,
		TeamMemberLimit: p.TeamMemberLimit,
		Features:        p.Features.Strings(),
		SortOrder:       p.SortOrder,
	}
}

// ToPlanResponses converts a list of plans
func ToPlanResponses(plans []*billing.Plan) []PlanResponse {
	out := make([]PlanResponse, len(plans))
	for i, p := range plans {
		out[i] = ToPlanResponse(p)
	}
	return out
}

// PlanInput carries the attributes of a plan create or update
type PlanInput struct {
	Name            string   `json:"name" binding:"required,min=1,max=100"`
	PriceMinor      int64    `json:"price_minor" binding:"min=0"`
	Currency        string   `json:"currency" binding:"omitempty,iso4217"`
	InvoiceLimit    *int     `json:"invoice_limit" binding:"omitempty,min=0"`
	TeamMemberLimit *int     `json:"team_member_limit" binding:"omitempty,min=0"`
	Features        []string `json:"features"`
	SortOrder       int      `json:"sort_order"`
}

// CreatePlanInput adds the immutable id to PlanInput
type CreatePlanInput struct {
	ID string `json:"id" binding:"required,min=2,max=63"`
	PlanInput
}

func (in PlanInput) attributes() (billing.PlanAttributes, error) {
	features, err := billing.ParseFeatureSet(in.Features)
	if err != nil {
		return billing.PlanAttributes{}, err
	}
	return billing.PlanAttributes{
		Name:            in.Name,
		PriceMinor:      in.PriceMinor,
		Currency:        valueobject.Currency(in.Currency),
		InvoiceLimit:    in.InvoiceLimit,
		TeamMemberLimit: in.TeamMemberLimit,
		Features:        features,
		SortOrder:       in.SortOrder,
	}, nil
}

// EntitlementResponse is the caller's effective plan and usage
type EntitlementResponse struct {
	UserID            string       `json:"user_id"`
	AssignedPlanID    string       `json:"assigned_plan_id"`
	Plan              PlanResponse `json:"plan"`
	UsedThisMonth     int64        `json:"used_this_month"`
	UsageKnown        bool         `json:"usage_known"`
	IsLimitReached    bool         `json:"is_limit_reached"`
	RemainingInvoices int64        `json:"remaining_invoices"`
	FellBack          bool         `json:"fell_back"`
}

// ToEntitlementResponse converts a domain entitlement
func ToEntitlementResponse(e *billing.Entitlement) EntitlementResponse {
	return EntitlementResponse{
		UserID:            e.UserID,
		AssignedPlanID:    e.PlanID,
		Plan:              ToPlanResponse(e.EffectivePlan),
		UsedThisMonth:     e.UsedThisMonth,
		UsageKnown:        e.UsageKnown,
		IsLimitReached:    e.IsLimitReached,
		RemainingInvoices: e.RemainingInvoices(),
		FellBack:          e.FellBack,
	}
}

// CreateOrderInput requests a gateway order for a paid plan
type CreateOrderInput struct {
	PlanID      string `json:"plan_id" binding:"required"`
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Currency    string `json:"currency" binding:"omitempty,iso4217"`
}

// OrderResponse is what the checkout widget needs to open an order
type OrderResponse struct {
	OrderID     string    `json:"order_id"`
	PublicKeyID string    `json:"key_id"`
	PlanID      string    `json:"plan_id"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToOrderResponse converts a payment order
func ToOrderResponse(o *billing.PaymentOrder) OrderResponse {
	return OrderResponse{
		OrderID:     o.ID,
		PublicKeyID: o.PublicKeyID,
		PlanID:      o.PlanID,
		AmountMinor: o.AmountMinor,
		Currency:    o.Currency.String(),
		CreatedAt:   o.CreatedAt,
	}
}

// VerifyPaymentInput is the signed receipt returned by checkout
type VerifyPaymentInput struct {
	PlanID    string `json:"plan_id" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Receipt converts the input to the domain receipt
func (in VerifyPaymentInput) Receipt() billing.Receipt {
	return billing.Receipt{OrderID: in.OrderID, PaymentID: in.PaymentID, Signature: in.Signature}
}

// ApplyFreePlanInput switches the caller to a free plan
type ApplyFreePlanInput struct {
	PlanID string `json:"plan_id" binding:"required"`
}

// TransitionResult reports a plan transition
type TransitionResult struct {
	PlanID         string  `json:"plan_id"`
	PreviousPlanID string  `json:"previous_plan_id,omitempty"`
	Applied        bool    `json:"applied"`
	PaymentID      *string `json:"payment_id,omitempty"`
}
