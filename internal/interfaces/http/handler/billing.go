package handler

import (
	"context"

	billingapp "github.com/billforge/backend/internal/application/billing"
	"github.com/billforge/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// EntitlementReader resolves the caller's effective plan
type EntitlementReader interface {
	ResolveForUser(ctx context.Context, userID string) (*billing.Entitlement, error)
}

// PaymentOrders creates gateway orders and verifies their receipts
type PaymentOrders interface {
	CreateOrder(ctx context.Context, userID string, in billingapp.CreateOrderInput) (*billing.PaymentOrder, error)
	Verify(ctx context.Context, userID string, receipt billing.Receipt, planID string) (*billing.VerificationResult, error)
}

// PlanTransitions applies plan changes
type PlanTransitions interface {
	ApplyFreePlan(ctx context.Context, userID, planID string) (*billingapp.TransitionResult, error)
	ApplyPaidPlan(ctx context.Context, userID string, verified *billing.VerificationResult) (*billingapp.TransitionResult, error)
}

// BillingHandler exposes entitlements, checkout and plan changes
type BillingHandler struct {
	BaseHandler
	entitlements EntitlementReader
	orders       PaymentOrders
	transitions  PlanTransitions
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(entitlements EntitlementReader, orders PaymentOrders, transitions PlanTransitions) *BillingHandler {
	return &BillingHandler{entitlements: entitlements, orders: orders, transitions: transitions}
}

// GetEntitlement godoc
// @ID          getMyEntitlement
// @Summary     Get the caller's entitlement
// @Description Effective plan, invoices used this month and whether the monthly limit is reached
// @Tags        billing
// @Produce     json
// @Success     200 {object} APIResponse[billing.EntitlementResponse]
// @Failure     401 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /me/entitlement [get]
func (h *BillingHandler) GetEntitlement(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	ent, err := h.entitlements.ResolveForUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, billingapp.ToEntitlementResponse(ent))
}

// ApplyFreePlan godoc
// @ID          applyFreePlan
// @Summary     Switch to a free plan
// @Tags        billing
// @Accept      json
// @Produce     json
// @Param       request body billing.ApplyFreePlanInput true "Target plan"
// @Success     200 {object} APIResponse[billing.TransitionResult]
// @Failure     400 {object} ErrorResponse
// @Failure     404 {object} ErrorResponse
// @Failure     409 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /billing/free-plan [post]
func (h *BillingHandler) ApplyFreePlan(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var in billingapp.ApplyFreePlanInput
	if !h.bindJSON(c, &in) {
		return
	}
	result, err := h.transitions.ApplyFreePlan(c.Request.Context(), userID, in.PlanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CreateOrder godoc
// @ID          createPaymentOrder
// @Summary     Create a payment order
// @Description Opens a gateway order for a paid plan. The amount must match the plan price.
// @Tags        billing
// @Accept      json
// @Produce     json
// @Param       request body billing.CreateOrderInput true "Order"
// @Success     201 {object} APIResponse[billing.OrderResponse]
// @Failure     400 {object} ErrorResponse
// @Failure     503 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /billing/orders [post]
func (h *BillingHandler) CreateOrder(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var in billingapp.CreateOrderInput
	if !h.bindJSON(c, &in) {
		return
	}
	order, err := h.orders.CreateOrder(c.Request.Context(), userID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, billingapp.ToOrderResponse(order))
}

// VerifyPayment godoc
// @ID          verifyPayment
// @Summary     Verify a payment and apply the paid plan
// @Description Checks the receipt signature, then moves the caller to the paid plan.
// @Description A 500 ENTITLEMENT_COMMIT_FAILED means the payment succeeded but the plan change did not; it is safe to retry with the same receipt.
// @Tags        billing
// @Accept      json
// @Produce     json
// @Param       request body billing.VerifyPaymentInput true "Signed receipt"
// @Success     200 {object} APIResponse[billing.TransitionResult]
// @Failure     400 {object} ErrorResponse
// @Failure     401 {object} ErrorResponse
// @Failure     500 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /billing/verify [post]
func (h *BillingHandler) VerifyPayment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var in billingapp.VerifyPaymentInput
	if !h.bindJSON(c, &in) {
		return
	}
	ctx := c.Request.Context()
	verified, err := h.orders.Verify(ctx, userID, in.Receipt(), in.PlanID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	result, err := h.transitions.ApplyPaidPlan(ctx, userID, verified)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
