package handler

import (
	"context"

	billingapp "github.com/billforge/backend/internal/application/billing"
	"github.com/billforge/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// PlanCatalog is the plan catalog as seen by the HTTP layer
type PlanCatalog interface {
	List(ctx context.Context) ([]*billing.Plan, error)
	Get(ctx context.Context, id string) (*billing.Plan, error)
	Create(ctx context.Context, in billingapp.CreatePlanInput) (*billing.Plan, error)
	Update(ctx context.Context, id string, in billingapp.PlanInput) (*billing.Plan, error)
	Delete(ctx context.Context, id string) error
}

// PlanHandler serves the public catalog and its admin mutations
type PlanHandler struct {
	BaseHandler
	catalog PlanCatalog
}

// NewPlanHandler creates a new PlanHandler
func NewPlanHandler(catalog PlanCatalog) *PlanHandler {
	return &PlanHandler{catalog: catalog}
}

// List godoc
// @ID          listPlans
// @Summary     List plans
// @Description Returns every plan in display order
// @Tags        plans
// @Produce     json
// @Success     200 {object} APIResponse[[]billing.PlanResponse]
// @Failure     500 {object} ErrorResponse
// @Router      /plans [get]
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, billingapp.ToPlanResponses(plans))
}

// Get godoc
// @ID          getPlan
// @Summary     Get a plan
// @Tags        plans
// @Produce     json
// @Param       id path string true "Plan ID"
// @Success     200 {object} APIResponse[billing.PlanResponse]
// @Failure     404 {object} ErrorResponse
// @Router      /plans/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, billingapp.ToPlanResponse(plan))
}

// Create godoc
// @ID          createPlan
// @Summary     Create a plan
// @Tags        admin
// @Accept      json
// @Produce     json
// @Param       request body billing.CreatePlanInput true "Plan"
// @Success     201 {object} APIResponse[billing.PlanResponse]
// @Failure     400 {object} ErrorResponse
// @Failure     403 {object} ErrorResponse
// @Failure     409 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /admin/plans [post]
func (h *PlanHandler) Create(c *gin.Context) {
	var in billingapp.CreatePlanInput
	if !h.bindJSON(c, &in) {
		return
	}
	plan, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, billingapp.ToPlanResponse(plan))
}

// Update godoc
// @ID          updatePlan
// @Summary     Update a plan
// @Description Replaces the mutable attributes of a plan; the id never changes
// @Tags        admin
// @Accept      json
// @Produce     json
// @Param       id path string true "Plan ID"
// @Param       request body billing.PlanInput true "Plan attributes"
// @Success     200 {object} APIResponse[billing.PlanResponse]
// @Failure     400 {object} ErrorResponse
// @Failure     404 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /admin/plans/{id} [put]
func (h *PlanHandler) Update(c *gin.Context) {
	var in billingapp.PlanInput
	if !h.bindJSON(c, &in) {
		return
	}
	plan, err := h.catalog.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, billingapp.ToPlanResponse(plan))
}

// Delete godoc
// @ID          deletePlan
// @Summary     Delete a plan
// @Description The default plan cannot be deleted
// @Tags        admin
// @Param       id path string true "Plan ID"
// @Success     204
// @Failure     404 {object} ErrorResponse
// @Failure     409 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /admin/plans/{id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
