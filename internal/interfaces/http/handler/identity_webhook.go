package handler

import (
	"context"
	"io"

	"github.com/billforge/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SessionWebhook verifies and dispatches identity provider events
type SessionWebhook interface {
	Handle(ctx context.Context, body []byte, signature string) error
}

// IdentityWebhookHandler receives session events from the identity provider.
// The route is unauthenticated; the HMAC signature is the credential.
type IdentityWebhookHandler struct {
	BaseHandler
	webhook SessionWebhook
}

// NewIdentityWebhookHandler creates a new IdentityWebhookHandler
func NewIdentityWebhookHandler(webhook SessionWebhook) *IdentityWebhookHandler {
	return &IdentityWebhookHandler{webhook: webhook}
}

// WebhookAck acknowledges a delivered event
type WebhookAck struct {
	Received bool `json:"received" example:"true"`
}

// Handle godoc
// @ID          receiveIdentityWebhook
// @Summary     Identity provider webhook
// @Description Signed with HMAC-SHA256 over the raw body in the X-Webhook-Signature header.
// @Description Redelivered events are acknowledged without being applied twice.
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       X-Webhook-Signature header string true "hex HMAC-SHA256 of the body"
// @Success     200 {object} APIResponse[WebhookAck]
// @Failure     400 {object} ErrorResponse "INVALID_SIGNATURE"
// @Router      /identity/webhook [post]
func (h *IdentityWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if err := h.webhook.Handle(c.Request.Context(), body, c.GetHeader(middleware.WebhookSignatureHeader)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, WebhookAck{Received: true})
}
