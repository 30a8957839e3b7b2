package handler

import (
	"context"

	identityapp "github.com/billforge/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIKeys manages the caller's API keys
type APIKeys interface {
	Create(ctx context.Context, userID string, req identityapp.CreateAPIKeyRequest) (*identityapp.CreatedAPIKeyResponse, error)
	List(ctx context.Context, userID string) ([]identityapp.APIKeyResponse, error)
	Revoke(ctx context.Context, userID string, id uuid.UUID) error
}

// APIKeyHandler handles API key endpoints. Routes sit behind the
// api_access feature gate.
type APIKeyHandler struct {
	BaseHandler
	keys APIKeys
}

// NewAPIKeyHandler creates a new APIKeyHandler
func NewAPIKeyHandler(keys APIKeys) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// Create godoc
// @ID          createAPIKey
// @Summary     Create an API key
// @Description The plaintext key is only returned in this response
// @Tags        api-keys
// @Accept      json
// @Produce     json
// @Param       request body identity.CreateAPIKeyRequest true "Key name"
// @Success     201 {object} APIResponse[identity.CreatedAPIKeyResponse]
// @Failure     400 {object} ErrorResponse
// @Failure     403 {object} ErrorResponse "FEATURE_NOT_AVAILABLE"
// @Security    BearerAuth
// @Router      /api-keys [post]
func (h *APIKeyHandler) Create(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req identityapp.CreateAPIKeyRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, err := h.keys.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, key)
}

// List godoc
// @ID          listAPIKeys
// @Summary     List API keys
// @Tags        api-keys
// @Produce     json
// @Success     200 {object} APIResponse[[]identity.APIKeyResponse]
// @Security    BearerAuth
// @Router      /api-keys [get]
func (h *APIKeyHandler) List(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	keys, err := h.keys.List(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, keys)
}

// Revoke godoc
// @ID          revokeAPIKey
// @Summary     Revoke an API key
// @Tags        api-keys
// @Param       id path string true "Key ID" format(uuid)
// @Success     204
// @Failure     404 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /api-keys/{id} [delete]
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.keys.Revoke(c.Request.Context(), userID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
