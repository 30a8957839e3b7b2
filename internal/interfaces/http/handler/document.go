package handler

import (
	"context"
	"net/http"

	docapp "github.com/billforge/backend/internal/application/document"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Documents is the document lifecycle as used over HTTP
type Documents interface {
	Create(ctx context.Context, userID string, req docapp.CreateDocumentRequest) (*docapp.DocumentResponse, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*docapp.DocumentResponse, error)
	List(ctx context.Context, userID string, q docapp.ListDocumentsQuery) (shared.Paginated[docapp.DocumentResponse], error)
	Update(ctx context.Context, userID string, id uuid.UUID, req docapp.UpdateDocumentRequest) (*docapp.DocumentResponse, error)
	UpdateStatus(ctx context.Context, userID string, id uuid.UUID, status string) (*docapp.DocumentResponse, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	ConvertQuoteToInvoice(ctx context.Context, userID string, quoteID uuid.UUID) (*docapp.DocumentResponse, error)
	MonthlySummary(ctx context.Context, userID string) (*docapp.SummaryResponse, error)
}

// DocumentHandler handles invoices, quotes and recurring templates
type DocumentHandler struct {
	BaseHandler
	documents Documents
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documents Documents) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Create godoc
// @ID          createDocument
// @Summary     Create a document
// @Description Invoices count against the plan's monthly limit
// @Tags        documents
// @Accept      json
// @Produce     json
// @Param       request body document.CreateDocumentRequest true "Document"
// @Success     201 {object} APIResponse[document.DocumentResponse]
// @Failure     400 {object} ErrorResponse
// @Failure     402 {object} ErrorResponse "QUOTA_EXCEEDED"
// @Security    BearerAuth
// @Router      /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req docapp.CreateDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doc, err := h.documents.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, doc)
}

// List godoc
// @ID          listDocuments
// @Summary     List documents
// @Tags        documents
// @Produce     json
// @Param       type query string false "invoice, quote or recurring_template"
// @Param       status query string false "Status filter"
// @Param       from query string false "Created on or after (YYYY-MM-DD)"
// @Param       to query string false "Created on or before (YYYY-MM-DD)"
// @Param       page query int false "Page number" default(1)
// @Param       page_size query int false "Page size" default(20)
// @Param       order_by query string false "created_at, number or status"
// @Param       order_dir query string false "asc or desc"
// @Success     200 {object} APIResponse[[]document.DocumentResponse]
// @Failure     400 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var q docapp.ListDocumentsQuery
	if !h.bindQuery(c, &q) {
		return
	}
	page, err := h.documents.List(c.Request.Context(), userID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// Get godoc
// @ID          getDocument
// @Summary     Get a document
// @Tags        documents
// @Produce     json
// @Param       id path string true "Document ID" format(uuid)
// @Success     200 {object} APIResponse[document.DocumentResponse]
// @Failure     404 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.documents.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Update godoc
// @ID          updateDocument
// @Summary     Update a document
// @Description Only drafts can be edited. The version must match the stored one.
// @Tags        documents
// @Accept      json
// @Produce     json
// @Param       id path string true "Document ID" format(uuid)
// @Param       request body document.UpdateDocumentRequest true "Content"
// @Success     200 {object} APIResponse[document.DocumentResponse]
// @Failure     404 {object} ErrorResponse
// @Failure     409 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req docapp.UpdateDocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doc, err := h.documents.Update(c.Request.Context(), userID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// UpdateStatus godoc
// @ID          updateDocumentStatus
// @Summary     Change a document's status
// @Tags        documents
// @Accept      json
// @Produce     json
// @Param       id path string true "Document ID" format(uuid)
// @Param       request body document.UpdateStatusRequest true "Target status"
// @Success     200 {object} APIResponse[document.DocumentResponse]
// @Failure     409 {object} ErrorResponse "INVALID_STATE"
// @Security    BearerAuth
// @Router      /documents/{id}/status [post]
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req docapp.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	doc, err := h.documents.UpdateStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Delete godoc
// @ID          deleteDocument
// @Summary     Delete a document
// @Tags        documents
// @Param       id path string true "Document ID" format(uuid)
// @Success     204
// @Failure     404 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), userID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Convert godoc
// @ID          convertQuote
// @Summary     Convert an accepted quote to an invoice
// @Description The new invoice counts against the monthly limit
// @Tags        documents
// @Produce     json
// @Param       id path string true "Quote ID" format(uuid)
// @Success     201 {object} APIResponse[document.DocumentResponse]
// @Failure     402 {object} ErrorResponse "QUOTA_EXCEEDED"
// @Failure     409 {object} ErrorResponse
// @Security    BearerAuth
// @Router      /documents/{id}/convert [post]
func (h *DocumentHandler) Convert(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	invoice, err := h.documents.ConvertQuoteToInvoice(c.Request.Context(), userID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Summary godoc
// @ID          getMonthlySummary
// @Summary     Monthly invoice summary
// @Description Requires the advanced_reports feature
// @Tags        reports
// @Produce     json
// @Success     200 {object} APIResponse[document.SummaryResponse]
// @Failure     403 {object} ErrorResponse "FEATURE_NOT_AVAILABLE"
// @Security    BearerAuth
// @Router      /reports/summary [get]
func (h *DocumentHandler) Summary(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	summary, err := h.documents.MonthlySummary(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
