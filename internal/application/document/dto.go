package document

import (
	"time"

	"github.com/billforge/backend/internal/domain/document"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemDTO is one line of a document
type LineItemDTO struct {
	Description string          `json:"description" binding:"required,min=1,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
}

// PartyDTO is the sender or recipient of a document
type PartyDTO struct {
	Name    string `json:"name" binding:"max=200"`
	Email   string `json:"email" binding:"omitempty,email,max=200"`
	Address string `json:"address" binding:"max=1000"`
	TaxID   string `json:"tax_id" binding:"max=50"`
}

// ContentDTO is the editable body of a document
type ContentDTO struct {
	Items     []LineItemDTO   `json:"items" binding:"dive"`
	From      PartyDTO        `json:"from"`
	To        PartyDTO        `json:"to"`
	Currency  string          `json:"currency" binding:"omitempty,iso4217"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Discount  decimal.Decimal `json:"discount"`
	Notes     string          `json:"notes" binding:"max=2000"`
	IssueDate *time.Time      `json:"issue_date"`
	DueDate   *time.Time      `json:"due_date"`
}

// RecurringDTO holds the schedule of a recurring template
type RecurringDTO struct {
	Frequency     string     `json:"frequency" binding:"required,oneof=weekly monthly quarterly yearly"`
	NextIssueDate *time.Time `json:"next_issue_date"`
}

// CreateDocumentRequest creates an invoice, quote or recurring template
type CreateDocumentRequest struct {
	Type      string        `json:"type" binding:"required,oneof=invoice quote recurring_template"`
	Content   ContentDTO    `json:"content"`
	Recurring *RecurringDTO `json:"recurring"`
}

// UpdateDocumentRequest replaces the content of a document.
// The type cannot be changed.
type UpdateDocumentRequest struct {
	Content   ContentDTO    `json:"content"`
	Recurring *RecurringDTO `json:"recurring"`
	Version   int           `json:"version" binding:"required,min=1"`
}

// UpdateStatusRequest moves a document to a new status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListDocumentsQuery filters a document listing
type ListDocumentsQuery struct {
	Type     string     `form:"type" binding:"omitempty,oneof=invoice quote recurring_template"`
	Status   string     `form:"status"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string     `form:"order_by" binding:"omitempty,oneof=created_at number status"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// TotalsDTO is the computed money summary
type TotalsDTO struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// DocumentResponse is a document in API responses
type DocumentResponse struct {
	ID                 uuid.UUID     `json:"id"`
	Number             string        `json:"number"`
	Type               string        `json:"type"`
	Status             string        `json:"status"`
	Content            ContentDTO    `json:"content"`
	Totals             TotalsDTO     `json:"totals"`
	Recurring          *RecurringDTO `json:"recurring,omitempty"`
	SourceQuoteID      *uuid.UUID    `json:"source_quote_id,omitempty"`
	ConvertedInvoiceID *uuid.UUID    `json:"converted_invoice_id,omitempty"`
	Version            int           `json:"version"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// StatusSummaryDTO is one row of the monthly report
type StatusSummaryDTO struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// SummaryResponse reports the caller's invoices for a month
type SummaryResponse struct {
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
	Count       int64              `json:"count"`
	Total       decimal.Decimal    `json:"total"`
	ByStatus    []StatusSummaryDTO `json:"by_status"`
}

// ToContent converts the DTO to the domain value object
func (c ContentDTO) ToContent() document.Content {
	items := make([]document.LineItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = document.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		}
	}
	return document.Content{
		Items:     items,
		From:      document.Party(c.From),
		To:        document.Party(c.To),
		Currency:  valueobject.Currency(c.Currency),
		TaxRate:   c.TaxRate,
		Discount:  c.Discount,
		Notes:     c.Notes,
		IssueDate: c.IssueDate,
		DueDate:   c.DueDate,
	}
}

// ToSchedule converts the DTO to the domain schedule; nil stays nil
func (r *RecurringDTO) ToSchedule() *document.RecurringSchedule {
	if r == nil {
		return nil
	}
	return &document.RecurringSchedule{
		Frequency:     document.RecurringFrequency(r.Frequency),
		NextIssueDate: r.NextIssueDate,
	}
}

// ToFilter converts the query to a repository filter
func (q ListDocumentsQuery) ToFilter() document.ListFilter {
	f := shared.Filter{Page: q.Page, PageSize: q.PageSize, OrderBy: q.OrderBy, OrderDir: q.OrderDir}.Normalize()
	if f.OrderBy == "" {
		f.OrderBy = "created_at"
	}
	return document.ListFilter{
		Filter: f,
		Type:   document.Type(q.Type),
		Status: document.Status(q.Status),
		From:   q.From,
		To:     q.To,
	}
}

func toContentDTO(c document.Content) ContentDTO {
	items := make([]LineItemDTO, len(c.Items))
	for i, it := range c.Items {
		items[i] = LineItemDTO{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Amount:      it.Amount(),
		}
	}
	return ContentDTO{
		Items:     items,
		From:      PartyDTO(c.From),
		To:        PartyDTO(c.To),
		Currency:  c.Currency.String(),
		TaxRate:   c.TaxRate,
		Discount:  c.Discount,
		Notes:     c.Notes,
		IssueDate: c.IssueDate,
		DueDate:   c.DueDate,
	}
}

// ToDocumentResponse converts a domain document
func ToDocumentResponse(d *document.Document) DocumentResponse {
	totals := d.Totals()
	resp := DocumentResponse{
		ID:                 d.ID,
		Number:             d.Number,
		Type:               string(d.Type),
		Status:             string(d.Status),
		Content:            toContentDTO(d.Content),
		Totals:             TotalsDTO(totals),
		SourceQuoteID:      d.SourceQuoteID,
		ConvertedInvoiceID: d.ConvertedInvoiceID,
		Version:            d.Version,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.Recurring != nil {
		resp.Recurring = &RecurringDTO{
			Frequency:     string(d.Recurring.Frequency),
			NextIssueDate: d.Recurring.NextIssueDate,
		}
	}
	return resp
}

// ToDocumentResponses converts a list of documents
func ToDocumentResponses(docs []*document.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = ToDocumentResponse(d)
	}
	return out
}
