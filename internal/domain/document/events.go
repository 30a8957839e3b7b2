package document

import (
	"github.com/billforge/backend/internal/domain/shared"
)

const (
	EventTypeDocumentCreated       = "document.created"
	EventTypeDocumentStatusChanged = "document.status_changed"
	EventTypeQuoteConverted        = "document.quote_converted"
)

// DocumentCreatedEvent is published when a document is created
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentType Type `json:"document_type"`
}

// NewDocumentCreatedEvent creates a DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, d.ID.String(), d.OwnerID),
		DocumentType:    d.Type,
	}
}

// DocumentStatusChangedEvent is published after a status transition
type DocumentStatusChangedEvent struct {
	shared.BaseDomainEvent
	DocumentType Type   `json:"document_type"`
	FromStatus   Status `json:"from_status"`
	ToStatus     Status `json:"to_status"`
}

// NewDocumentStatusChangedEvent creates a DocumentStatusChangedEvent
func NewDocumentStatusChangedEvent(d *Document, from Status) *DocumentStatusChangedEvent {
	return &DocumentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentStatusChanged, AggregateTypeDocument, d.ID.String(), d.OwnerID),
		DocumentType:    d.Type,
		FromStatus:      from,
		ToStatus:        d.Status,
	}
}

// QuoteConvertedEvent is published when a quote becomes an invoice
type QuoteConvertedEvent struct {
	shared.BaseDomainEvent
	InvoiceID string `json:"invoice_id"`
}

// NewQuoteConvertedEvent creates a QuoteConvertedEvent
func NewQuoteConvertedEvent(quote, invoice *Document) *QuoteConvertedEvent {
	return &QuoteConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuoteConverted, AggregateTypeDocument, quote.ID.String(), quote.OwnerID),
		InvoiceID:       invoice.ID.String(),
	}
}
