package document

import (
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeDocument is the aggregate type for document events
const AggregateTypeDocument = "Document"

// RecurringSchedule holds the recurring fields of a recurring template
type RecurringSchedule struct {
	Frequency     RecurringFrequency
	NextIssueDate *time.Time
}

// Document is an invoice, quote or recurring template owned by one user.
// Its Type only changes through quote conversion, which creates a new document.
type Document struct {
	shared.OwnedAggregateRoot
	Number             string
	Type               Type
	Status             Status
	Content            Content
	Recurring          *RecurringSchedule
	SourceQuoteID      *uuid.UUID // set on invoices created from a quote
	ConvertedInvoiceID *uuid.UUID // set on quotes that were converted
}

// NewDocument creates a document in the initial status of its type.
// Number may be empty; the repository assigns one on insert.
func NewDocument(ownerID string, docType Type, content Content, recurring *RecurringSchedule) (*Document, error) {
	if ownerID == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Owner cannot be empty")
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown document type: %s", docType))
	}
	normalized, err := content.Normalize()
	if err != nil {
		return nil, err
	}
	if err := validateRecurring(docType, recurring); err != nil {
		return nil, err
	}

	doc := &Document{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(ownerID),
		Type:               docType,
		Status:             docType.InitialStatus(),
		Content:            normalized,
		Recurring:          recurring,
	}
	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))
	return doc, nil
}

func validateRecurring(docType Type, recurring *RecurringSchedule) error {
	if docType != TypeRecurringTemplate {
		if recurring != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "Only recurring templates carry a recurring schedule")
		}
		return nil
	}
	if recurring == nil || !recurring.Frequency.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Recurring template requires a valid frequency")
	}
	return nil
}

// UpdateStatus moves the document along its type's status table.
// An invoice may only become overdue once its due date has passed.
func (d *Document) UpdateStatus(target Status, now time.Time) error {
	if !target.IsValidFor(d.Type) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Status %s does not apply to a %s", target, d.Type))
	}
	if !CanTransition(d.Type, d.Status, target) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot move %s from %s to %s", d.Type, d.Status, target))
	}
	if target == StatusOverdue {
		if d.Content.DueDate == nil || !now.After(*d.Content.DueDate) {
			return shared.NewDomainError(shared.CodeInvalidState, "Invoice is not past its due date")
		}
	}

	from := d.Status
	d.Status = target
	d.Touch()
	d.IncrementVersion()
	d.AddDomainEvent(NewDocumentStatusChangedEvent(d, from))
	return nil
}

// Edit replaces the editable body and, for recurring templates, the schedule.
// A nil schedule keeps the current one. The type never changes here.
func (d *Document) Edit(content Content, recurring *RecurringSchedule) error {
	normalized, err := content.Normalize()
	if err != nil {
		return err
	}
	if recurring == nil && d.Type == TypeRecurringTemplate {
		recurring = d.Recurring
	}
	if err := validateRecurring(d.Type, recurring); err != nil {
		return err
	}
	d.Content = normalized
	d.Recurring = recurring
	d.Touch()
	d.IncrementVersion()
	return nil
}

// ConvertToInvoice creates a draft invoice from an accepted quote.
// Items, parties, currency and discount are copied verbatim. The quote keeps
// its id and type and is linked to the new invoice so it converts only once.
func (d *Document) ConvertToInvoice() (*Document, error) {
	if d.Type != TypeQuote {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Only quotes can be converted to invoices")
	}
	if d.Status != StatusAccepted {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot convert quote in %s status", d.Status))
	}
	if d.ConvertedInvoiceID != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Quote has already been converted")
	}

	invoice := &Document{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(d.OwnerID),
		Type:               TypeInvoice,
		Status:             TypeInvoice.InitialStatus(),
		Content:            d.Content.Clone(),
	}
	quoteID := d.ID
	invoice.SourceQuoteID = &quoteID
	invoice.AddDomainEvent(NewDocumentCreatedEvent(invoice))

	invoiceID := invoice.ID
	d.ConvertedInvoiceID = &invoiceID
	d.Touch()
	d.IncrementVersion()
	d.AddDomainEvent(NewQuoteConvertedEvent(d, invoice))

	return invoice, nil
}

// Totals returns the computed totals of the content
func (d *Document) Totals() Totals {
	return d.Content.Totals()
}
