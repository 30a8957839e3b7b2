package document

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilter narrows a document listing
type ListFilter struct {
	shared.Filter
	Type   Type
	Status Status
	From   *time.Time // created_at >= From
	To     *time.Time // created_at <= To
}

// StatusSummary aggregates documents of one status
type StatusSummary struct {
	Status Status
	Count  int64
	Total  decimal.Decimal
}

// Repository persists documents. Every read and write is scoped to an owner;
// a document that exists but belongs to someone else is reported as not found.
type Repository interface {
	FindByIDForOwner(ctx context.Context, ownerID string, id uuid.UUID) (*Document, error)
	List(ctx context.Context, ownerID string, filter ListFilter) ([]*Document, int64, error)

	// CountCreated counts documents of a type created in [from, to], both inclusive
	CountCreated(ctx context.Context, ownerID string, docType Type, from, to time.Time) (int64, error)

	// SummarizeByStatus groups documents of a type created in [from, to]
	SummarizeByStatus(ctx context.Context, ownerID string, docType Type, from, to time.Time) ([]StatusSummary, error)

	// Create inserts the document, assigning the next number for its owner,
	// type and month when Number is empty
	Create(ctx context.Context, doc *Document) error

	// Update saves a document modified by exactly one domain operation. The
	// stored version must be doc.Version-1, otherwise it fails with
	// shared.ErrConcurrencyConflict.
	Update(ctx context.Context, doc *Document) error

	Delete(ctx context.Context, ownerID string, id uuid.UUID) error

	// ConvertQuote links the quote to the invoice and inserts the invoice in a
	// single transaction. A quote converted concurrently fails with shared.ErrInvalidState.
	ConvertQuote(ctx context.Context, quote *Document, invoice *Document) error
}

// FormatNumber renders a document number such as INV-202403-0007
func FormatNumber(docType Type, at time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", docType.NumberPrefix(), at.UTC().Format("200601"), seq)
}
