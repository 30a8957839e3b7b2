package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/document"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentModel is the persistence model for the Document aggregate.
// Content is stored as JSON; Total and Currency are denormalized from it so
// reports can aggregate without decoding every row.
type DocumentModel struct {
	OwnedAggregateModel
	Number             string          `gorm:"type:varchar(32);not null"`
	Type               string          `gorm:"type:varchar(32);not null"`
	Status             string          `gorm:"type:varchar(32);not null"`
	ContentJSON        string          `gorm:"column:content;type:jsonb;not null"`
	Currency           string          `gorm:"type:char(3);not null"`
	Total              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RecurringFrequency *string         `gorm:"type:varchar(16)"`
	NextIssueDate      *time.Time      `gorm:""`
	SourceQuoteID      *uuid.UUID      `gorm:"type:uuid"`
	ConvertedInvoiceID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the model to a domain document
func (m *DocumentModel) ToDomain() (*document.Document, error) {
	var content document.Content
	if err := json.Unmarshal([]byte(m.ContentJSON), &content); err != nil {
		return nil, fmt.Errorf("decode content of document %s: %w", m.ID, err)
	}

	doc := &document.Document{
		Number:             m.Number,
		Type:               document.Type(m.Type),
		Status:             document.Status(m.Status),
		Content:            content,
		SourceQuoteID:      m.SourceQuoteID,
		ConvertedInvoiceID: m.ConvertedInvoiceID,
	}
	m.PopulateOwnedAggregateRoot(&doc.OwnedAggregateRoot)
	if m.RecurringFrequency != nil {
		doc.Recurring = &document.RecurringSchedule{
			Frequency:     document.RecurringFrequency(*m.RecurringFrequency),
			NextIssueDate: m.NextIssueDate,
		}
	}
	return doc, nil
}

// DocumentModelFromDomain creates a persistence model from a domain document
func DocumentModelFromDomain(d *document.Document) (*DocumentModel, error) {
	content, err := json.Marshal(d.Content)
	if err != nil {
		return nil, fmt.Errorf("encode content of document %s: %w", d.ID, err)
	}

	m := &DocumentModel{
		Number:             d.Number,
		Type:               string(d.Type),
		Status:             string(d.Status),
		ContentJSON:        string(content),
		Currency:           d.Content.Currency.String(),
		Total:              d.Totals().Total,
		SourceQuoteID:      d.SourceQuoteID,
		ConvertedInvoiceID: d.ConvertedInvoiceID,
	}
	m.FromDomainOwnedAggregateRoot(d.OwnedAggregateRoot)
	if d.Recurring != nil {
		freq := string(d.Recurring.Frequency)
		m.RecurringFrequency = &freq
		m.NextIssueDate = d.Recurring.NextIssueDate
	}
	return m, nil
}

// DocumentSequenceModel holds the last number issued per owner, type and month
type DocumentSequenceModel struct {
	OwnerID   string `gorm:"type:varchar(128);primaryKey"`
	DocType   string `gorm:"type:varchar(32);primaryKey"`
	Period    string `gorm:"type:char(6);primaryKey"` // YYYYMM
	LastValue int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentSequenceModel) TableName() string {
	return "document_sequences"
}

