package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/document"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// nextSequenceSQL bumps the per owner, type and month counter and returns
// the new value. Supported by PostgreSQL and SQLite >= 3.35.
const nextSequenceSQL = `INSERT INTO document_sequences (owner_id, doc_type, period, last_value)
VALUES (?, ?, ?, 1)
ON CONFLICT (owner_id, doc_type, period)
DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`

// GormDocumentRepository implements document.Repository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByIDForOwner finds a document owned by ownerID
func (r *GormDocumentRepository) FindByIDForOwner(ctx context.Context, ownerID string, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&model).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain()
}

// List returns a page of the owner's documents and the total match count
func (r *GormDocumentRepository) List(ctx context.Context, ownerID string, filter document.ListFilter) ([]*document.Document, int64, error) {
	f := filter.Filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{}).Where("owner_id = ?", ownerID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", filter.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(f.OrderBy, DocumentSortFields, "created_at")
	sortOrder := ValidateSortOrder(f.OrderDir)

	var rows []models.DocumentModel
	if err := query.
		Order(fmt.Sprintf("%s %s, id %s", sortField, sortOrder, sortOrder)).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	docs := make([]*document.Document, 0, len(rows))
	for i := range rows {
		doc, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, nil
}

// CountCreated counts documents of a type created in [from, to]
func (r *GormDocumentRepository) CountCreated(ctx context.Context, ownerID string, docType document.Type, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("owner_id = ? AND type = ? AND created_at >= ? AND created_at <= ?", ownerID, docType, from.UTC(), to.UTC()).
		Count(&count).Error
	return count, err
}

// SummarizeByStatus groups documents of a type created in [from, to] by status
func (r *GormDocumentRepository) SummarizeByStatus(ctx context.Context, ownerID string, docType document.Type, from, to time.Time) ([]document.StatusSummary, error) {
	var rows []struct {
		Status string
		Count  int64
		Total  decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("owner_id = ? AND type = ? AND created_at >= ? AND created_at <= ?", ownerID, docType, from.UTC(), to.UTC()).
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]document.StatusSummary, len(rows))
	for i, row := range rows {
		out[i] = document.StatusSummary{
			Status: document.Status(row.Status),
			Count:  row.Count,
			Total:  row.Total,
		}
	}
	return out, nil
}

// Create inserts a document, numbering it in the same transaction
func (r *GormDocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertDocument(tx, doc)
	})
}

// Update saves a document under optimistic locking
func (r *GormDocumentRepository) Update(ctx context.Context, doc *document.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return updateDocument(tx, doc)
	})
}

// Delete removes a document owned by ownerID
func (r *GormDocumentRepository) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&models.DocumentModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ConvertQuote links the quote to its new invoice and inserts the invoice atomically
func (r *GormDocumentRepository) ConvertQuote(ctx context.Context, quote *document.Document, invoice *document.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.DocumentModel{}).
			Where("id = ? AND owner_id = ? AND converted_invoice_id IS NULL AND version = ?",
				quote.ID, quote.OwnerID, quote.Version-1).
			Updates(map[string]any{
				"converted_invoice_id": quote.ConvertedInvoiceID,
				"version":              quote.Version,
				"updated_at":           quote.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError(shared.CodeInvalidState, "Quote has already been converted")
		}
		return insertDocument(tx, invoice)
	})
}

func insertDocument(tx *gorm.DB, doc *document.Document) error {
	if doc.Number == "" {
		number, err := nextNumber(tx, doc)
		if err != nil {
			return err
		}
		doc.Number = number
	}
	model, err := models.DocumentModelFromDomain(doc)
	if err != nil {
		return err
	}
	if err := tx.Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("Document number %s is already used", doc.Number))
		}
		return err
	}
	return nil
}

func nextNumber(tx *gorm.DB, doc *document.Document) (string, error) {
	period := doc.CreatedAt.UTC().Format("200601")
	var seq int64
	if err := tx.Raw(nextSequenceSQL, doc.OwnerID, string(doc.Type), period).Scan(&seq).Error; err != nil {
		return "", fmt.Errorf("next document number: %w", err)
	}
	return document.FormatNumber(doc.Type, doc.CreatedAt, seq), nil
}

func updateDocument(tx *gorm.DB, doc *document.Document) error {
	model, err := models.DocumentModelFromDomain(doc)
	if err != nil {
		return err
	}
	result := tx.Model(&models.DocumentModel{}).
		Where("id = ? AND owner_id = ? AND version = ?", doc.ID, doc.OwnerID, doc.Version-1).
		Updates(map[string]any{
			"status":               model.Status,
			"content":              model.ContentJSON,
			"currency":             model.Currency,
			"total":                model.Total,
			"recurring_frequency":  model.RecurringFrequency,
			"next_issue_date":      model.NextIssueDate,
			"converted_invoice_id": model.ConvertedInvoiceID,
			"version":              model.Version,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var exists int64
	if err := tx.Model(&models.DocumentModel{}).
		Where("id = ? AND owner_id = ?", doc.ID, doc.OwnerID).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return shared.ErrNotFound
	}
	return shared.ErrConcurrencyConflict
}

var _ document.Repository = (*GormDocumentRepository)(nil)
