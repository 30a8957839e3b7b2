package document

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/document"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EntitlementSource resolves the caller's entitlement for the invoice quota gate
type EntitlementSource interface {
	ResolveForUser(ctx context.Context, userID string) (*billing.Entitlement, error)
}

// QuotaRecorder counts rejected creates
type QuotaRecorder interface {
	RecordQuotaRejection(ctx context.Context, planID string)
}

// DocumentService manages invoices, quotes and recurring templates
type DocumentService struct {
	repo         document.Repository
	entitlements EntitlementSource
	publisher    shared.EventPublisher
	quota        QuotaRecorder
	now          func() time.Time
	logger       *zap.Logger
}

// DocumentServiceConfig holds the collaborators of DocumentService
type DocumentServiceConfig struct {
	Repo         document.Repository
	Entitlements EntitlementSource
	Publisher    shared.EventPublisher
	Quota        QuotaRecorder
	Logger       *zap.Logger
}

// NewDocumentService creates a DocumentService
func NewDocumentService(cfg DocumentServiceConfig) *DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:         cfg.Repo,
		entitlements: cfg.Entitlements,
		publisher:    cfg.Publisher,
		quota:        cfg.Quota,
		now:          time.Now,
		logger:       logger,
	}
}

// Create stores a new document. Invoices are refused with QUOTA_EXCEEDED once
// the plan's monthly limit is reached; unknown usage lets the create through.
// The limit is soft: concurrent creates may overshoot it by a few documents.
func (s *DocumentService) Create(ctx context.Context, userID string, req CreateDocumentRequest) (*DocumentResponse, error) {
	docType := document.Type(req.Type)
	if docType == document.TypeInvoice {
		if err := s.checkInvoiceQuota(ctx, userID); err != nil {
			return nil, err
		}
	}

	doc, err := document.NewDocument(userID, docType, req.Content.ToContent(), req.Recurring.ToSchedule())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.publishEvents(ctx, doc)

	s.logger.Info("Document created",
		zap.String("user_id", userID),
		zap.String("document_id", doc.ID.String()),
		zap.String("type", string(doc.Type)),
		zap.String("number", doc.Number))

	resp := ToDocumentResponse(doc)
	return &resp, nil
}

func (s *DocumentService) checkInvoiceQuota(ctx context.Context, userID string) error {
	if s.entitlements == nil {
		return nil
	}
	ent, err := s.entitlements.ResolveForUser(ctx, userID)
	if err != nil {
		return err
	}
	if !ent.IsLimitReached {
		return nil
	}
	if s.quota != nil {
		s.quota.RecordQuotaRejection(ctx, ent.EffectivePlan.ID)
	}
	limit := 0
	if ent.EffectivePlan.InvoiceLimit != nil {
		limit = *ent.EffectivePlan.InvoiceLimit
	}
	return shared.NewDomainError(shared.CodeQuotaExceeded,
		fmt.Sprintf("Monthly invoice limit of %d reached on plan %s", limit, ent.EffectivePlan.ID))
}

// Get returns one of the caller's documents
func (s *DocumentService) Get(ctx context.Context, userID string, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.repo.FindByIDForOwner(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// List returns a page of the caller's documents
func (s *DocumentService) List(ctx context.Context, userID string, q ListDocumentsQuery) (shared.Paginated[DocumentResponse], error) {
	filter := q.ToFilter()
	if filter.Status != "" && filter.Type != "" && !filter.Status.IsValidFor(filter.Type) {
		return shared.Paginated[DocumentResponse]{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Status %s does not apply to %s", filter.Status, filter.Type))
	}
	docs, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return shared.Paginated[DocumentResponse]{}, fmt.Errorf("list documents: %w", err)
	}
	return shared.NewPaginated(ToDocumentResponses(docs), total, filter.Page, filter.PageSize), nil
}

// Update replaces the content of a document. Version must match the stored one.
func (s *DocumentService) Update(ctx context.Context, userID string, id uuid.UUID, req UpdateDocumentRequest) (*DocumentResponse, error) {
	doc, err := s.repo.FindByIDForOwner(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if doc.Version != req.Version {
		return nil, shared.ErrConcurrencyConflict
	}
	if err := doc.Edit(req.Content.ToContent(), req.Recurring.ToSchedule()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}
	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// UpdateStatus moves a document along its status table
func (s *DocumentService) UpdateStatus(ctx context.Context, userID string, id uuid.UUID, status string) (*DocumentResponse, error) {
	doc, err := s.repo.FindByIDForOwner(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := doc.UpdateStatus(document.Status(status), s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, doc)

	resp := ToDocumentResponse(doc)
	return &resp, nil
}

// Delete removes one of the caller's documents
func (s *DocumentService) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

// ConvertQuoteToInvoice turns an accepted quote into a new draft invoice.
// The new invoice is metered, so the same quota gate as Create applies.
// The quote and invoice are written in one transaction.
func (s *DocumentService) ConvertQuoteToInvoice(ctx context.Context, userID string, quoteID uuid.UUID) (*DocumentResponse, error) {
	quote, err := s.repo.FindByIDForOwner(ctx, userID, quoteID)
	if err != nil {
		return nil, err
	}
	if err := s.checkInvoiceQuota(ctx, userID); err != nil {
		return nil, err
	}
	invoice, err := quote.ConvertToInvoice()
	if err != nil {
		return nil, err
	}
	if err := s.repo.ConvertQuote(ctx, quote, invoice); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, quote)
	s.publishEvents(ctx, invoice)

	s.logger.Info("Quote converted to invoice",
		zap.String("user_id", userID),
		zap.String("quote_id", quote.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.Number))

	resp := ToDocumentResponse(invoice)
	return &resp, nil
}

// MonthlySummary groups the caller's invoices of the current month by status
func (s *DocumentService) MonthlySummary(ctx context.Context, userID string) (*SummaryResponse, error) {
	window := billing.MonthWindow(s.now())
	rows, err := s.repo.SummarizeByStatus(ctx, userID, document.TypeInvoice, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("summarize invoices: %w", err)
	}

	resp := &SummaryResponse{
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		Total:       decimal.Zero,
		ByStatus:    make([]StatusSummaryDTO, len(rows)),
	}
	for i, row := range rows {
		resp.ByStatus[i] = StatusSummaryDTO{Status: string(row.Status), Count: row.Count, Total: row.Total}
		resp.Count += row.Count
		resp.Total = resp.Total.Add(row.Total)
	}
	return resp, nil
}

func (s *DocumentService) publishEvents(ctx context.Context, doc *document.Document) {
	events := doc.GetDomainEvents()
	doc.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish document events",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err))
	}
}
