package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/billforge/backend/internal/domain/document"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument(t *testing.T, owner string, docType document.Type, unitPrice int64) *document.Document {
	t.Helper()
	content := document.Content{
		Items: []document.LineItem{{
			Description: "Design",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(unitPrice),
		}},
		From:     document.Party{Name: "Studio"},
		To:       document.Party{Name: "Client"},
		Currency: "INR",
	}
	var recurring *document.RecurringSchedule
	if docType == document.TypeRecurringTemplate {
		recurring = &document.RecurringSchedule{Frequency: document.FrequencyMonthly}
	}
	doc, err := document.NewDocument(owner, docType, content, recurring)
	require.NoError(t, err)
	return doc
}

func TestGormDocumentRepository_CreateNumbersPerOwnerTypeAndMonth(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDocumentRepository(setupTestDB(t))
	period := time.Now().UTC().Format("200601")

	inv1 := newTestDocument(t, "user-1", document.TypeInvoice, 50)
	inv2 := newTestDocument(t, "user-1", document.TypeInvoice, 50)
	quote := newTestDocument(t, "user-1", document.TypeQuote, 50)
	other := newTestDocument(t, "user-2", document.TypeInvoice, 50)
	for _, d := range []*document.Document{inv1, inv2, quote, other} {
		require.NoError(t, repo.Create(ctx, d))
	}

	assert.Equal(t, fmt.Sprintf("INV-%s-0001", period), inv1.Number)
	assert.Equal(t, fmt.Sprintf("INV-%s-0002", period), inv2.Number)
	assert.Equal(t, fmt.Sprintf("QUO-%s-0001", period), quote.Number)
	assert.Equal(t, fmt.Sprintf("INV-%s-0001", period), other.Number)
}

func TestGormDocumentRepository_FindIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDocumentRepository(setupTestDB(t))
	doc := newTestDocument(t, "user-1", document.TypeRecurringTemplate, 50)
	require.NoError(t, repo.Create(ctx, doc))

	got, err := repo.FindByIDForOwner(ctx, "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Number, got.Number)
	assert.Equal(t, document.StatusActive, got.Status)
	require.NotNil(t, got.Recurring)
	assert.Equal(t, document.FrequencyMonthly, got.Recurring.Frequency)
	assert.True(t, got.Totals().Total.Equal(decimal.NewFromInt(100)))

	_, err = repo.FindByIDForOwner(ctx, "user-2", doc.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormDocumentRepository_CountCreated(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDocumentRepository(setupTestDB(t))
	from, to := monthWindowForTest()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newTestDocument(t, "user-1", document.TypeInvoice, 10)))
	}
	require.NoError(t, repo.Create(ctx, newTestDocument(t, "user-1", document.TypeQuote, 10)))

	old := newTestDocument(t, "user-1", document.TypeInvoice, 10)
	old.CreatedAt = from.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, old))

	n, err := repo.CountCreated(ctx, "user-1", document.TypeInvoice, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.CountCreated(ctx, "user-2", document.TypeInvoice, from, to)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGormDocumentRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDocumentRepository(setupTestDB(t))

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newTestDocument(t, "user-1", document.TypeInvoice, int64(10+i))))
	}
	require.NoError(t, repo.Create(ctx, newTestDocument(t, "user-1", document.TypeQuote, 10)))

	docs, total, err := repo.List(ctx, "user-1", document.ListFilter{
		Filter: shared.Filter{Page: 1, PageSize: 2, OrderBy: "total", OrderDir: "asc"},
		Type:   document.TypeInvoice,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, docs, 2)
	assert.True(t, docs[0].Totals().Total.Equal(decimal.NewFromInt(20)))
	assert.True(t, docs[1].Totals().Total.Equal(decimal.NewFromInt(22)))

	_, total, err = repo.List(ctx, "user-1", document.ListFilter{Status: document.StatusSent})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGormDocumentRepository_UpdateOptimisticLocking(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDocumentRepository(setupTestDB(t))
	doc := newTestDocument(t, "user-1", document.TypeInvoice, 50)
	require.NoError(t, repo.Create(ctx, doc))

	stale, err := repo.FindByIDForOwner(ctx, "user-1", doc.ID)
	require.NoError(t, err)

	require.NoError(t, doc.UpdateStatus(document.StatusSent, time.Now()))
	require.NoError(t, repo.Update(ctx, doc))

	require.NoError(t, stale.UpdateStatus(document.StatusPartiallyPaid, time.Now()))
	assert.ErrorIs(t, repo.Update(ctx, stale), shared.ErrConcurrencyConflict)

	got, err := repo.FindByIDForOwner(ctx, "user-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusSent, got.Status)
	assert.Equal(t, 2, got.Version)

	ghost := newTestDocument(t, "user-1", document.TypeInvoice, 50)
	ghost.IncrementVersion()
	assert.ErrorIs(t, repo.Update(ctx, ghost), shared.ErrNotFound)
}

func TestGormDocumentRepository_ConvertQuote(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDocumentRepository(setupTestDB(t))

	quote := newTestDocument(t, "user-1", document.TypeQuote, 50)
	require.NoError(t, repo.Create(ctx, quote))
	require.NoError(t, quote.UpdateStatus(document.StatusSent, time.Now()))
	require.NoError(t, repo.Update(ctx, quote))
	require.NoError(t, quote.UpdateStatus(document.StatusAccepted, time.Now()))
	require.NoError(t, repo.Update(ctx, quote))

	stale, err := repo.FindByIDForOwner(ctx, "user-1", quote.ID)
	require.NoError(t, err)

	invoice, err := quote.ConvertToInvoice()
	require.NoError(t, err)
	require.NoError(t, repo.ConvertQuote(ctx, quote, invoice))
	assert.Contains(t, invoice.Number, "INV-")

	storedQuote, err := repo.FindByIDForOwner(ctx, "user-1", quote.ID)
	require.NoError(t, err)
	assert.Equal(t, document.TypeQuote, storedQuote.Type)
	require.NotNil(t, storedQuote.ConvertedInvoiceID)
	assert.Equal(t, invoice.ID, *storedQuote.ConvertedInvoiceID)

	storedInvoice, err := repo.FindByIDForOwner(ctx, "user-1", invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusDraft, storedInvoice.Status)
	require.NotNil(t, storedInvoice.SourceQuoteID)
	assert.Equal(t, quote.ID, *storedInvoice.SourceQuoteID)

	// A concurrent request that loaded the quote before conversion loses.
	second, err := stale.ConvertToInvoice()
	require.NoError(t, err)
	assert.ErrorIs(t, repo.ConvertQuote(ctx, stale, second), shared.ErrInvalidState)
	_, err = repo.FindByIDForOwner(ctx, "user-1", second.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormDocumentRepository_SummarizeAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDocumentRepository(setupTestDB(t))
	from, to := monthWindowForTest()

	paid := newTestDocument(t, "user-1", document.TypeInvoice, 50)
	draft := newTestDocument(t, "user-1", document.TypeInvoice, 25)
	require.NoError(t, repo.Create(ctx, paid))
	require.NoError(t, repo.Create(ctx, draft))
	require.NoError(t, paid.UpdateStatus(document.StatusPartiallyPaid, time.Now()))
	require.NoError(t, repo.Update(ctx, paid))

	summary, err := repo.SummarizeByStatus(ctx, "user-1", document.TypeInvoice, from, to)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, document.StatusDraft, summary[0].Status)
	assert.True(t, summary[0].Total.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, document.StatusPartiallyPaid, summary[1].Status)
	assert.Equal(t, int64(1), summary[1].Count)

	assert.ErrorIs(t, repo.Delete(ctx, "user-2", draft.ID), shared.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, "user-1", draft.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "user-1", uuid.New()), shared.ErrNotFound)
}
