package billing

import (
	"context"
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/document"
	"go.uber.org/zap"
)

// DocumentCounter is the slice of the document store the meter reads.
// document.Repository satisfies it.
type DocumentCounter interface {
	CountCreated(ctx context.Context, ownerID string, docType document.Type, from, to time.Time) (int64, error)
}

// UsageMeterService counts metered documents for the current month
type UsageMeterService struct {
	docs   DocumentCounter
	now    func() time.Time
	logger *zap.Logger
}

// NewUsageMeterService creates a UsageMeterService
func NewUsageMeterService(docs DocumentCounter, logger *zap.Logger) *UsageMeterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageMeterService{docs: docs, now: time.Now, logger: logger}
}

// CountThisMonth counts documents of docType the user created in the current
// UTC month. A store failure is logged and reported as unknown usage so that
// callers never block on it.
func (s *UsageMeterService) CountThisMonth(ctx context.Context, userID string, docType document.Type) billing.UsageCount {
	window := billing.MonthWindow(s.now())
	count, err := s.docs.CountCreated(ctx, userID, docType, window.Start, window.End)
	if err != nil {
		s.logger.Warn("Usage count unavailable, treating usage as unknown",
			zap.String("user_id", userID),
			zap.String("document_type", string(docType)),
			zap.Error(err))
		return billing.UnknownUsage(window)
	}
	return billing.KnownUsage(count, window)
}
