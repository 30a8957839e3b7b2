package billing

import (
	"context"
	"sync"
	"time"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/document"
	"github.com/billforge/backend/internal/domain/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) FindByID(ctx context.Context, id string) (*billing.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Plan), args.Error(1)
}

func (m *mockPlanRepository) FindAll(ctx context.Context) ([]*billing.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Plan), args.Error(1)
}

func (m *mockPlanRepository) Create(ctx context.Context, plan *billing.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *mockPlanRepository) Update(ctx context.Context, plan *billing.Plan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *mockPlanRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockDocumentCounter struct {
	mock.Mock
}

func (m *mockDocumentCounter) CountCreated(ctx context.Context, ownerID string, docType document.Type, from, to time.Time) (int64, error) {
	args := m.Called(ctx, ownerID, docType, from, to)
	return args.Get(0).(int64), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *billing.PaymentOrder) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, orderID string) (*billing.PaymentOrder, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentOrder), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, req billing.GatewayOrderRequest) (*billing.GatewayOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GatewayOrder), args.Error(1)
}

type mockIdentityProvider struct {
	mock.Mock
}

func (m *mockIdentityProvider) GetUser(ctx context.Context, userID string) (*identity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *mockIdentityProvider) UpdateMetadata(ctx context.Context, userID string, patch identity.MetadataPatch) error {
	return m.Called(ctx, userID, patch).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return m.Called(ctx, events).Error(0)
}

// fakeSubscriptionStore mimics the ledger semantics of the SQL repository:
// a unique payment id and a unique order id.
type fakeSubscriptionStore struct {
	mu        sync.Mutex
	subs      map[string]*billing.Subscription
	ledger    map[string]*billing.LedgerEntry // by payment id
	orders    map[string]string               // order id -> payment id
	commitErr error
	commits   int
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{
		subs:   make(map[string]*billing.Subscription),
		ledger: make(map[string]*billing.LedgerEntry),
		orders: make(map[string]string),
	}
}

func (f *fakeSubscriptionStore) FindByUserID(_ context.Context, userID string) (*billing.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubscriptionStore) ApplyFree(_ context.Context, userID, planID string) (*billing.TransitionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	previous := ""
	if cur, ok := f.subs[userID]; ok {
		previous = cur.PlanID
	}
	sub := billing.NewSubscription(userID, planID, nil)
	f.subs[userID] = sub
	return &billing.TransitionOutcome{Applied: previous != planID, Subscription: sub, PreviousPlan: previous}, nil
}

func (f *fakeSubscriptionStore) CommitPaid(_ context.Context, entry *billing.LedgerEntry) (*billing.TransitionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	if existing, ok := f.ledger[entry.PaymentID]; ok {
		return &billing.TransitionOutcome{Applied: false, Subscription: f.subs[existing.UserID]}, nil
	}
	if other, ok := f.orders[entry.OrderID]; ok && other != entry.PaymentID {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Payment order already consumed")
	}
	previous := ""
	if cur, ok := f.subs[entry.UserID]; ok {
		previous = cur.PlanID
	}
	paymentID := entry.PaymentID
	sub := billing.NewSubscription(entry.UserID, entry.PlanID, &paymentID)
	f.subs[entry.UserID] = sub
	f.ledger[entry.PaymentID] = entry
	f.orders[entry.OrderID] = entry.PaymentID
	f.commits++
	return &billing.TransitionOutcome{Applied: true, Subscription: sub, PreviousPlan: previous}, nil
}

func (f *fakeSubscriptionStore) FindLedgerEntry(_ context.Context, paymentID string) (*billing.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.ledger[paymentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return entry, nil
}

type recordingMetrics struct {
	noopMetrics
	mu                 sync.Mutex
	verifications      []string
	commitFailures     int
	transitionsApplied int
	duplicates         int
}

func (r *recordingMetrics) RecordVerification(_ context.Context, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications = append(r.verifications, outcome)
}

func (r *recordingMetrics) RecordTransition(_ context.Context, _ string, applied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if applied {
		r.transitionsApplied++
	} else {
		r.duplicates++
	}
}

func (r *recordingMetrics) RecordEntitlementCommitFailure(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitFailures++
}

func freePlan() *billing.Plan {
	p, _ := billing.NewPlan("free_tier", billing.PlanAttributes{
		Name:            "Free",
		InvoiceLimit:    billing.IntPtr(3),
		TeamMemberLimit: billing.IntPtr(1),
		SortOrder:       0,
	})
	return p
}

func proPlan() *billing.Plan {
	p, _ := billing.NewPlan("pro", billing.PlanAttributes{
		Name:       "Pro",
		PriceMinor: 49900,
		Currency:   "INR",
		Features:   billing.NewFeatureSet(billing.FeatureAdvancedReports, billing.FeatureBranding),
		SortOrder:  1,
	})
	return p
}
