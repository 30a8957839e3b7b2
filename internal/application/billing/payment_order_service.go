package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/billforge/backend/internal/domain/billing"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/domain/shared/valueobject"
	"github.com/billforge/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Verification outcomes for metrics
const (
	VerificationOutcomeVerified         = "verified"
	VerificationOutcomeInvalidSignature = "invalid_signature"
	VerificationOutcomeRejected         = "rejected"
)

// PaymentOrderService creates gateway orders and verifies signed receipts.
// The key secret stays inside this service; only the public key id is
// ever returned to callers.
type PaymentOrderService struct {
	plans   billing.PlanRepository
	orders  billing.PaymentOrderRepository
	gateway billing.OrderGateway
	secret  []byte
	metrics MetricsRecorder
	logger  *zap.Logger
}

// PaymentOrderServiceConfig holds the collaborators of PaymentOrderService
type PaymentOrderServiceConfig struct {
	Plans     billing.PlanRepository
	Orders    billing.PaymentOrderRepository
	Gateway   billing.OrderGateway
	KeySecret string
	Metrics   MetricsRecorder
	Logger    *zap.Logger
}

// NewPaymentOrderService creates a PaymentOrderService
func NewPaymentOrderService(cfg PaymentOrderServiceConfig) *PaymentOrderService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentOrderService{
		plans:   cfg.Plans,
		orders:  cfg.Orders,
		gateway: cfg.Gateway,
		secret:  []byte(cfg.KeySecret),
		metrics: metricsOrNoop(cfg.Metrics),
		logger:  logger,
	}
}

// CreateOrder validates the request against the catalog and asks the gateway
// for a hosted order. Nothing reaches the network unless the amount, currency
// and plan check out.
func (s *PaymentOrderService) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*billing.PaymentOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_order", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPlanID, in.PlanID,
		telemetry.SpanAttrAmount, in.AmountMinor,
	)

	order, err := s.createOrder(ctx, userID, in)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, order.ID)
	return order, nil
}

func (s *PaymentOrderService) createOrder(ctx context.Context, userID string, in CreateOrderInput) (*billing.PaymentOrder, error) {
	if in.AmountMinor <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Amount must be positive")
	}
	cur := valueobject.DefaultCurrency
	if in.Currency != "" {
		parsed, err := valueobject.ParseCurrency(in.Currency)
		if err != nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
		cur = parsed
	}

	plan, err := s.plans.FindByID(ctx, in.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.IsFree() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Free plans do not require payment")
	}
	if plan.PriceMinor != in.AmountMinor || plan.Currency != cur {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Amount does not match the price of plan %s (%s)", plan.ID, plan.Price()))
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, billing.GatewayOrderRequest{
		AmountMinor: in.AmountMinor,
		Currency:    cur,
		Receipt:     fmt.Sprintf("%s:%s", plan.ID, userID),
		Notes: map[string]string{
			"user_id": userID,
			"plan_id": plan.ID,
		},
	})
	if err != nil {
		s.logger.Warn("Payment gateway order creation failed",
			zap.String("user_id", userID),
			zap.String("plan_id", plan.ID),
			zap.Bool("retryable", shared.IsRetryable(err)),
			zap.Error(err))
		return nil, err
	}

	order, err := billing.NewPaymentOrder(gwOrder.OrderID, userID, plan.ID, in.AmountMinor, cur, gwOrder.PublicKeyID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("save payment order: %w", err)
	}

	s.metrics.RecordOrderCreated(ctx, plan.ID)
	s.logger.Info("Payment order created",
		zap.String("user_id", userID),
		zap.String("plan_id", plan.ID),
		zap.String("order_id", order.ID),
		zap.Int64("amount_minor", order.AmountMinor),
		zap.String("currency", order.Currency.String()))
	return order, nil
}

// Verify checks the receipt signature and that the order belongs to the
// caller and targets planID. A bad signature is terminal for that receipt.
func (s *PaymentOrderService) Verify(ctx context.Context, userID string, receipt billing.Receipt, planID string) (*billing.VerificationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_order", "verify")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, receipt.OrderID,
		telemetry.SpanAttrPaymentID, receipt.PaymentID,
		telemetry.SpanAttrPlanID, planID,
	)

	result, err := s.verify(ctx, userID, receipt, planID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (s *PaymentOrderService) verify(ctx context.Context, userID string, receipt billing.Receipt, planID string) (*billing.VerificationResult, error) {
	if err := receipt.Validate(); err != nil {
		return nil, err
	}
	if len(s.secret) == 0 {
		s.logger.Error("Payment key secret is not configured")
		return nil, shared.NewDomainError(shared.CodeConfiguration, "Payment verification is not configured")
	}

	if !billing.VerifyReceiptSignature(s.secret, receipt) {
		s.metrics.RecordVerification(ctx, VerificationOutcomeInvalidSignature)
		s.logger.Warn("Payment signature mismatch",
			zap.String("user_id", userID),
			zap.String("order_id", receipt.OrderID),
			zap.String("payment_id", receipt.PaymentID))
		return nil, shared.ErrInvalidSignature
	}

	order, err := s.orders.FindByID(ctx, receipt.OrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.metrics.RecordVerification(ctx, VerificationOutcomeRejected)
			return nil, shared.NewDomainError(shared.CodeNotFound, "Payment order not found")
		}
		return nil, fmt.Errorf("load payment order: %w", err)
	}
	if !order.Matches(userID, planID) {
		s.metrics.RecordVerification(ctx, VerificationOutcomeRejected)
		s.logger.Warn("Payment order does not match verification request",
			zap.String("user_id", userID),
			zap.String("order_id", order.ID),
			zap.String("order_plan_id", order.PlanID),
			zap.String("plan_id", planID))
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Payment order does not match this plan change")
	}

	s.metrics.RecordVerification(ctx, VerificationOutcomeVerified)
	return &billing.VerificationResult{
		Status:    billing.VerificationVerified,
		OrderID:   order.ID,
		PaymentID: receipt.PaymentID,
		PlanID:    order.PlanID,
		Order:     order,
	}, nil
}
