package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/money"
)

// Gateway abstracts the external payment provider. All methods are
// optional at wiring time; without a gateway payments are recorded
// locally only.
type Gateway interface {
	Authorize(ctx context.Context, amount decimal.Decimal, currency, paymentMethod string, metadata map[string]interface{}) (string, error)
	Capture(ctx context.Context, providerReference string) error
	Refund(ctx context.Context, providerReference string, amount *decimal.Decimal) error
}

type Service interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentView, error)
	GetPayment(ctx context.Context, paymentID uint) (*PaymentView, error)
	ListPayments(ctx context.Context, filter ListPaymentsFilter) ([]PaymentView, int64, error)
	UpdateStatus(ctx context.Context, paymentID uint, status string) (*PaymentView, error)
	Capture(ctx context.Context, paymentID uint) (*PaymentView, error)
	Refund(ctx context.Context, paymentID uint, amount *decimal.Decimal) (*PaymentView, error)
	UpdateProviderReference(ctx context.Context, paymentID uint, reference *string) (*PaymentView, error)
	GetEvents(ctx context.Context, paymentID uint) ([]PaymentEventView, error)
	DeletePayment(ctx context.Context, paymentID uint) error
}

type service struct {
	db      *gorm.DB
	log     *logger.Logger
	repo    PaymentRepo
	metrics *observability.Metrics
	gateway Gateway
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo PaymentRepo, metrics *observability.Metrics, gateway Gateway) Service {
	return &service{
		db:      db,
		log:     baseLog.With("service", "PaymentService"),
		repo:    repo,
		metrics: metrics,
		gateway: gateway,
	}
}

func (s *service) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentView, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	method := strings.TrimSpace(req.PaymentMethod)
	if req.CustomerID < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("customerId must be positive"))
	}
	if req.OrderID != nil && *req.OrderID < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("orderId must be positive"))
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.BadRequest("validation_error", errors.New("amount must be positive"))
	}
	if len(currency) != 3 {
		return nil, apierr.BadRequest("validation_error", errors.New("currency must be a 3-letter code"))
	}
	if method == "" || len(method) > 64 {
		return nil, apierr.BadRequest("validation_error", errors.New("payment method must be non-empty"))
	}

	providerReference := req.ProviderReference
	if s.gateway != nil && providerReference == nil {
		reference, err := s.gateway.Authorize(ctx, req.Amount, currency, method, req.Metadata)
		if err != nil {
			return nil, apierr.Conflict("gateway_error", err)
		}
		providerReference = &reference
	}

	payment := &Payment{
		OrderID:           req.OrderID,
		CustomerID:        req.CustomerID,
		AmountCents:       money.DecimalToCents(req.Amount),
		Currency:          currency,
		Status:            "pending",
		PaymentMethod:     method,
		ProviderReference: providerReference,
		Metadata:          req.Metadata,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Create(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.repo.AddEvent(ctx, tx, payment.ID, "created", payment.Status); err != nil {
			return err
		}
		if providerReference != nil && *providerReference != "" {
			return s.repo.AddEvent(ctx, tx, payment.ID, "provider_linked", *providerReference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentEvent("created")
	s.log.Info("payment created",
		"payment_id", payment.ID,
		"customer_id", payment.CustomerID,
		"amount_cents", payment.AmountCents)

	view := NewPaymentView(payment)
	return &view, nil
}

func (s *service) GetPayment(ctx context.Context, paymentID uint) (*PaymentView, error) {
	payment, err := s.requirePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	view := NewPaymentView(payment)
	return &view, nil
}

func (s *service) ListPayments(ctx context.Context, filter ListPaymentsFilter) ([]PaymentView, int64, error) {
	filter.Status = strings.TrimSpace(filter.Status)
	payments, total, err := s.repo.List(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, NewPaymentView(p))
	}
	return views, total, nil
}

func (s *service) UpdateStatus(ctx context.Context, paymentID uint, status string) (*PaymentView, error) {
	status = strings.TrimSpace(status)
	if status == "" || len(status) > 32 {
		return nil, apierr.BadRequest("validation_error", errors.New("status must be non-empty"))
	}
	payment, err := s.requirePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, payment, status, "status_changed", status); err != nil {
		return nil, err
	}
	view := NewPaymentView(payment)
	return &view, nil
}

func (s *service) Capture(ctx context.Context, paymentID uint) (*PaymentView, error) {
	payment, err := s.requirePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if s.gateway != nil && payment.ProviderReference != nil {
		if err := s.gateway.Capture(ctx, *payment.ProviderReference); err != nil {
			return nil, apierr.Conflict("gateway_error", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, payment.ID, "payment_captured", "captured"); err != nil {
			return err
		}
		if err := s.repo.AddEvent(ctx, tx, payment.ID, "status_changed", "captured"); err != nil {
			return err
		}
		payment.Status = "captured"
		_, err := s.repo.Save(ctx, tx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentEvent("payment_captured")
	s.log.Info("payment captured", "payment_id", payment.ID)
	view := NewPaymentView(payment)
	return &view, nil
}

func (s *service) Refund(ctx context.Context, paymentID uint, amount *decimal.Decimal) (*PaymentView, error) {
	if amount != nil && amount.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.BadRequest("validation_error", errors.New("refund amount must be positive"))
	}
	payment, err := s.requirePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if s.gateway != nil && payment.ProviderReference != nil {
		if err := s.gateway.Refund(ctx, *payment.ProviderReference, amount); err != nil {
			return nil, apierr.Conflict("gateway_error", err)
		}
	}

	payload := "full"
	if amount != nil {
		payload = amount.StringFixed(2)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, payment.ID, "payment_refunded", payload); err != nil {
			return err
		}
		if err := s.repo.AddEvent(ctx, tx, payment.ID, "status_changed", "refunded"); err != nil {
			return err
		}
		payment.Status = "refunded"
		_, err := s.repo.Save(ctx, tx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncPaymentEvent("payment_refunded")
	s.log.Info("payment refunded", "payment_id", payment.ID, "amount", payload)
	view := NewPaymentView(payment)
	return &view, nil
}

func (s *service) UpdateProviderReference(ctx context.Context, paymentID uint, reference *string) (*PaymentView, error) {
	payment, err := s.requirePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	payload := ""
	if reference != nil {
		payload = *reference
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, payment.ID, "provider_reference_updated", payload); err != nil {
			return err
		}
		payment.ProviderReference = reference
		_, err := s.repo.Save(ctx, tx, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := NewPaymentView(payment)
	return &view, nil
}

func (s *service) GetEvents(ctx context.Context, paymentID uint) ([]PaymentEventView, error) {
	payment, err := s.requirePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return NewPaymentEventViews(payment.Events), nil
}

func (s *service) DeletePayment(ctx context.Context, paymentID uint) error {
	payment, err := s.repo.GetByID(ctx, nil, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.Delete(ctx, nil, payment); err != nil {
		return err
	}
	s.log.Info("payment deleted", "payment_id", paymentID)
	return nil
}

func (s *service) transition(ctx context.Context, payment *Payment, status, eventType, payload string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, payment.ID, eventType, payload); err != nil {
			return err
		}
		payment.Status = status
		_, err := s.repo.Save(ctx, tx, payment)
		return err
	})
	if err != nil {
		return err
	}
	s.metrics.IncPaymentEvent(eventType)
	return nil
}

func (s *service) requirePayment(ctx context.Context, paymentID uint) (*Payment, error) {
	payment, err := s.repo.GetByID(ctx, nil, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("payment_not_found", errors.New("Payment not found"))
		}
		return nil, err
	}
	return payment, nil
}
