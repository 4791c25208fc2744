package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/money"
)

// PricingProvider resolves the unit price of a SKU at order time. When
// wired it overrides the price carried on the request.
type PricingProvider interface {
	ResolvePrice(ctx context.Context, sku string, quantity int) (decimal.Decimal, string, error)
}

// InventoryProvider reserves stock for each order line.
type InventoryProvider interface {
	Reserve(ctx context.Context, sku string, quantity int) error
}

// NotificationProvider sends the order confirmation after creation.
type NotificationProvider interface {
	SendOrderConfirmation(ctx context.Context, order *Order) error
}

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderView, error)
	GetOrder(ctx context.Context, orderID uint) (*OrderView, error)
	ListOrders(ctx context.Context, filter ListOrdersFilter) ([]OrderView, int64, error)
	UpdateStatus(ctx context.Context, orderID uint, status string) (*OrderView, error)
	CapturePayment(ctx context.Context, orderID uint) (*OrderView, error)
	GetEvents(ctx context.Context, orderID uint) ([]OrderEventView, error)
	DeleteOrder(ctx context.Context, orderID uint) error
}

type service struct {
	db            *gorm.DB
	log           *logger.Logger
	repo          OrderRepo
	metrics       *observability.Metrics
	producer      broker.Producer
	pricing       PricingProvider
	inventory     InventoryProvider
	notifications NotificationProvider
}

type ServiceOption func(*service)

func WithPricing(p PricingProvider) ServiceOption {
	return func(s *service) { s.pricing = p }
}

func WithInventory(p InventoryProvider) ServiceOption {
	return func(s *service) { s.inventory = p }
}

func WithNotifications(p NotificationProvider) ServiceOption {
	return func(s *service) { s.notifications = p }
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo OrderRepo, metrics *observability.Metrics, producer broker.Producer, opts ...ServiceOption) Service {
	s := &service{
		db:       db,
		log:      baseLog.With("service", "OrderService"),
		repo:     repo,
		metrics:  metrics,
		producer: producer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderView, error) {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.CustomerID < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("customerId must be positive"))
	}
	if len(currency) != 3 {
		return nil, apierr.BadRequest("validation_error", errors.New("currency must be a 3-letter code"))
	}
	if len(req.Items) == 0 {
		return nil, apierr.BadRequest("validation_error", errors.New("order must have at least one item"))
	}

	subtotal := decimal.Zero
	items := make([]OrderItem, 0, len(req.Items))
	for i, input := range req.Items {
		sku := strings.TrimSpace(input.SKU)
		name := strings.TrimSpace(input.Name)
		if sku == "" || len(sku) > 64 {
			return nil, apierr.BadRequest("validation_error", fmt.Errorf("items[%d].sku must be non-empty", i))
		}
		if name == "" {
			return nil, apierr.BadRequest("validation_error", fmt.Errorf("items[%d].name must be non-empty", i))
		}
		if input.Quantity < 1 {
			return nil, apierr.BadRequest("validation_error", fmt.Errorf("items[%d].quantity must be positive", i))
		}
		if input.DiscountAmount.IsNegative() || input.TaxAmount.IsNegative() {
			return nil, apierr.BadRequest("validation_error", fmt.Errorf("items[%d] amounts must be non-negative", i))
		}

		price := input.UnitPrice
		if s.pricing != nil {
			resolved, providerCurrency, err := s.pricing.ResolvePrice(ctx, sku, input.Quantity)
			if err != nil {
				return nil, err
			}
			if providerCurrency != currency {
				return nil, apierr.BadRequest("currency_mismatch", errors.New("currency mismatch between pricing provider and order"))
			}
			price = resolved
		}
		if price.LessThanOrEqual(decimal.Zero) {
			return nil, apierr.BadRequest("validation_error", fmt.Errorf("items[%d].unitPrice must be positive", i))
		}

		subtotal = subtotal.Add(price.Sub(input.DiscountAmount).Mul(decimal.NewFromInt(int64(input.Quantity))))
		items = append(items, OrderItem{
			SKU:                 sku,
			Name:                name,
			Quantity:            input.Quantity,
			UnitPriceCents:      money.DecimalToCents(price),
			DiscountAmountCents: money.DecimalToCents(input.DiscountAmount),
			TaxAmountCents:      money.DecimalToCents(input.TaxAmount),
		})
	}

	grand := subtotal.Sub(req.DiscountTotal).Add(req.ShippingTotal).Add(req.TaxTotal)
	order := &Order{
		CustomerID:         req.CustomerID,
		Status:             "pending",
		Currency:           currency,
		SubtotalCents:      money.DecimalToCents(subtotal),
		DiscountTotalCents: money.DecimalToCents(req.DiscountTotal),
		ShippingTotalCents: money.DecimalToCents(req.ShippingTotal),
		TaxTotalCents:      money.DecimalToCents(req.TaxTotal),
		GrandTotalCents:    money.DecimalToCents(grand),
		Items:              items,
	}

	created, err := s.repo.Create(ctx, nil, order)
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrderCreated()
	s.log.Info("order created",
		"order_id", created.ID,
		"customer_id", created.CustomerID,
		"grand_total_cents", created.GrandTotalCents)

	if s.inventory != nil {
		for _, item := range created.Items {
			if err := s.inventory.Reserve(ctx, item.SKU, item.Quantity); err != nil {
				s.log.Warn("inventory reservation failed", "order_id", created.ID, "sku", item.SKU, "error", err)
			}
		}
	}
	if s.notifications != nil {
		if err := s.notifications.SendOrderConfirmation(ctx, created); err != nil {
			s.log.Warn("order confirmation failed", "order_id", created.ID, "error", err)
		}
	}

	view := NewOrderView(created)
	return &view, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uint) (*OrderView, error) {
	order, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := NewOrderView(order)
	return &view, nil
}

func (s *service) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]OrderView, int64, error) {
	filter.Status = strings.TrimSpace(filter.Status)
	orders, total, err := s.repo.List(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, NewOrderView(o))
	}
	return views, total, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uint, status string) (*OrderView, error) {
	status = strings.TrimSpace(status)
	if status == "" || len(status) > 32 {
		return nil, apierr.BadRequest("validation_error", errors.New("status must be non-empty"))
	}
	order, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, order.ID, "status_changed", status); err != nil {
			return err
		}
		order.Status = status
		_, err := s.repo.Save(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrderStatusChange(status)
	if s.producer != nil {
		s.producer.Publish(ctx, "order.status.changed.v1", map[string]interface{}{
			"order_id":    order.ID,
			"customer_id": order.CustomerID,
			"status":      status,
		})
	}

	updated, err := s.repo.GetByID(ctx, nil, order.ID)
	if err != nil {
		return nil, err
	}
	view := NewOrderView(updated)
	return &view, nil
}

func (s *service) CapturePayment(ctx context.Context, orderID uint) (*OrderView, error) {
	order, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.AddEvent(ctx, tx, order.ID, "payment_captured", "paid"); err != nil {
			return err
		}
		order.IsPaid = true
		_, err := s.repo.Save(ctx, tx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("payment captured", "order_id", order.ID)

	updated, err := s.repo.GetByID(ctx, nil, order.ID)
	if err != nil {
		return nil, err
	}
	view := NewOrderView(updated)
	return &view, nil
}

func (s *service) GetEvents(ctx context.Context, orderID uint) ([]OrderEventView, error) {
	order, err := s.requireOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return NewOrderEventViews(order.Events), nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID uint) error {
	order, err := s.repo.GetByID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.Delete(ctx, nil, order); err != nil {
		return err
	}
	s.log.Info("order deleted", "order_id", orderID)
	return nil
}

func (s *service) requireOrder(ctx context.Context, orderID uint) (*Order, error) {
	order, err := s.repo.GetByID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("order_not_found", errors.New("Order not found"))
		}
		return nil, err
	}
	return order, nil
}
