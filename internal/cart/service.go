package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/money"
)

const defaultCurrency = "USD"

type Service interface {
	GetCart(ctx context.Context, customerID int64) (*CartView, error)
	AddItem(ctx context.Context, customerID int64, req AddItemRequest) (*CartView, error)
	UpdateItem(ctx context.Context, customerID int64, sku string, req UpdateItemRequest) (*CartView, error)
	RemoveItem(ctx context.Context, customerID int64, sku string) (*CartView, error)
	ClearCart(ctx context.Context, customerID int64) error
	GetTotals(ctx context.Context, customerID int64) (*TotalsView, error)
	MergeCarts(ctx context.Context, req MergeRequest) (*CartView, error)
}

type service struct {
	db   *gorm.DB
	log  *logger.Logger
	repo CartRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo CartRepo) Service {
	return &service{
		db:   db,
		log:  baseLog.With("service", "CartService"),
		repo: repo,
	}
}

func (s *service) GetCart(ctx context.Context, customerID int64) (*CartView, error) {
	cart, err := s.repo.GetOrCreate(ctx, nil, customerID, defaultCurrency)
	if err != nil {
		return nil, err
	}
	view := NewCartView(cart)
	return &view, nil
}

func (s *service) AddItem(ctx context.Context, customerID int64, req AddItemRequest) (*CartView, error) {
	sku := strings.TrimSpace(req.SKU)
	name := strings.TrimSpace(req.Name)
	if sku == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("sku must be non-empty"))
	}
	if name == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("name must be non-empty"))
	}
	if req.Quantity < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantity must be at least 1"))
	}
	if req.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.BadRequest("validation_error", errors.New("unitPrice must be positive"))
	}

	var cartID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := s.repo.GetOrCreate(ctx, tx, customerID, defaultCurrency)
		if err != nil {
			return err
		}
		cartID = cart.ID
		return s.upsertItem(ctx, tx, cart.ID, sku, name, money.DecimalToCents(req.UnitPrice), req.Quantity)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("cart item added", "cart_id", cartID, "sku", sku)
	return s.viewByCustomer(ctx, customerID)
}

func (s *service) upsertItem(ctx context.Context, tx *gorm.DB, cartID uint, sku, name string, unitPriceCents int64, quantity int) error {
	existing, err := s.repo.GetItem(ctx, tx, cartID, sku)
	if err == nil {
		existing.Quantity += quantity
		existing.UnitPriceCents = unitPriceCents
		if err := s.repo.SaveItem(ctx, tx, existing); err != nil {
			return err
		}
		return s.repo.Touch(ctx, tx, cartID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	item := &CartItem{
		CartID:         cartID,
		SKU:            sku,
		Name:           name,
		UnitPriceCents: unitPriceCents,
		Quantity:       quantity,
	}
	if err := s.repo.SaveItem(ctx, tx, item); err != nil {
		return err
	}
	return s.repo.Touch(ctx, tx, cartID)
}

func (s *service) UpdateItem(ctx context.Context, customerID int64, sku string, req UpdateItemRequest) (*CartView, error) {
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantity must be at least 1"))
	}
	if req.UnitPrice != nil && req.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.BadRequest("validation_error", errors.New("unitPrice must be positive"))
	}

	cart, err := s.repo.GetByCustomer(ctx, nil, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("cart_not_found", errors.New("Cart not found"))
		}
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, nil, cart.ID, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("item_not_found", errors.New("Item not found"))
		}
		return nil, err
	}

	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.UnitPrice != nil {
		item.UnitPriceCents = money.DecimalToCents(*req.UnitPrice)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.SaveItem(ctx, tx, item); err != nil {
			return err
		}
		return s.repo.Touch(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.viewByCustomer(ctx, customerID)
}

func (s *service) RemoveItem(ctx context.Context, customerID int64, sku string) (*CartView, error) {
	cart, err := s.repo.GetByCustomer(ctx, nil, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("cart_not_found", errors.New("Cart not found"))
		}
		return nil, err
	}

	item, err := s.repo.GetItem(ctx, nil, cart.ID, sku)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("item_not_found", errors.New("Item not found"))
		}
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteItem(ctx, tx, item); err != nil {
			return err
		}
		return s.repo.Touch(ctx, tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.viewByCustomer(ctx, customerID)
}

func (s *service) ClearCart(ctx context.Context, customerID int64) error {
	cart, err := s.repo.GetByCustomer(ctx, nil, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ClearItems(ctx, tx, cart.ID); err != nil {
			return err
		}
		return s.repo.Touch(ctx, tx, cart.ID)
	})
}

func (s *service) GetTotals(ctx context.Context, customerID int64) (*TotalsView, error) {
	cart, err := s.repo.GetByCustomer(ctx, nil, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			view := NewTotalsView(nil)
			return &view, nil
		}
		return nil, err
	}
	view := NewTotalsView(cart)
	return &view, nil
}

func (s *service) MergeCarts(ctx context.Context, req MergeRequest) (*CartView, error) {
	if req.FromCustomerID < 1 || req.ToCustomerID < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("customer ids must be positive"))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.repo.GetOrCreate(ctx, tx, req.ToCustomerID, defaultCurrency)
		if err != nil {
			return err
		}
		source, err := s.repo.GetByCustomer(ctx, tx, req.FromCustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		for _, item := range source.Items {
			if err := s.upsertItem(ctx, tx, target.ID, item.SKU, item.Name, item.UnitPriceCents, item.Quantity); err != nil {
				return err
			}
		}
		if err := s.repo.ClearItems(ctx, tx, source.ID); err != nil {
			return err
		}
		return s.repo.Touch(ctx, tx, source.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("carts merged", "from_customer_id", req.FromCustomerID, "to_customer_id", req.ToCustomerID)
	return s.viewByCustomer(ctx, req.ToCustomerID)
}

func (s *service) viewByCustomer(ctx context.Context, customerID int64) (*CartView, error) {
	cart, err := s.repo.GetByCustomer(ctx, nil, customerID)
	if err != nil {
		return nil, err
	}
	view := NewCartView(cart)
	return &view, nil
}
