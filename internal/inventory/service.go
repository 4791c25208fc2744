package inventory

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type Service interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (*ItemView, error)
	GetItem(ctx context.Context, itemID uint) (*ItemView, error)
	ListItems(ctx context.Context, filter ListItemsFilter) ([]ItemView, int64, error)
	AdjustStock(ctx context.Context, itemID uint, req AdjustRequest) (*ItemView, error)
	Restock(ctx context.Context, itemID uint, quantity int) (*ItemView, error)
	Reserve(ctx context.Context, itemID uint, quantity int) (*ItemView, error)
	Release(ctx context.Context, itemID uint, quantity int) (*ItemView, error)
	Commit(ctx context.Context, itemID uint, quantity int) (*ItemView, error)
	GetEvents(ctx context.Context, itemID uint) ([]ItemEventView, error)
	DeleteItem(ctx context.Context, itemID uint) error
}

type service struct {
	db      *gorm.DB
	log     *logger.Logger
	repo    InventoryRepo
	metrics *observability.Metrics
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo InventoryRepo, metrics *observability.Metrics) Service {
	return &service{
		db:      db,
		log:     baseLog.With("service", "InventoryService"),
		repo:    repo,
		metrics: metrics,
	}
}

func (s *service) CreateItem(ctx context.Context, req CreateItemRequest) (*ItemView, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" || len(sku) > 64 {
		return nil, apierr.BadRequest("validation_error", errors.New("sku must be non-empty"))
	}
	if req.QuantityOnHand < 0 || req.SafetyStock < 0 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantities must be non-negative"))
	}
	location := normalizeLocation(req.Location)

	if _, err := s.repo.FindBySKU(ctx, nil, sku, location); err == nil {
		return nil, apierr.Conflict("item_exists", errors.New("Inventory item already exists"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	item := &InventoryItem{
		SKU:            sku,
		Location:       location,
		QuantityOnHand: req.QuantityOnHand,
		SafetyStock:    req.SafetyStock,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Create(ctx, tx, item); err != nil {
			return err
		}
		return s.repo.AddEvent(ctx, tx, item.ID, "created", strconv.Itoa(req.QuantityOnHand))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncInventoryEvent("created")
	s.log.Info("inventory item created", "item_id", item.ID, "sku", item.SKU)
	view := NewItemView(item)
	return &view, nil
}

func (s *service) GetItem(ctx context.Context, itemID uint) (*ItemView, error) {
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	view := NewItemView(item)
	return &view, nil
}

func (s *service) ListItems(ctx context.Context, filter ListItemsFilter) ([]ItemView, int64, error) {
	filter.SKU = strings.TrimSpace(filter.SKU)
	filter.Location = strings.TrimSpace(filter.Location)
	items, total, err := s.repo.List(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, NewItemView(item))
	}
	return views, total, nil
}

func (s *service) AdjustStock(ctx context.Context, itemID uint, req AdjustRequest) (*ItemView, error) {
	if req.QuantityOnHand < 0 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantityOnHand must be non-negative"))
	}
	if req.SafetyStock != nil && *req.SafetyStock < 0 {
		return nil, apierr.BadRequest("validation_error", errors.New("safetyStock must be non-negative"))
	}
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if req.QuantityOnHand < item.QuantityReserved {
		return nil, apierr.BadRequest("invalid_adjustment", errors.New("quantity on hand cannot be less than reserved"))
	}

	previousSafety := item.SafetyStock
	item.QuantityOnHand = req.QuantityOnHand
	if req.SafetyStock != nil {
		item.SafetyStock = *req.SafetyStock
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Save(ctx, tx, item); err != nil {
			return err
		}
		if err := s.repo.AddEvent(ctx, tx, item.ID, "adjusted", strconv.Itoa(req.QuantityOnHand)); err != nil {
			return err
		}
		if req.SafetyStock != nil && item.SafetyStock != previousSafety {
			return s.repo.AddEvent(ctx, tx, item.ID, "safety_stock_updated", strconv.Itoa(item.SafetyStock))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncInventoryEvent("adjusted")
	view := NewItemView(item)
	return &view, nil
}

func (s *service) Restock(ctx context.Context, itemID uint, quantity int) (*ItemView, error) {
	if quantity < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantity must be positive"))
	}
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.QuantityOnHand += quantity
	if err := s.applyChange(ctx, item, "stock_received", quantity); err != nil {
		return nil, err
	}
	view := NewItemView(item)
	return &view, nil
}

func (s *service) Reserve(ctx context.Context, itemID uint, quantity int) (*ItemView, error) {
	if quantity < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantity must be positive"))
	}
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	available := item.QuantityOnHand - item.QuantityReserved
	if quantity > available {
		s.metrics.IncStockConflict("reserve")
		return nil, apierr.Conflict("insufficient_stock", errors.New("insufficient available quantity"))
	}
	item.QuantityReserved += quantity
	if err := s.applyChange(ctx, item, "reserved", quantity); err != nil {
		return nil, err
	}
	view := NewItemView(item)
	return &view, nil
}

func (s *service) Release(ctx context.Context, itemID uint, quantity int) (*ItemView, error) {
	if quantity < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantity must be positive"))
	}
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if quantity > item.QuantityReserved {
		s.metrics.IncStockConflict("release")
		return nil, apierr.Conflict("insufficient_reservation", errors.New("cannot release more than reserved"))
	}
	item.QuantityReserved -= quantity
	if err := s.applyChange(ctx, item, "released", quantity); err != nil {
		return nil, err
	}
	view := NewItemView(item)
	return &view, nil
}

func (s *service) Commit(ctx context.Context, itemID uint, quantity int) (*ItemView, error) {
	if quantity < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("quantity must be positive"))
	}
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if quantity > item.QuantityReserved {
		s.metrics.IncStockConflict("commit")
		return nil, apierr.Conflict("insufficient_reservation", errors.New("cannot commit more than reserved"))
	}
	if quantity > item.QuantityOnHand {
		s.metrics.IncStockConflict("commit")
		return nil, apierr.Conflict("insufficient_stock", errors.New("cannot commit more than on-hand"))
	}
	item.QuantityOnHand -= quantity
	item.QuantityReserved -= quantity
	if err := s.applyChange(ctx, item, "committed", quantity); err != nil {
		return nil, err
	}
	view := NewItemView(item)
	return &view, nil
}

func (s *service) GetEvents(ctx context.Context, itemID uint) ([]ItemEventView, error) {
	item, err := s.requireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return NewItemEventViews(item.Events), nil
}

func (s *service) DeleteItem(ctx context.Context, itemID uint) error {
	item, err := s.repo.GetByID(ctx, nil, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.Delete(ctx, nil, item); err != nil {
		return err
	}
	s.log.Info("inventory item deleted", "item_id", itemID, "sku", item.SKU)
	return nil
}

func (s *service) applyChange(ctx context.Context, item *InventoryItem, eventType string, quantity int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Save(ctx, tx, item); err != nil {
			return err
		}
		return s.repo.AddEvent(ctx, tx, item.ID, eventType, strconv.Itoa(quantity))
	})
	if err != nil {
		return err
	}
	s.metrics.IncInventoryEvent(eventType)
	return nil
}

func (s *service) requireItem(ctx context.Context, itemID uint) (*InventoryItem, error) {
	item, err := s.repo.GetByID(ctx, nil, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("item_not_found", errors.New("Inventory item not found"))
		}
		return nil, err
	}
	return item, nil
}

func normalizeLocation(location *string) *string {
	if location == nil {
		return nil
	}
	cleaned := strings.TrimSpace(*location)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
