package order

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type ListOrdersFilter struct {
	CustomerID int64
	Status     string
	Limit      int
	Offset     int
}

type OrderRepo interface {
	Create(ctx context.Context, tx *gorm.DB, order *Order) (*Order, error)
	GetByID(ctx context.Context, tx *gorm.DB, orderID uint) (*Order, error)
	List(ctx context.Context, tx *gorm.DB, filter ListOrdersFilter) ([]*Order, int64, error)
	Save(ctx context.Context, tx *gorm.DB, order *Order) (*Order, error)
	AddEvent(ctx context.Context, tx *gorm.DB, orderID uint, eventType, payload string) error
	Delete(ctx context.Context, tx *gorm.DB, order *Order) error
}

type orderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderRepo(db *gorm.DB, baseLog *logger.Logger) OrderRepo {
	repoLog := baseLog.With("repo", "OrderRepo")
	return &orderRepo{db: db, log: repoLog}
}

func (or *orderRepo) Create(ctx context.Context, tx *gorm.DB, order *Order) (*Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	if err := transaction.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (or *orderRepo) GetByID(ctx context.Context, tx *gorm.DB, orderID uint) (*Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	var result Order
	if err := transaction.WithContext(ctx).
		Preload("Items").
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("order_events.id") }).
		Where("id = ?", orderID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (or *orderRepo) List(ctx context.Context, tx *gorm.DB, filter ListOrdersFilter) ([]*Order, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}

	query := transaction.WithContext(ctx).Model(&Order{})
	if filter.CustomerID > 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*Order
	if err := query.
		Preload("Items").
		Order("orders.id").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (or *orderRepo) Save(ctx context.Context, tx *gorm.DB, order *Order) (*Order, error) {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	if err := transaction.WithContext(ctx).
		Omit("Items", "Events").
		Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (or *orderRepo) AddEvent(ctx context.Context, tx *gorm.DB, orderID uint, eventType, payload string) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	event := OrderEvent{OrderID: orderID, Type: eventType, Payload: payload}
	return transaction.WithContext(ctx).Create(&event).Error
}

func (or *orderRepo) Delete(ctx context.Context, tx *gorm.DB, order *Order) error {
	transaction := tx
	if transaction == nil {
		transaction = or.db
	}
	if err := transaction.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Delete(&OrderItem{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Delete(&OrderEvent{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(order).Error
}
