package inventory

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type ListItemsFilter struct {
	SKU      string
	Location string
	Limit    int
	Offset   int
}

type InventoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, item *InventoryItem) (*InventoryItem, error)
	GetByID(ctx context.Context, tx *gorm.DB, itemID uint) (*InventoryItem, error)
	FindBySKU(ctx context.Context, tx *gorm.DB, sku string, location *string) (*InventoryItem, error)
	List(ctx context.Context, tx *gorm.DB, filter ListItemsFilter) ([]*InventoryItem, int64, error)
	Save(ctx context.Context, tx *gorm.DB, item *InventoryItem) (*InventoryItem, error)
	AddEvent(ctx context.Context, tx *gorm.DB, itemID uint, eventType, payload string) error
	Delete(ctx context.Context, tx *gorm.DB, item *InventoryItem) error
}

type inventoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInventoryRepo(db *gorm.DB, baseLog *logger.Logger) InventoryRepo {
	repoLog := baseLog.With("repo", "InventoryRepo")
	return &inventoryRepo{db: db, log: repoLog}
}

func (ir *inventoryRepo) Create(ctx context.Context, tx *gorm.DB, item *InventoryItem) (*InventoryItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (ir *inventoryRepo) GetByID(ctx context.Context, tx *gorm.DB, itemID uint) (*InventoryItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	var result InventoryItem
	if err := transaction.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("inventory_events.id") }).
		Where("id = ?", itemID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ir *inventoryRepo) FindBySKU(ctx context.Context, tx *gorm.DB, sku string, location *string) (*InventoryItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	query := transaction.WithContext(ctx).Where("sku = ?", sku)
	if location == nil {
		query = query.Where("location IS NULL")
	} else {
		query = query.Where("location = ?", *location)
	}
	var result InventoryItem
	if err := query.First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ir *inventoryRepo) List(ctx context.Context, tx *gorm.DB, filter ListItemsFilter) ([]*InventoryItem, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}

	query := transaction.WithContext(ctx).Model(&InventoryItem{})
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*InventoryItem
	if err := query.
		Order("inventory_items.created_at DESC").
		Order("inventory_items.id DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (ir *inventoryRepo) Save(ctx context.Context, tx *gorm.DB, item *InventoryItem) (*InventoryItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).
		Omit("Events").
		Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (ir *inventoryRepo) AddEvent(ctx context.Context, tx *gorm.DB, itemID uint, eventType, payload string) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	event := InventoryEvent{ItemID: itemID, Type: eventType, Payload: payload}
	return transaction.WithContext(ctx).Create(&event).Error
}

func (ir *inventoryRepo) Delete(ctx context.Context, tx *gorm.DB, item *InventoryItem) error {
	transaction := tx
	if transaction == nil {
		transaction = ir.db
	}
	if err := transaction.WithContext(ctx).
		Where("item_id = ?", item.ID).
		Delete(&InventoryEvent{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(item).Error
}
