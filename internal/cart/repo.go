package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type CartRepo interface {
	GetByCustomer(ctx context.Context, tx *gorm.DB, customerID int64) (*Cart, error)
	GetOrCreate(ctx context.Context, tx *gorm.DB, customerID int64, currency string) (*Cart, error)
	GetItem(ctx context.Context, tx *gorm.DB, cartID uint, sku string) (*CartItem, error)
	SaveItem(ctx context.Context, tx *gorm.DB, item *CartItem) error
	DeleteItem(ctx context.Context, tx *gorm.DB, item *CartItem) error
	ClearItems(ctx context.Context, tx *gorm.DB, cartID uint) error
	Touch(ctx context.Context, tx *gorm.DB, cartID uint) error
}

type cartRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCartRepo(db *gorm.DB, baseLog *logger.Logger) CartRepo {
	repoLog := baseLog.With("repo", "CartRepo")
	return &cartRepo{db: db, log: repoLog}
}

func (cr *cartRepo) GetByCustomer(ctx context.Context, tx *gorm.DB, customerID int64) (*Cart, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result Cart
	if err := transaction.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *cartRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, customerID int64, currency string) (*Cart, error) {
	existing, err := cr.GetByCustomer(ctx, tx, customerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	created := &Cart{CustomerID: customerID, Currency: currency, Items: []CartItem{}}
	if err := transaction.WithContext(ctx).Create(created).Error; err != nil {
		return nil, err
	}
	return created, nil
}

func (cr *cartRepo) GetItem(ctx context.Context, tx *gorm.DB, cartID uint, sku string) (*CartItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result CartItem
	if err := transaction.WithContext(ctx).
		Where("cart_id = ? AND sku = ?", cartID, sku).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *cartRepo) SaveItem(ctx context.Context, tx *gorm.DB, item *CartItem) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).Save(item).Error
}

func (cr *cartRepo) DeleteItem(ctx context.Context, tx *gorm.DB, item *CartItem) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).Delete(item).Error
}

func (cr *cartRepo) ClearItems(ctx context.Context, tx *gorm.DB, cartID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&CartItem{}).Error
}

func (cr *cartRepo) Touch(ctx context.Context, tx *gorm.DB, cartID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
