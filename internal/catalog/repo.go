package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type ListProductsFilter struct {
	Category   string
	OnlyActive bool
	Limit      int
	Offset     int
}

type ProductRepo interface {
	Create(ctx context.Context, tx *gorm.DB, product *Product) (*Product, error)
	GetByID(ctx context.Context, tx *gorm.DB, productID uint) (*Product, error)
	GetBySKU(ctx context.Context, tx *gorm.DB, sku string) (*Product, error)
	List(ctx context.Context, tx *gorm.DB, filter ListProductsFilter) ([]*Product, int64, error)
	Save(ctx context.Context, tx *gorm.DB, product *Product) (*Product, error)
	ReplaceCategories(ctx context.Context, tx *gorm.DB, productID uint, names []string) error
	Delete(ctx context.Context, tx *gorm.DB, product *Product) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	repoLog := baseLog.With("repo", "ProductRepo")
	return &productRepo{db: db, log: repoLog}
}

func (pr *productRepo) Create(ctx context.Context, tx *gorm.DB, product *Product) (*Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (pr *productRepo) GetByID(ctx context.Context, tx *gorm.DB, productID uint) (*Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result Product
	if err := transaction.WithContext(ctx).
		Preload("Categories").
		Where("id = ?", productID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *productRepo) GetBySKU(ctx context.Context, tx *gorm.DB, sku string) (*Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result Product
	if err := transaction.WithContext(ctx).
		Preload("Categories").
		Where("sku = ?", sku).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *productRepo) List(ctx context.Context, tx *gorm.DB, filter ListProductsFilter) ([]*Product, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	query := transaction.WithContext(ctx).Model(&Product{})
	if filter.Category != "" {
		query = query.
			Joins("JOIN product_categories ON product_categories.product_id = products.id").
			Where("product_categories.name = ?", filter.Category)
	}
	if filter.OnlyActive {
		query = query.Where("products.is_active = ?", true)
	}

	var total int64
	if err := query.Distinct("products.id").Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*Product
	if err := query.
		Distinct().
		Preload("Categories").
		Order("products.id").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (pr *productRepo) Save(ctx context.Context, tx *gorm.DB, product *Product) (*Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).
		Omit("Categories").
		Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (pr *productRepo) ReplaceCategories(ctx context.Context, tx *gorm.DB, productID uint, names []string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&ProductCategory{}).Error; err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	categories := make([]ProductCategory, 0, len(names))
	for _, name := range names {
		categories = append(categories, ProductCategory{ProductID: productID, Name: name})
	}
	return transaction.WithContext(ctx).Create(&categories).Error
}

func (pr *productRepo) Delete(ctx context.Context, tx *gorm.DB, product *Product) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).
		Where("product_id = ?", product.ID).
		Delete(&ProductCategory{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(product).Error
}
