package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/money"
)

type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductView, error)
	GetProduct(ctx context.Context, productID uint) (*ProductView, error)
	ListProducts(ctx context.Context, filter ListProductsFilter) ([]ProductView, int64, error)
	UpdateProduct(ctx context.Context, productID uint, req UpdateProductRequest) (*ProductView, error)
	DeleteProduct(ctx context.Context, productID uint) error
}

type service struct {
	db      *gorm.DB
	log     *logger.Logger
	repo    ProductRepo
	metrics *observability.Metrics
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo ProductRepo, metrics *observability.Metrics) Service {
	return &service{
		db:      db,
		log:     baseLog.With("service", "CatalogService"),
		repo:    repo,
		metrics: metrics,
	}
}

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*ProductView, error) {
	sku := strings.TrimSpace(req.SKU)
	name := strings.TrimSpace(req.Name)
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if sku == "" || len(sku) > 64 {
		return nil, apierr.BadRequest("validation_error", errors.New("sku must be non-empty"))
	}
	if name == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("name must be non-empty"))
	}
	if len(currency) != 3 {
		return nil, apierr.BadRequest("validation_error", errors.New("currency must be a 3-letter code"))
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.BadRequest("validation_error", errors.New("price must be positive"))
	}
	categories, err := cleanCategories(req.Categories)
	if err != nil {
		return nil, apierr.BadRequest("validation_error", err)
	}

	if _, err := s.repo.GetBySKU(ctx, nil, sku); err == nil {
		return nil, apierr.Conflict("sku_exists", errors.New("SKU already exists"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	product := &Product{
		SKU:        sku,
		Name:       name,
		PriceCents: money.DecimalToCents(req.Price),
		Currency:   currency,
		IsActive:   isActive,
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		product.Description = &desc
	}
	for _, c := range categories {
		product.Categories = append(product.Categories, ProductCategory{Name: c})
	}

	created, err := s.repo.Create(ctx, nil, product)
	if err != nil {
		return nil, err
	}
	s.log.Info("product created", "product_id", created.ID, "sku", created.SKU)
	view := NewProductView(created)
	return &view, nil
}

func (s *service) GetProduct(ctx context.Context, productID uint) (*ProductView, error) {
	product, err := s.repo.GetByID(ctx, nil, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("product_not_found", errors.New("Product not found"))
		}
		return nil, err
	}
	view := NewProductView(product)
	return &view, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListProductsFilter) ([]ProductView, int64, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	products, total, err := s.repo.List(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, NewProductView(p))
	}
	return views, total, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uint, req UpdateProductRequest) (*ProductView, error) {
	product, err := s.repo.GetByID(ctx, nil, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("product_not_found", errors.New("Product not found"))
		}
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apierr.BadRequest("validation_error", errors.New("name must be non-empty"))
		}
		product.Name = name
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		product.Description = &desc
	}
	if req.Price != nil {
		if req.Price.LessThanOrEqual(decimal.Zero) {
			return nil, apierr.BadRequest("validation_error", errors.New("price must be positive"))
		}
		product.PriceCents = money.DecimalToCents(*req.Price)
	}
	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return nil, apierr.BadRequest("validation_error", errors.New("currency must be a 3-letter code"))
		}
		product.Currency = currency
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	var replaceCategories []string
	if req.Categories != nil {
		cleaned, err := cleanCategories(*req.Categories)
		if err != nil {
			return nil, apierr.BadRequest("validation_error", err)
		}
		replaceCategories = cleaned
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.Save(ctx, tx, product); err != nil {
			return err
		}
		if req.Categories != nil {
			return s.repo.ReplaceCategories(ctx, tx, product.ID, replaceCategories)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, nil, product.ID)
	if err != nil {
		return nil, err
	}
	view := NewProductView(updated)
	return &view, nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uint) error {
	product, err := s.repo.GetByID(ctx, nil, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("product_not_found", errors.New("Product not found"))
		}
		return err
	}
	if err := s.repo.Delete(ctx, nil, product); err != nil {
		return err
	}
	s.log.Info("product deleted", "product_id", productID, "sku", product.SKU)
	return nil
}

func cleanCategories(input []string) ([]string, error) {
	cleaned := make([]string, 0, len(input))
	for _, item := range input {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			return nil, fmt.Errorf("category names must be non-empty")
		}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned, nil
}
