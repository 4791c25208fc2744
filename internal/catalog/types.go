package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-backend/internal/platform/money"
)

type Product struct {
	ID          uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU         string            `gorm:"column:sku;size:64;uniqueIndex;not null" json:"sku"`
	Name        string            `gorm:"size:255;not null" json:"name"`
	Description *string           `gorm:"type:text" json:"description"`
	PriceCents  int64             `gorm:"column:price_cents;not null" json:"price_cents"`
	Currency    string            `gorm:"size:3;not null" json:"currency"`
	IsActive    bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Categories  []ProductCategory `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"categories"`
	CreatedAt   time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

type ProductCategory struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint   `gorm:"column:product_id;not null;index;uniqueIndex:uq_product_category" json:"product_id"`
	Name      string `gorm:"size:100;not null;uniqueIndex:uq_product_category" json:"name"`
}

func (ProductCategory) TableName() string { return "product_categories" }

type CreateProductRequest struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	IsActive    *bool           `json:"isActive"`
	Categories  []string        `json:"categories"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Currency    *string          `json:"currency"`
	IsActive    *bool            `json:"isActive"`
	Categories  *[]string        `json:"categories"`
}

type ProductView struct {
	ID          uint      `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       string    `json:"price"`
	Currency    string    `json:"currency"`
	IsActive    bool      `json:"isActive"`
	Categories  []string  `json:"categories"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewProductView(p *Product) ProductView {
	categories := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		categories = append(categories, c.Name)
	}
	return ProductView{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       money.FromCents(p.PriceCents),
		Currency:    p.Currency,
		IsActive:    p.IsActive,
		Categories:  categories,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
}
