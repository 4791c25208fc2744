package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-backend/internal/platform/money"
)

type Cart struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID int64      `gorm:"column:customer_id;uniqueIndex;not null" json:"customer_id"`
	Currency   string     `gorm:"size:3;not null;default:USD" json:"currency"`
	Items      []CartItem `gorm:"constraint:OnDelete:CASCADE;foreignKey:CartID;references:ID" json:"items"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID         uint      `gorm:"column:cart_id;not null;uniqueIndex:uq_cart_item_sku" json:"cart_id"`
	SKU            string    `gorm:"column:sku;size:64;not null;uniqueIndex:uq_cart_item_sku" json:"sku"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (CartItem) TableName() string { return "cart_items" }

type AddItemRequest struct {
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

type UpdateItemRequest struct {
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Quantity  *int             `json:"quantity"`
}

type MergeRequest struct {
	FromCustomerID int64 `json:"fromCustomerId"`
	ToCustomerID   int64 `json:"toCustomerId"`
}

type CartItemView struct {
	ID        uint      `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	UnitPrice string    `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CartView struct {
	ID         uint           `json:"id"`
	CustomerID int64          `json:"customerId"`
	Currency   string         `json:"currency"`
	Items      []CartItemView `json:"items"`
	Total      string         `json:"total"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type TotalsView struct {
	TotalItems  int    `json:"totalItems"`
	TotalAmount string `json:"totalAmount"`
}

func NewCartView(c *Cart) CartView {
	items := make([]CartItemView, 0, len(c.Items))
	var totalCents int64
	for _, item := range c.Items {
		totalCents += item.UnitPriceCents * int64(item.Quantity)
		items = append(items, CartItemView{
			ID:        item.ID,
			SKU:       item.SKU,
			Name:      item.Name,
			UnitPrice: money.FromCents(item.UnitPriceCents),
			Quantity:  item.Quantity,
			CreatedAt: item.CreatedAt.UTC(),
			UpdatedAt: item.UpdatedAt.UTC(),
		})
	}
	return CartView{
		ID:         c.ID,
		CustomerID: c.CustomerID,
		Currency:   c.Currency,
		Items:      items,
		Total:      money.FromCents(totalCents),
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

func NewTotalsView(c *Cart) TotalsView {
	if c == nil {
		return TotalsView{TotalItems: 0, TotalAmount: money.FromCents(0)}
	}
	var totalItems int
	var totalCents int64
	for _, item := range c.Items {
		totalItems += item.Quantity
		totalCents += item.UnitPriceCents * int64(item.Quantity)
	}
	return TotalsView{TotalItems: totalItems, TotalAmount: money.FromCents(totalCents)}
}
