package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-backend/internal/platform/money"
)

type Order struct {
	ID                 uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID         int64        `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Status             string       `gorm:"size:32;not null;default:pending" json:"status"`
	Currency           string       `gorm:"size:3;not null" json:"currency"`
	SubtotalCents      int64        `gorm:"column:subtotal_cents;not null;default:0" json:"subtotal_cents"`
	DiscountTotalCents int64        `gorm:"column:discount_total_cents;not null;default:0" json:"discount_total_cents"`
	ShippingTotalCents int64        `gorm:"column:shipping_total_cents;not null;default:0" json:"shipping_total_cents"`
	TaxTotalCents      int64        `gorm:"column:tax_total_cents;not null;default:0" json:"tax_total_cents"`
	GrandTotalCents    int64        `gorm:"column:grand_total_cents;not null;default:0" json:"grand_total_cents"`
	IsPaid             bool         `gorm:"column:is_paid;not null;default:false" json:"is_paid"`
	Items              []OrderItem  `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrderID;references:ID" json:"items"`
	Events             []OrderEvent `gorm:"constraint:OnDelete:CASCADE;foreignKey:OrderID;references:ID" json:"events"`
	CreatedAt          time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             uint      `gorm:"column:order_id;not null;index" json:"order_id"`
	SKU                 string    `gorm:"column:sku;size:64;not null" json:"sku"`
	Name                string    `gorm:"size:255;not null" json:"name"`
	Quantity            int       `gorm:"not null" json:"quantity"`
	UnitPriceCents      int64     `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	DiscountAmountCents int64     `gorm:"column:discount_amount_cents;not null;default:0" json:"discount_amount_cents"`
	TaxAmountCents      int64     `gorm:"column:tax_amount_cents;not null;default:0" json:"tax_amount_cents"`
	CreatedAt           time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null" json:"updated_at"`
}

func (OrderItem) TableName() string { return "order_items" }

type OrderEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint      `gorm:"column:order_id;not null;index" json:"order_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Payload   string    `gorm:"size:255;not null" json:"payload"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (OrderEvent) TableName() string { return "order_events" }

type OrderItemInput struct {
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
}

type CreateOrderRequest struct {
	CustomerID    int64            `json:"customerId"`
	Currency      string           `json:"currency"`
	Items         []OrderItemInput `json:"items"`
	ShippingTotal decimal.Decimal  `json:"shippingTotal"`
	TaxTotal      decimal.Decimal  `json:"taxTotal"`
	DiscountTotal decimal.Decimal  `json:"discountTotal"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type OrderItemView struct {
	ID             uint      `json:"id"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Quantity       int       `json:"quantity"`
	UnitPrice      string    `json:"unitPrice"`
	DiscountAmount string    `json:"discountAmount"`
	TaxAmount      string    `json:"taxAmount"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type OrderView struct {
	ID            uint            `json:"id"`
	CustomerID    int64           `json:"customerId"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	Subtotal      string          `json:"subtotal"`
	DiscountTotal string          `json:"discountTotal"`
	ShippingTotal string          `json:"shippingTotal"`
	TaxTotal      string          `json:"taxTotal"`
	GrandTotal    string          `json:"grandTotal"`
	IsPaid        bool            `json:"isPaid"`
	Items         []OrderItemView `json:"items"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type OrderEventView struct {
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewOrderView(o *Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemView{
			ID:             item.ID,
			SKU:            item.SKU,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPrice:      money.FromCents(item.UnitPriceCents),
			DiscountAmount: money.FromCents(item.DiscountAmountCents),
			TaxAmount:      money.FromCents(item.TaxAmountCents),
			CreatedAt:      item.CreatedAt.UTC(),
			UpdatedAt:      item.UpdatedAt.UTC(),
		})
	}
	return OrderView{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Status:        o.Status,
		Currency:      o.Currency,
		Subtotal:      money.FromCents(o.SubtotalCents),
		DiscountTotal: money.FromCents(o.DiscountTotalCents),
		ShippingTotal: money.FromCents(o.ShippingTotalCents),
		TaxTotal:      money.FromCents(o.TaxTotalCents),
		GrandTotal:    money.FromCents(o.GrandTotalCents),
		IsPaid:        o.IsPaid,
		Items:         items,
		CreatedAt:     o.CreatedAt.UTC(),
		UpdatedAt:     o.UpdatedAt.UTC(),
	}
}

func NewOrderEventViews(events []OrderEvent) []OrderEventView {
	views := make([]OrderEventView, 0, len(events))
	for _, event := range events {
		views = append(views, OrderEventView{
			Type:      event.Type,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt.UTC(),
		})
	}
	return views
}
