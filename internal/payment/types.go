package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/shopforge/commerce-backend/internal/platform/money"
)

type Payment struct {
	ID                uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           *int64            `gorm:"column:order_id" json:"order_id"`
	CustomerID        int64             `gorm:"column:customer_id;not null;index" json:"customer_id"`
	AmountCents       int64             `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Currency          string            `gorm:"size:3;not null" json:"currency"`
	Status            string            `gorm:"size:32;not null;default:pending" json:"status"`
	PaymentMethod     string            `gorm:"column:payment_method;size:64;not null" json:"payment_method"`
	ProviderReference *string           `gorm:"column:provider_reference;size:128" json:"provider_reference"`
	Metadata          datatypes.JSONMap `gorm:"column:metadata" json:"metadata"`
	Events            []PaymentEvent    `gorm:"constraint:OnDelete:CASCADE;foreignKey:PaymentID;references:ID" json:"events"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

type PaymentEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID uint      `gorm:"column:payment_id;not null;index" json:"payment_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Payload   string    `gorm:"size:255;not null" json:"payload"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (PaymentEvent) TableName() string { return "payment_events" }

type CreatePaymentRequest struct {
	CustomerID        int64                  `json:"customerId"`
	OrderID           *int64                 `json:"orderId"`
	Amount            decimal.Decimal        `json:"amount"`
	Currency          string                 `json:"currency"`
	PaymentMethod     string                 `json:"paymentMethod"`
	ProviderReference *string                `json:"providerReference"`
	Metadata          map[string]interface{} `json:"metadata"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

type ProviderUpdateRequest struct {
	ProviderReference *string `json:"providerReference"`
}

type PaymentView struct {
	ID                uint      `json:"id"`
	CustomerID        int64     `json:"customerId"`
	OrderID           *int64    `json:"orderId"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	PaymentMethod     string    `json:"paymentMethod"`
	ProviderReference *string   `json:"providerReference"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type PaymentEventView struct {
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewPaymentView(p *Payment) PaymentView {
	return PaymentView{
		ID:                p.ID,
		CustomerID:        p.CustomerID,
		OrderID:           p.OrderID,
		Amount:            money.FromCents(p.AmountCents),
		Currency:          p.Currency,
		Status:            p.Status,
		PaymentMethod:     p.PaymentMethod,
		ProviderReference: p.ProviderReference,
		CreatedAt:         p.CreatedAt.UTC(),
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}

func NewPaymentEventViews(events []PaymentEvent) []PaymentEventView {
	views := make([]PaymentEventView, 0, len(events))
	for _, event := range events {
		views = append(views, PaymentEventView{
			Type:      event.Type,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt.UTC(),
		})
	}
	return views
}
