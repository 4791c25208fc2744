package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-backend/internal/platform/money"
)

type PriceRule struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU        string     `gorm:"column:sku;size:64;not null;uniqueIndex:uq_price_rule_window" json:"sku"`
	Region     *string    `gorm:"size:32;uniqueIndex:uq_price_rule_window" json:"region"`
	Currency   string     `gorm:"size:3;not null" json:"currency"`
	PriceCents int64      `gorm:"column:price_cents;not null" json:"price_cents"`
	Priority   int        `gorm:"not null;default:100" json:"priority"`
	StartAt    time.Time  `gorm:"column:start_at;not null;uniqueIndex:uq_price_rule_window" json:"start_at"`
	EndAt      *time.Time `gorm:"column:end_at" json:"end_at"`
	IsActive   bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (PriceRule) TableName() string { return "price_rules" }

type CreateRuleRequest struct {
	SKU      string          `json:"sku"`
	Region   *string         `json:"region"`
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
	Priority *int            `json:"priority"`
	StartAt  *time.Time      `json:"startAt"`
	EndAt    *time.Time      `json:"endAt"`
	IsActive *bool           `json:"isActive"`
}

type UpdateRuleRequest struct {
	Currency *string          `json:"currency"`
	Price    *decimal.Decimal `json:"price"`
	Priority *int             `json:"priority"`
	StartAt  *time.Time       `json:"startAt"`
	EndAt    *time.Time       `json:"endAt"`
	IsActive *bool            `json:"isActive"`
}

type RuleView struct {
	ID        uint       `json:"id"`
	SKU       string     `json:"sku"`
	Region    *string    `json:"region"`
	Currency  string     `json:"currency"`
	Price     string     `json:"price"`
	Priority  int        `json:"priority"`
	StartAt   time.Time  `json:"startAt"`
	EndAt     *time.Time `json:"endAt"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type ResolutionView struct {
	Rule  RuleView `json:"rule"`
	Price string   `json:"price"`
}

func NewRuleView(rule *PriceRule) RuleView {
	view := RuleView{
		ID:        rule.ID,
		SKU:       rule.SKU,
		Region:    rule.Region,
		Currency:  rule.Currency,
		Price:     money.FromCents(rule.PriceCents),
		Priority:  rule.Priority,
		StartAt:   rule.StartAt.UTC(),
		IsActive:  rule.IsActive,
		CreatedAt: rule.CreatedAt.UTC(),
		UpdatedAt: rule.UpdatedAt.UTC(),
	}
	if rule.EndAt != nil {
		endAt := rule.EndAt.UTC()
		view.EndAt = &endAt
	}
	return view
}
