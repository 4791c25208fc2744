package inventory

import (
	"time"
)

type InventoryItem struct {
	ID               uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	SKU              string           `gorm:"column:sku;size:64;not null;index;uniqueIndex:uq_inventory_sku_location" json:"sku"`
	Location         *string          `gorm:"size:64;index;uniqueIndex:uq_inventory_sku_location" json:"location"`
	QuantityOnHand   int              `gorm:"column:quantity_on_hand;not null;default:0" json:"quantity_on_hand"`
	QuantityReserved int              `gorm:"column:quantity_reserved;not null;default:0" json:"quantity_reserved"`
	SafetyStock      int              `gorm:"column:safety_stock;not null;default:0" json:"safety_stock"`
	Events           []InventoryEvent `gorm:"constraint:OnDelete:CASCADE;foreignKey:ItemID;references:ID" json:"events"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

func (InventoryItem) TableName() string { return "inventory_items" }

type InventoryEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemID    uint      `gorm:"column:item_id;not null;index" json:"item_id"`
	Type      string    `gorm:"size:64;not null" json:"type"`
	Payload   string    `gorm:"size:255;not null" json:"payload"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (InventoryEvent) TableName() string { return "inventory_events" }

type CreateItemRequest struct {
	SKU            string  `json:"sku"`
	Location       *string `json:"location"`
	QuantityOnHand int     `json:"quantityOnHand"`
	SafetyStock    int     `json:"safetyStock"`
}

type AdjustRequest struct {
	QuantityOnHand int  `json:"quantityOnHand"`
	SafetyStock    *int `json:"safetyStock"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type ItemView struct {
	ID               uint      `json:"id"`
	SKU              string    `json:"sku"`
	Location         *string   `json:"location"`
	QuantityOnHand   int       `json:"quantityOnHand"`
	QuantityReserved int       `json:"quantityReserved"`
	Available        int       `json:"available"`
	SafetyStock      int       `json:"safetyStock"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type ItemEventView struct {
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewItemView(item *InventoryItem) ItemView {
	return ItemView{
		ID:               item.ID,
		SKU:              item.SKU,
		Location:         item.Location,
		QuantityOnHand:   item.QuantityOnHand,
		QuantityReserved: item.QuantityReserved,
		Available:        item.QuantityOnHand - item.QuantityReserved,
		SafetyStock:      item.SafetyStock,
		CreatedAt:        item.CreatedAt.UTC(),
		UpdatedAt:        item.UpdatedAt.UTC(),
	}
}

func NewItemEventViews(events []InventoryEvent) []ItemEventView {
	views := make([]ItemEventView, 0, len(events))
	for _, event := range events {
		views = append(views, ItemEventView{
			Type:      event.Type,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt.UTC(),
		})
	}
	return views
}
