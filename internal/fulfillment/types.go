package fulfillment

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Shipment struct {
	ID                  uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"column:order_id;not null;index" json:"order_id"`
	FulfillmentCenterID int64           `gorm:"column:fulfillment_center_id;not null;index" json:"fulfillment_center_id"`
	CarrierCode         string          `gorm:"column:carrier_code;size:32;not null" json:"carrier_code"`
	ServiceLevel        string          `gorm:"column:service_level;size:32;not null" json:"service_level"`
	Status              string          `gorm:"size:24;not null;default:pending" json:"status"`
	TrackingNumber      *string         `gorm:"column:tracking_number;size:64;uniqueIndex" json:"tracking_number"`
	ShippedAt           *time.Time      `gorm:"column:shipped_at" json:"shipped_at"`
	DeliveredAt         *time.Time      `gorm:"column:delivered_at" json:"delivered_at"`
	EstimatedDelivery   *time.Time      `gorm:"column:estimated_delivery" json:"estimated_delivery"`
	Tasks               []ShipmentTask  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ShipmentID;references:ID" json:"tasks"`
	Events              []ShipmentEvent `gorm:"constraint:OnDelete:CASCADE;foreignKey:ShipmentID;references:ID" json:"events"`
	Returns             []ReturnRequest `gorm:"foreignKey:ShipmentID;references:ID" json:"returns"`
	CreatedAt           time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"not null" json:"updated_at"`
}

func (Shipment) TableName() string { return "shipments" }

type ShipmentTask struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipmentID uint           `gorm:"column:shipment_id;not null;index" json:"shipment_id"`
	TaskType   string         `gorm:"column:task_type;size:24;not null" json:"task_type"`
	Status     string         `gorm:"size:16;not null;default:pending" json:"status"`
	AssignedTo *string        `gorm:"column:assigned_to;size:64" json:"assigned_to"`
	Deadline   *time.Time     `gorm:"column:deadline" json:"deadline"`
	Payload    datatypes.JSON `gorm:"column:payload_json" json:"payload"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (ShipmentTask) TableName() string { return "fulfillment_tasks" }

type ShipmentEvent struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	ShipmentID uint           `gorm:"column:shipment_id;not null;index" json:"shipment_id"`
	Type       string         `gorm:"size:64;not null" json:"type"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (ShipmentEvent) TableName() string { return "shipment_events" }

type ReturnRequest struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID           int64      `gorm:"column:order_id;not null;index" json:"order_id"`
	ShipmentID        *uint      `gorm:"column:shipment_id;index" json:"shipment_id"`
	AuthorizationCode string     `gorm:"column:authorization_code;size:32;not null;uniqueIndex" json:"authorization_code"`
	Status            string     `gorm:"size:16;not null;default:pending" json:"status"`
	Reason            *string    `gorm:"type:text" json:"reason"`
	RequestedAt       time.Time  `gorm:"column:requested_at;not null;autoCreateTime" json:"requested_at"`
	ProcessedAt       *time.Time `gorm:"column:processed_at" json:"processed_at"`
}

func (ReturnRequest) TableName() string { return "return_requests" }

type TaskInput struct {
	TaskType   string                 `json:"taskType"`
	Status     *string                `json:"status"`
	AssignedTo *string                `json:"assignedTo"`
	Deadline   *time.Time             `json:"deadline"`
	Payload    map[string]interface{} `json:"payload"`
}

type CreateShipmentRequest struct {
	OrderID             int64       `json:"orderId"`
	FulfillmentCenterID int64       `json:"fulfillmentCenterId"`
	Carrier             string      `json:"carrier"`
	ServiceLevel        string      `json:"serviceLevel"`
	TrackingNumber      *string     `json:"trackingNumber"`
	EstimatedDelivery   *time.Time  `json:"estimatedDelivery"`
	Tasks               []TaskInput `json:"tasks"`
}

type StatusUpdateRequest struct {
	Status            string     `json:"status"`
	Description       *string    `json:"description"`
	TrackingNumber    *string    `json:"trackingNumber"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

type CreateReturnRequest struct {
	OrderID    int64   `json:"orderId"`
	ShipmentID *uint   `json:"shipmentId"`
	Reason     *string `json:"reason"`
}

type TaskView struct {
	ID         uint                   `json:"id"`
	TaskType   string                 `json:"taskType"`
	Status     string                 `json:"status"`
	AssignedTo *string                `json:"assignedTo"`
	Deadline   *time.Time             `json:"deadline"`
	Payload    map[string]interface{} `json:"payload"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

type ShipmentView struct {
	ID                  uint       `json:"id"`
	OrderID             int64      `json:"orderId"`
	FulfillmentCenterID int64      `json:"fulfillmentCenterId"`
	Carrier             string     `json:"carrier"`
	ServiceLevel        string     `json:"serviceLevel"`
	Status              string     `json:"status"`
	TrackingNumber      *string    `json:"trackingNumber"`
	ShippedAt           *time.Time `json:"shippedAt"`
	DeliveredAt         *time.Time `json:"deliveredAt"`
	EstimatedDelivery   *time.Time `json:"estimatedDelivery"`
	Tasks               []TaskView `json:"tasks"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type EventView struct {
	ID        uint                   `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"createdAt"`
}

type TrackingView struct {
	Shipment ShipmentView `json:"shipment"`
	Events   []EventView  `json:"events"`
}

type ReturnView struct {
	ID                uint       `json:"id"`
	OrderID           int64      `json:"orderId"`
	ShipmentID        *uint      `json:"shipmentId"`
	AuthorizationCode string     `json:"authorizationCode"`
	Status            string     `json:"status"`
	Reason            *string    `json:"reason"`
	RequestedAt       time.Time  `json:"requestedAt"`
	ProcessedAt       *time.Time `json:"processedAt"`
}

func decodePayload(raw datatypes.JSON) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return map[string]interface{}{}
	}
	return decoded
}

func NewShipmentView(s *Shipment) ShipmentView {
	tasks := make([]TaskView, 0, len(s.Tasks))
	for _, task := range s.Tasks {
		tasks = append(tasks, TaskView{
			ID:         task.ID,
			TaskType:   task.TaskType,
			Status:     task.Status,
			AssignedTo: task.AssignedTo,
			Deadline:   task.Deadline,
			Payload:    decodePayload(task.Payload),
			CreatedAt:  task.CreatedAt.UTC(),
			UpdatedAt:  task.UpdatedAt.UTC(),
		})
	}
	return ShipmentView{
		ID:                  s.ID,
		OrderID:             s.OrderID,
		FulfillmentCenterID: s.FulfillmentCenterID,
		Carrier:             s.CarrierCode,
		ServiceLevel:        s.ServiceLevel,
		Status:              s.Status,
		TrackingNumber:      s.TrackingNumber,
		ShippedAt:           s.ShippedAt,
		DeliveredAt:         s.DeliveredAt,
		EstimatedDelivery:   s.EstimatedDelivery,
		Tasks:               tasks,
		CreatedAt:           s.CreatedAt.UTC(),
		UpdatedAt:           s.UpdatedAt.UTC(),
	}
}

func NewEventViews(events []ShipmentEvent) []EventView {
	views := make([]EventView, 0, len(events))
	for _, event := range events {
		views = append(views, EventView{
			ID:        event.ID,
			Type:      event.Type,
			Payload:   decodePayload(event.Payload),
			CreatedAt: event.CreatedAt.UTC(),
		})
	}
	return views
}

func NewReturnView(r *ReturnRequest) ReturnView {
	return ReturnView{
		ID:                r.ID,
		OrderID:           r.OrderID,
		ShipmentID:        r.ShipmentID,
		AuthorizationCode: r.AuthorizationCode,
		Status:            r.Status,
		Reason:            r.Reason,
		RequestedAt:       r.RequestedAt.UTC(),
		ProcessedAt:       r.ProcessedAt,
	}
}
