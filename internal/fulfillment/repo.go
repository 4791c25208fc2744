package fulfillment

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type ListShipmentsFilter struct {
	OrderID        int64
	Status         string
	TrackingNumber string
	Limit          int
	Offset         int
}

type FulfillmentRepo interface {
	CreateShipment(ctx context.Context, tx *gorm.DB, shipment *Shipment) (*Shipment, error)
	GetShipment(ctx context.Context, tx *gorm.DB, shipmentID uint) (*Shipment, error)
	GetShipmentByTracking(ctx context.Context, tx *gorm.DB, trackingNumber string) (*Shipment, error)
	ListShipments(ctx context.Context, tx *gorm.DB, filter ListShipmentsFilter) ([]*Shipment, int64, error)
	SaveShipment(ctx context.Context, tx *gorm.DB, shipment *Shipment) (*Shipment, error)
	AddEvent(ctx context.Context, tx *gorm.DB, shipmentID uint, eventType string, payload map[string]interface{}) error
	DeleteShipment(ctx context.Context, tx *gorm.DB, shipment *Shipment) error
	CreateReturn(ctx context.Context, tx *gorm.DB, ret *ReturnRequest) (*ReturnRequest, error)
	GetReturn(ctx context.Context, tx *gorm.DB, returnID uint) (*ReturnRequest, error)
}

type fulfillmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFulfillmentRepo(db *gorm.DB, baseLog *logger.Logger) FulfillmentRepo {
	repoLog := baseLog.With("repo", "FulfillmentRepo")
	return &fulfillmentRepo{db: db, log: repoLog}
}

func (fr *fulfillmentRepo) CreateShipment(ctx context.Context, tx *gorm.DB, shipment *Shipment) (*Shipment, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).Create(shipment).Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

func (fr *fulfillmentRepo) GetShipment(ctx context.Context, tx *gorm.DB, shipmentID uint) (*Shipment, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var result Shipment
	if err := transaction.WithContext(ctx).
		Preload("Tasks").
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("shipment_events.id") }).
		Where("id = ?", shipmentID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (fr *fulfillmentRepo) GetShipmentByTracking(ctx context.Context, tx *gorm.DB, trackingNumber string) (*Shipment, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var result Shipment
	if err := transaction.WithContext(ctx).
		Preload("Tasks").
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("shipment_events.id") }).
		Where("tracking_number = ?", trackingNumber).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (fr *fulfillmentRepo) ListShipments(ctx context.Context, tx *gorm.DB, filter ListShipmentsFilter) ([]*Shipment, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}

	query := transaction.WithContext(ctx).Model(&Shipment{})
	if filter.OrderID > 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TrackingNumber != "" {
		query = query.Where("tracking_number = ?", filter.TrackingNumber)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*Shipment
	if err := query.
		Preload("Tasks").
		Order("shipments.id").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (fr *fulfillmentRepo) SaveShipment(ctx context.Context, tx *gorm.DB, shipment *Shipment) (*Shipment, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).
		Omit("Tasks", "Events", "Returns").
		Save(shipment).Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

func (fr *fulfillmentRepo) AddEvent(ctx context.Context, tx *gorm.DB, shipmentID uint, eventType string, payload map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := ShipmentEvent{ShipmentID: shipmentID, Type: eventType, Payload: encoded}
	return transaction.WithContext(ctx).Create(&event).Error
}

func (fr *fulfillmentRepo) DeleteShipment(ctx context.Context, tx *gorm.DB, shipment *Shipment) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).
		Where("shipment_id = ?", shipment.ID).
		Delete(&ShipmentTask{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("shipment_id = ?", shipment.ID).
		Delete(&ShipmentEvent{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Model(&ReturnRequest{}).
		Where("shipment_id = ?", shipment.ID).
		Update("shipment_id", nil).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(shipment).Error
}

func (fr *fulfillmentRepo) CreateReturn(ctx context.Context, tx *gorm.DB, ret *ReturnRequest) (*ReturnRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).Create(ret).Error; err != nil {
		return nil, err
	}
	return ret, nil
}

func (fr *fulfillmentRepo) GetReturn(ctx context.Context, tx *gorm.DB, returnID uint) (*ReturnRequest, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var result ReturnRequest
	if err := transaction.WithContext(ctx).
		Where("id = ?", returnID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
