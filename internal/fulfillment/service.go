package fulfillment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

var allowedStatuses = map[string]bool{
	"pending":          true,
	"ready":            true,
	"processing":       true,
	"packed":           true,
	"shipped":          true,
	"delivered":        true,
	"cancelled":        true,
	"delayed":          true,
	"return_initiated": true,
}

// statusTransitions is the shipment lifecycle adjacency table; statuses
// missing from the map are terminal.
var statusTransitions = map[string][]string{
	"pending":    {"ready", "processing", "packed", "cancelled"},
	"ready":      {"processing", "packed", "shipped", "cancelled"},
	"processing": {"packed", "shipped", "cancelled"},
	"packed":     {"shipped", "cancelled", "delayed"},
	"shipped":    {"delivered", "delayed", "return_initiated"},
	"delivered":  {"return_initiated"},
	"delayed":    {"shipped", "delivered", "cancelled"},
}

type Service interface {
	CreateShipment(ctx context.Context, req CreateShipmentRequest) (*ShipmentView, error)
	GetShipment(ctx context.Context, shipmentID uint) (*ShipmentView, error)
	ListShipments(ctx context.Context, filter ListShipmentsFilter) ([]ShipmentView, int64, error)
	UpdateStatus(ctx context.Context, shipmentID uint, req StatusUpdateRequest) (*ShipmentView, error)
	GetEvents(ctx context.Context, shipmentID uint) ([]EventView, error)
	Track(ctx context.Context, trackingNumber string) (*TrackingView, error)
	DeleteShipment(ctx context.Context, shipmentID uint) error
	CreateReturn(ctx context.Context, req CreateReturnRequest) (*ReturnView, error)
	GetReturn(ctx context.Context, returnID uint) (*ReturnView, error)
}

type service struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     FulfillmentRepo
	metrics  *observability.Metrics
	producer broker.Producer
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo FulfillmentRepo, metrics *observability.Metrics, producer broker.Producer) Service {
	return &service{
		db:       db,
		log:      baseLog.With("service", "FulfillmentService"),
		repo:     repo,
		metrics:  metrics,
		producer: producer,
	}
}

func (s *service) CreateShipment(ctx context.Context, req CreateShipmentRequest) (*ShipmentView, error) {
	carrier := strings.TrimSpace(req.Carrier)
	serviceLevel := strings.TrimSpace(req.ServiceLevel)
	if req.OrderID < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("orderId must be positive"))
	}
	if req.FulfillmentCenterID < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("fulfillmentCenterId must be positive"))
	}
	if carrier == "" || len(carrier) > 32 {
		return nil, apierr.BadRequest("validation_error", errors.New("carrier must be non-empty"))
	}
	if serviceLevel == "" || len(serviceLevel) > 32 {
		return nil, apierr.BadRequest("validation_error", errors.New("serviceLevel must be non-empty"))
	}

	trackingNumber := generateTrackingNumber(req.OrderID)
	if req.TrackingNumber != nil && strings.TrimSpace(*req.TrackingNumber) != "" {
		trackingNumber = strings.TrimSpace(*req.TrackingNumber)
	}

	tasks := make([]ShipmentTask, 0, len(req.Tasks))
	for i, input := range req.Tasks {
		taskType := strings.TrimSpace(input.TaskType)
		if taskType == "" || len(taskType) > 24 {
			return nil, apierr.BadRequest("validation_error", fmt.Errorf("tasks[%d].taskType must be non-empty", i))
		}
		status := "pending"
		if input.Status != nil {
			if cleaned := strings.ToLower(strings.TrimSpace(*input.Status)); cleaned != "" {
				status = cleaned
			}
		}
		task := ShipmentTask{
			TaskType:   taskType,
			Status:     status,
			AssignedTo: input.AssignedTo,
			Deadline:   input.Deadline,
		}
		if input.Payload != nil {
			encoded, err := json.Marshal(input.Payload)
			if err != nil {
				return nil, apierr.BadRequest("validation_error", err)
			}
			task.Payload = encoded
		}
		tasks = append(tasks, task)
	}

	shipment := &Shipment{
		OrderID:             req.OrderID,
		FulfillmentCenterID: req.FulfillmentCenterID,
		CarrierCode:         carrier,
		ServiceLevel:        serviceLevel,
		Status:              "pending",
		TrackingNumber:      &trackingNumber,
		EstimatedDelivery:   req.EstimatedDelivery,
		Tasks:               tasks,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CreateShipment(ctx, tx, shipment); err != nil {
			return err
		}
		return s.repo.AddEvent(ctx, tx, shipment.ID, "created", map[string]interface{}{
			"status":         shipment.Status,
			"trackingNumber": trackingNumber,
		})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncShipmentCreated()
	s.log.Info("shipment created",
		"shipment_id", shipment.ID,
		"order_id", shipment.OrderID,
		"tracking_number", trackingNumber)
	view := NewShipmentView(shipment)
	return &view, nil
}

func (s *service) GetShipment(ctx context.Context, shipmentID uint) (*ShipmentView, error) {
	shipment, err := s.requireShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	view := NewShipmentView(shipment)
	return &view, nil
}

func (s *service) ListShipments(ctx context.Context, filter ListShipmentsFilter) ([]ShipmentView, int64, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.TrackingNumber = strings.TrimSpace(filter.TrackingNumber)
	shipments, total, err := s.repo.ListShipments(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ShipmentView, 0, len(shipments))
	for _, shipment := range shipments {
		views = append(views, NewShipmentView(shipment))
	}
	return views, total, nil
}

func (s *service) UpdateStatus(ctx context.Context, shipmentID uint, req StatusUpdateRequest) (*ShipmentView, error) {
	target := strings.ToLower(strings.TrimSpace(req.Status))
	if !allowedStatuses[target] {
		return nil, apierr.Conflict("invalid_status", errors.New("unsupported status transition"))
	}
	shipment, err := s.requireShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	current := strings.ToLower(shipment.Status)
	if current == target {
		return nil, apierr.Conflict("already_in_status", errors.New("shipment already in target status"))
	}
	if !transitionAllowed(current, target) {
		return nil, apierr.Conflict("invalid_transition", errors.New("invalid status transition"))
	}

	now := time.Now().UTC()
	if target == "shipped" && shipment.ShippedAt == nil {
		shipment.ShippedAt = &now
	}
	if target == "delivered" {
		if shipment.ShippedAt == nil {
			shipment.ShippedAt = &now
		}
		shipment.DeliveredAt = &now
	}
	shipment.Status = target
	if req.TrackingNumber != nil && strings.TrimSpace(*req.TrackingNumber) != "" {
		cleaned := strings.TrimSpace(*req.TrackingNumber)
		shipment.TrackingNumber = &cleaned
	}
	if req.EstimatedDelivery != nil {
		shipment.EstimatedDelivery = req.EstimatedDelivery
	}

	eventPayload := map[string]interface{}{
		"status":         target,
		"trackingNumber": shipment.TrackingNumber,
	}
	if req.Description != nil {
		eventPayload["description"] = *req.Description
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.SaveShipment(ctx, tx, shipment); err != nil {
			return err
		}
		return s.repo.AddEvent(ctx, tx, shipment.ID, "status."+target, eventPayload)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncShipmentTransition(target)
	if s.producer != nil {
		s.producer.Publish(ctx, "fulfillment.shipment.updated.v1", map[string]interface{}{
			"shipment_id": shipment.ID,
			"order_id":    shipment.OrderID,
			"status":      target,
		})
	}

	updated, err := s.repo.GetShipment(ctx, nil, shipment.ID)
	if err != nil {
		return nil, err
	}
	view := NewShipmentView(updated)
	return &view, nil
}

func (s *service) GetEvents(ctx context.Context, shipmentID uint) ([]EventView, error) {
	shipment, err := s.requireShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	return NewEventViews(shipment.Events), nil
}

func (s *service) Track(ctx context.Context, trackingNumber string) (*TrackingView, error) {
	shipment, err := s.repo.GetShipmentByTracking(ctx, nil, strings.TrimSpace(trackingNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("shipment_not_found", errors.New("Shipment not found"))
		}
		return nil, err
	}
	return &TrackingView{
		Shipment: NewShipmentView(shipment),
		Events:   NewEventViews(shipment.Events),
	}, nil
}

func (s *service) DeleteShipment(ctx context.Context, shipmentID uint) error {
	shipment, err := s.repo.GetShipment(ctx, nil, shipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := s.repo.DeleteShipment(ctx, nil, shipment); err != nil {
		return err
	}
	s.log.Info("shipment deleted", "shipment_id", shipmentID)
	return nil
}

func (s *service) CreateReturn(ctx context.Context, req CreateReturnRequest) (*ReturnView, error) {
	if req.OrderID < 1 {
		return nil, apierr.BadRequest("validation_error", errors.New("orderId must be positive"))
	}

	var shipment *Shipment
	if req.ShipmentID != nil {
		found, err := s.repo.GetShipment(ctx, nil, *req.ShipmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.NotFound("shipment_not_found", errors.New("Shipment not found for return"))
			}
			return nil, err
		}
		shipment = found
	}

	ret := &ReturnRequest{
		OrderID:           req.OrderID,
		ShipmentID:        req.ShipmentID,
		AuthorizationCode: generateRMACode(),
		Status:            "pending",
		Reason:            req.Reason,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.repo.CreateReturn(ctx, tx, ret); err != nil {
			return err
		}
		if shipment != nil {
			return s.repo.AddEvent(ctx, tx, shipment.ID, "return.created", map[string]interface{}{
				"returnId":          ret.ID,
				"authorizationCode": ret.AuthorizationCode,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("return created", "return_id", ret.ID, "order_id", ret.OrderID)
	view := NewReturnView(ret)
	return &view, nil
}

func (s *service) GetReturn(ctx context.Context, returnID uint) (*ReturnView, error) {
	ret, err := s.repo.GetReturn(ctx, nil, returnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("return_not_found", errors.New("Return not found"))
		}
		return nil, err
	}
	view := NewReturnView(ret)
	return &view, nil
}

func (s *service) requireShipment(ctx context.Context, shipmentID uint) (*Shipment, error) {
	shipment, err := s.repo.GetShipment(ctx, nil, shipmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("shipment_not_found", errors.New("Shipment not found"))
		}
		return nil, err
	}
	return shipment, nil
}

func transitionAllowed(current, target string) bool {
	allowed, ok := statusTransitions[current]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

func generateTrackingNumber(orderID int64) string {
	return fmt.Sprintf("TRK-%d-%s", orderID, randomHex(4))
}

func generateRMACode() string {
	return randomHex(4)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}
