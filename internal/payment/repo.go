package payment

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type ListPaymentsFilter struct {
	CustomerID int64
	OrderID    int64
	Status     string
	Limit      int
	Offset     int
}

type PaymentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, payment *Payment) (*Payment, error)
	GetByID(ctx context.Context, tx *gorm.DB, paymentID uint) (*Payment, error)
	List(ctx context.Context, tx *gorm.DB, filter ListPaymentsFilter) ([]*Payment, int64, error)
	Save(ctx context.Context, tx *gorm.DB, payment *Payment) (*Payment, error)
	AddEvent(ctx context.Context, tx *gorm.DB, paymentID uint, eventType, payload string) error
	Delete(ctx context.Context, tx *gorm.DB, payment *Payment) error
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	repoLog := baseLog.With("repo", "PaymentRepo")
	return &paymentRepo{db: db, log: repoLog}
}

func (pr *paymentRepo) Create(ctx context.Context, tx *gorm.DB, payment *Payment) (*Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (pr *paymentRepo) GetByID(ctx context.Context, tx *gorm.DB, paymentID uint) (*Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result Payment
	if err := transaction.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("payment_events.id") }).
		Where("id = ?", paymentID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *paymentRepo) List(ctx context.Context, tx *gorm.DB, filter ListPaymentsFilter) ([]*Payment, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	query := transaction.WithContext(ctx).Model(&Payment{})
	if filter.CustomerID > 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.OrderID > 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*Payment
	if err := query.
		Order("payments.id").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (pr *paymentRepo) Save(ctx context.Context, tx *gorm.DB, payment *Payment) (*Payment, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).
		Omit("Events").
		Save(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (pr *paymentRepo) AddEvent(ctx context.Context, tx *gorm.DB, paymentID uint, eventType, payload string) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	event := PaymentEvent{PaymentID: paymentID, Type: eventType, Payload: payload}
	return transaction.WithContext(ctx).Create(&event).Error
}

func (pr *paymentRepo) Delete(ctx context.Context, tx *gorm.DB, payment *Payment) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).
		Where("payment_id = ?", payment.ID).
		Delete(&PaymentEvent{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(payment).Error
}
