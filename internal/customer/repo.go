package customer

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type CustomerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *CustomerProfile) (*CustomerProfile, error)
	GetByID(ctx context.Context, tx *gorm.DB, customerID uint) (*CustomerProfile, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*CustomerProfile, error)
	Save(ctx context.Context, tx *gorm.DB, profile *CustomerProfile) error
	ReplaceAddresses(ctx context.Context, tx *gorm.DB, customerID uint, addresses []CustomerAddress) error
	Delete(ctx context.Context, tx *gorm.DB, profile *CustomerProfile) error
	AssignSegment(ctx context.Context, tx *gorm.DB, customerID uint, segment string) (*CustomerSegment, error)
	RemoveSegments(ctx context.Context, tx *gorm.DB, customerID uint) error
}

type customerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	repoLog := baseLog.With("repo", "CustomerRepo")
	return &customerRepo{db: db, log: repoLog}
}

func (cr *customerRepo) Create(ctx context.Context, tx *gorm.DB, profile *CustomerProfile) (*CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (cr *customerRepo) GetByID(ctx context.Context, tx *gorm.DB, customerID uint) (*CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result CustomerProfile
	if err := transaction.WithContext(ctx).
		Preload("Addresses").
		Preload("Segments").
		Where("id = ?", customerID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *customerRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*CustomerProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var result CustomerProfile
	if err := transaction.WithContext(ctx).
		Where("email = ?", email).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *customerRepo) Save(ctx context.Context, tx *gorm.DB, profile *CustomerProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Omit("Addresses", "Segments").
		Save(profile).Error
}

func (cr *customerRepo) ReplaceAddresses(ctx context.Context, tx *gorm.DB, customerID uint, addresses []CustomerAddress) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&CustomerAddress{}).Error; err != nil {
		return err
	}
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		addresses[i].CustomerID = customerID
	}
	return transaction.WithContext(ctx).Create(&addresses).Error
}

func (cr *customerRepo) Delete(ctx context.Context, tx *gorm.DB, profile *CustomerProfile) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", profile.ID).
		Delete(&CustomerAddress{}).Error; err != nil {
		return err
	}
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", profile.ID).
		Delete(&CustomerSegment{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).Delete(profile).Error
}

func (cr *customerRepo) AssignSegment(ctx context.Context, tx *gorm.DB, customerID uint, segment string) (*CustomerSegment, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	assignment := &CustomerSegment{
		CustomerID: customerID,
		Segment:    segment,
		AssignedAt: time.Now().UTC(),
	}
	if err := transaction.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (cr *customerRepo) RemoveSegments(ctx context.Context, tx *gorm.DB, customerID uint) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&CustomerSegment{}).Error
}
