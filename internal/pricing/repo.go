package pricing

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type ListRulesFilter struct {
	SKU         string
	Region      string
	ActiveOnly  bool
	EffectiveAt *time.Time
	Limit       int
	Offset      int
}

type PricingRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rule *PriceRule) (*PriceRule, error)
	GetByID(ctx context.Context, tx *gorm.DB, ruleID uint) (*PriceRule, error)
	FindWindow(ctx context.Context, tx *gorm.DB, sku string, region *string, startAt time.Time) (*PriceRule, error)
	List(ctx context.Context, tx *gorm.DB, filter ListRulesFilter) ([]*PriceRule, int64, error)
	Save(ctx context.Context, tx *gorm.DB, rule *PriceRule) (*PriceRule, error)
	Delete(ctx context.Context, tx *gorm.DB, rule *PriceRule) error
	Resolve(ctx context.Context, tx *gorm.DB, sku string, region *string, effectiveAt time.Time) (*PriceRule, error)
}

type pricingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPricingRepo(db *gorm.DB, baseLog *logger.Logger) PricingRepo {
	repoLog := baseLog.With("repo", "PricingRepo")
	return &pricingRepo{db: db, log: repoLog}
}

func (pr *pricingRepo) Create(ctx context.Context, tx *gorm.DB, rule *PriceRule) (*PriceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func (pr *pricingRepo) GetByID(ctx context.Context, tx *gorm.DB, ruleID uint) (*PriceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result PriceRule
	if err := transaction.WithContext(ctx).
		Where("id = ?", ruleID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *pricingRepo) FindWindow(ctx context.Context, tx *gorm.DB, sku string, region *string, startAt time.Time) (*PriceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	query := transaction.WithContext(ctx).
		Where("sku = ?", sku).
		Where("start_at = ?", startAt)
	if region == nil {
		query = query.Where("region IS NULL")
	} else {
		query = query.Where("region = ?", *region)
	}
	var result PriceRule
	if err := query.First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *pricingRepo) List(ctx context.Context, tx *gorm.DB, filter ListRulesFilter) ([]*PriceRule, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	query := transaction.WithContext(ctx).Model(&PriceRule{})
	if filter.SKU != "" {
		query = query.Where("sku = ?", filter.SKU)
	}
	if filter.Region != "" {
		query = query.Where("region = ? OR region IS NULL", filter.Region)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.EffectiveAt != nil {
		query = query.
			Where("start_at <= ?", *filter.EffectiveAt).
			Where("end_at IS NULL OR end_at >= ?", *filter.EffectiveAt)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []*PriceRule
	if err := query.
		Order("priority ASC").
		Order("start_at DESC").
		Order("id ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (pr *pricingRepo) Save(ctx context.Context, tx *gorm.DB, rule *PriceRule) (*PriceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func (pr *pricingRepo) Delete(ctx context.Context, tx *gorm.DB, rule *PriceRule) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).Delete(rule).Error
}

// Resolve picks the winning rule for a SKU: lowest priority value first,
// then region-specific rules over global ones, then the most recent
// window.
func (pr *pricingRepo) Resolve(ctx context.Context, tx *gorm.DB, sku string, region *string, effectiveAt time.Time) (*PriceRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	query := transaction.WithContext(ctx).
		Where("sku = ?", sku).
		Where("is_active = ?", true).
		Where("start_at <= ?", effectiveAt).
		Where("end_at IS NULL OR end_at >= ?", effectiveAt)
	if region == nil {
		query = query.Where("region IS NULL")
	} else {
		query = query.Where("region = ? OR region IS NULL", *region)
	}

	var result PriceRule
	if err := query.
		Order("priority ASC").
		Order("region IS NULL ASC").
		Order("start_at DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
