package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
	"github.com/shopforge/commerce-backend/internal/platform/money"
)

type Service interface {
	CreateRule(ctx context.Context, req CreateRuleRequest) (*RuleView, error)
	GetRule(ctx context.Context, ruleID uint) (*RuleView, error)
	ListRules(ctx context.Context, filter ListRulesFilter) ([]RuleView, int64, error)
	UpdateRule(ctx context.Context, ruleID uint, req UpdateRuleRequest) (*RuleView, error)
	DeleteRule(ctx context.Context, ruleID uint) error
	ResolvePrice(ctx context.Context, sku, region string, effectiveAt *time.Time) (*ResolutionView, error)
}

type service struct {
	db      *gorm.DB
	log     *logger.Logger
	repo    PricingRepo
	metrics *observability.Metrics
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo PricingRepo, metrics *observability.Metrics) Service {
	return &service{
		db:      db,
		log:     baseLog.With("service", "PricingService"),
		repo:    repo,
		metrics: metrics,
	}
}

func (s *service) CreateRule(ctx context.Context, req CreateRuleRequest) (*RuleView, error) {
	sku := strings.TrimSpace(req.SKU)
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if sku == "" || len(sku) > 64 {
		return nil, apierr.BadRequest("validation_error", errors.New("sku must be non-empty"))
	}
	if len(currency) != 3 {
		return nil, apierr.BadRequest("validation_error", errors.New("currency must be a 3-letter code"))
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.BadRequest("validation_error", errors.New("price must be positive"))
	}
	priority := 100
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < 0 || priority > 1000 {
		return nil, apierr.BadRequest("validation_error", errors.New("priority must be between 0 and 1000"))
	}
	region := normalizeRegion(req.Region)

	startAt := time.Now().UTC()
	if req.StartAt != nil {
		startAt = req.StartAt.UTC()
	}
	if req.EndAt != nil && req.EndAt.Before(startAt) {
		return nil, apierr.BadRequest("validation_error", errors.New("endAt must be after startAt"))
	}

	if _, err := s.repo.FindWindow(ctx, nil, sku, region, startAt); err == nil {
		return nil, apierr.Conflict("rule_exists", errors.New("Price rule already exists"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	rule := &PriceRule{
		SKU:        sku,
		Region:     region,
		Currency:   currency,
		PriceCents: money.DecimalToCents(req.Price),
		Priority:   priority,
		StartAt:    startAt,
		EndAt:      req.EndAt,
		IsActive:   isActive,
	}
	created, err := s.repo.Create(ctx, nil, rule)
	if err != nil {
		return nil, err
	}
	s.log.Info("price rule created", "rule_id", created.ID, "sku", created.SKU)
	view := NewRuleView(created)
	return &view, nil
}

func (s *service) GetRule(ctx context.Context, ruleID uint) (*RuleView, error) {
	rule, err := s.requireRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	view := NewRuleView(rule)
	return &view, nil
}

func (s *service) ListRules(ctx context.Context, filter ListRulesFilter) ([]RuleView, int64, error) {
	filter.SKU = strings.TrimSpace(filter.SKU)
	filter.Region = strings.ToLower(strings.TrimSpace(filter.Region))
	rules, total, err := s.repo.List(ctx, nil, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]RuleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, NewRuleView(rule))
	}
	return views, total, nil
}

func (s *service) UpdateRule(ctx context.Context, ruleID uint, req UpdateRuleRequest) (*RuleView, error) {
	rule, err := s.requireRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	if req.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(currency) != 3 {
			return nil, apierr.BadRequest("validation_error", errors.New("currency must be a 3-letter code"))
		}
		rule.Currency = currency
	}
	if req.Price != nil {
		if req.Price.LessThanOrEqual(decimal.Zero) {
			return nil, apierr.BadRequest("validation_error", errors.New("price must be positive"))
		}
		rule.PriceCents = money.DecimalToCents(*req.Price)
	}
	if req.Priority != nil {
		if *req.Priority < 0 || *req.Priority > 1000 {
			return nil, apierr.BadRequest("validation_error", errors.New("priority must be between 0 and 1000"))
		}
		rule.Priority = *req.Priority
	}
	if req.StartAt != nil {
		startAt := req.StartAt.UTC()
		if existing, err := s.repo.FindWindow(ctx, nil, rule.SKU, rule.Region, startAt); err == nil && existing.ID != rule.ID {
			return nil, apierr.Conflict("rule_exists", errors.New("Price rule already exists"))
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		rule.StartAt = startAt
	}
	if req.EndAt != nil {
		rule.EndAt = req.EndAt
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if rule.EndAt != nil && rule.EndAt.Before(rule.StartAt) {
		return nil, apierr.BadRequest("validation_error", errors.New("endAt must be after startAt"))
	}

	updated, err := s.repo.Save(ctx, nil, rule)
	if err != nil {
		return nil, err
	}
	view := NewRuleView(updated)
	return &view, nil
}

func (s *service) DeleteRule(ctx context.Context, ruleID uint) error {
	rule, err := s.requireRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, nil, rule); err != nil {
		return err
	}
	s.log.Info("price rule deleted", "rule_id", ruleID, "sku", rule.SKU)
	return nil
}

func (s *service) ResolvePrice(ctx context.Context, sku, region string, effectiveAt *time.Time) (*ResolutionView, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("sku must be non-empty"))
	}
	var regionPtr *string
	if cleaned := strings.ToLower(strings.TrimSpace(region)); cleaned != "" {
		regionPtr = &cleaned
	}
	timestamp := time.Now().UTC()
	if effectiveAt != nil {
		timestamp = effectiveAt.UTC()
	}

	rule, err := s.repo.Resolve(ctx, nil, sku, regionPtr, timestamp)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.IncPriceResolution("miss")
			return nil, apierr.NotFound("rule_not_found", errors.New("Price rule not found"))
		}
		return nil, err
	}
	s.metrics.IncPriceResolution("hit")

	view := NewRuleView(rule)
	return &ResolutionView{Rule: view, Price: view.Price}, nil
}

func (s *service) requireRule(ctx context.Context, ruleID uint) (*PriceRule, error) {
	rule, err := s.repo.GetByID(ctx, nil, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("rule_not_found", errors.New("Price rule not found"))
		}
		return nil, err
	}
	return rule, nil
}

func normalizeRegion(region *string) *string {
	if region == nil {
		return nil
	}
	cleaned := strings.ToLower(strings.TrimSpace(*region))
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
