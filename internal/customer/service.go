package customer

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

type Service interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerView, error)
	GetCustomer(ctx context.Context, customerID uint) (*CustomerView, error)
	UpdateCustomer(ctx context.Context, customerID uint, req UpdateCustomerRequest) (*CustomerView, error)
	DeleteCustomer(ctx context.Context, customerID uint) error
	AssignSegment(ctx context.Context, customerID uint, req SegmentAssignment) (*SegmentView, error)
	ClearSegments(ctx context.Context, customerID uint) error
}

type service struct {
	db   *gorm.DB
	log  *logger.Logger
	repo CustomerRepo
}

func NewService(db *gorm.DB, baseLog *logger.Logger, repo CustomerRepo) Service {
	return &service{
		db:   db,
		log:  baseLog.With("service", "CustomerService"),
		repo: repo,
	}
}

func buildAddresses(inputs []AddressInput) ([]CustomerAddress, error) {
	addresses := make([]CustomerAddress, 0, len(inputs))
	for _, in := range inputs {
		line1 := strings.TrimSpace(in.Line1)
		city := strings.TrimSpace(in.City)
		country := strings.ToUpper(strings.TrimSpace(in.Country))
		if line1 == "" || city == "" {
			return nil, errors.New("address line1 and city must be non-empty")
		}
		if len(country) != 2 {
			return nil, errors.New("country must be a 2-letter code")
		}
		addresses = append(addresses, CustomerAddress{
			Label:      in.Label,
			Line1:      line1,
			Line2:      in.Line2,
			City:       city,
			State:      in.State,
			PostalCode: in.PostalCode,
			Country:    country,
		})
	}
	return addresses, nil
}

func (s *service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*CustomerView, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	fullName := strings.TrimSpace(req.FullName)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apierr.BadRequest("validation_error", errors.New("email must be valid"))
	}
	if fullName == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("fullName must be non-empty"))
	}
	addresses, err := buildAddresses(req.Addresses)
	if err != nil {
		return nil, apierr.BadRequest("validation_error", err)
	}

	if _, err := s.repo.GetByEmail(ctx, nil, email); err == nil {
		return nil, apierr.Conflict("email_exists", errors.New("Email already registered"))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile := &CustomerProfile{
		Email:             email,
		FullName:          fullName,
		PhoneNumber:       req.PhoneNumber,
		PreferredLanguage: req.PreferredLanguage,
		Addresses:         addresses,
	}
	created, err := s.repo.Create(ctx, nil, profile)
	if err != nil {
		return nil, err
	}
	s.log.Info("customer created", "customer_id", created.ID)
	return s.viewByID(ctx, created.ID)
}

func (s *service) GetCustomer(ctx context.Context, customerID uint) (*CustomerView, error) {
	return s.viewByID(ctx, customerID)
}

func (s *service) UpdateCustomer(ctx context.Context, customerID uint, req UpdateCustomerRequest) (*CustomerView, error) {
	profile, err := s.requireCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		fullName := strings.TrimSpace(*req.FullName)
		if fullName == "" {
			return nil, apierr.BadRequest("validation_error", errors.New("fullName must be non-empty"))
		}
		profile.FullName = fullName
	}
	if req.PhoneNumber != nil {
		profile.PhoneNumber = req.PhoneNumber
	}
	if req.PreferredLanguage != nil {
		profile.PreferredLanguage = req.PreferredLanguage
	}

	var replacement []CustomerAddress
	if req.Addresses != nil {
		replacement, err = buildAddresses(*req.Addresses)
		if err != nil {
			return nil, apierr.BadRequest("validation_error", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Save(ctx, tx, profile); err != nil {
			return err
		}
		if req.Addresses != nil {
			return s.repo.ReplaceAddresses(ctx, tx, profile.ID, replacement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.viewByID(ctx, customerID)
}

func (s *service) DeleteCustomer(ctx context.Context, customerID uint) error {
	profile, err := s.requireCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, nil, profile); err != nil {
		return err
	}
	s.log.Info("customer deleted", "customer_id", customerID)
	return nil
}

func (s *service) AssignSegment(ctx context.Context, customerID uint, req SegmentAssignment) (*SegmentView, error) {
	segment := strings.TrimSpace(req.Segment)
	if segment == "" {
		return nil, apierr.BadRequest("validation_error", errors.New("segment must be non-empty"))
	}
	profile, err := s.requireCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.repo.AssignSegment(ctx, nil, profile.ID, segment)
	if err != nil {
		return nil, err
	}
	return &SegmentView{
		CustomerID: assigned.CustomerID,
		Segment:    assigned.Segment,
		AssignedAt: assigned.AssignedAt.UTC(),
	}, nil
}

func (s *service) ClearSegments(ctx context.Context, customerID uint) error {
	profile, err := s.requireCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	return s.repo.RemoveSegments(ctx, nil, profile.ID)
}

func (s *service) requireCustomer(ctx context.Context, customerID uint) (*CustomerProfile, error) {
	profile, err := s.repo.GetByID(ctx, nil, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("customer_not_found", errors.New("Customer not found"))
		}
		return nil, err
	}
	return profile, nil
}

func (s *service) viewByID(ctx context.Context, customerID uint) (*CustomerView, error) {
	profile, err := s.requireCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	view := NewCustomerView(profile)
	return &view, nil
}
