package customer

import (
	"time"
)

type CustomerProfile struct {
	ID                uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	Email             string            `gorm:"size:255;uniqueIndex;not null" json:"email"`
	FullName          string            `gorm:"column:full_name;size:255;not null" json:"full_name"`
	PhoneNumber       *string           `gorm:"column:phone_number;size:32" json:"phone_number"`
	PreferredLanguage *string           `gorm:"column:preferred_language;size:8" json:"preferred_language"`
	Addresses         []CustomerAddress `gorm:"constraint:OnDelete:CASCADE;foreignKey:CustomerID;references:ID" json:"addresses"`
	Segments          []CustomerSegment `gorm:"constraint:OnDelete:CASCADE;foreignKey:CustomerID;references:ID" json:"segments"`
	CreatedAt         time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null" json:"updated_at"`
}

func (CustomerProfile) TableName() string { return "customer_profiles" }

type CustomerAddress struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID uint      `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Label      *string   `gorm:"size:64" json:"label"`
	Line1      string    `gorm:"size:255;not null" json:"line1"`
	Line2      *string   `gorm:"size:255" json:"line2"`
	City       string    `gorm:"size:128;not null" json:"city"`
	State      *string   `gorm:"size:128" json:"state"`
	PostalCode *string   `gorm:"column:postal_code;size:32" json:"postal_code"`
	Country    string    `gorm:"size:2;not null" json:"country"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (CustomerAddress) TableName() string { return "customer_addresses" }

type CustomerSegment struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID uint      `gorm:"column:customer_id;not null;index" json:"customer_id"`
	Segment    string    `gorm:"size:64;not null" json:"segment"`
	AssignedAt time.Time `gorm:"column:assigned_at;not null" json:"assigned_at"`
}

func (CustomerSegment) TableName() string { return "customer_segments" }

type AddressInput struct {
	Label      *string `json:"label"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2"`
	City       string  `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postalCode"`
	Country    string  `json:"country"`
}

type CreateCustomerRequest struct {
	Email             string         `json:"email"`
	FullName          string         `json:"fullName"`
	PhoneNumber       *string        `json:"phoneNumber"`
	PreferredLanguage *string        `json:"preferredLanguage"`
	Addresses         []AddressInput `json:"addresses"`
}

type UpdateCustomerRequest struct {
	FullName          *string         `json:"fullName"`
	PhoneNumber       *string         `json:"phoneNumber"`
	PreferredLanguage *string         `json:"preferredLanguage"`
	Addresses         *[]AddressInput `json:"addresses"`
}

type SegmentAssignment struct {
	Segment string `json:"segment"`
}

type AddressView struct {
	ID         uint    `json:"id"`
	Label      *string `json:"label"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2"`
	City       string  `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postalCode"`
	Country    string  `json:"country"`
}

type CustomerView struct {
	ID                uint          `json:"id"`
	Email             string        `json:"email"`
	FullName          string        `json:"fullName"`
	PhoneNumber       *string       `json:"phoneNumber"`
	PreferredLanguage *string       `json:"preferredLanguage"`
	Addresses         []AddressView `json:"addresses"`
	Segments          []string      `json:"segments"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

type SegmentView struct {
	CustomerID uint      `json:"customerId"`
	Segment    string    `json:"segment"`
	AssignedAt time.Time `json:"assignedAt"`
}

func NewCustomerView(p *CustomerProfile) CustomerView {
	addresses := make([]AddressView, 0, len(p.Addresses))
	for _, a := range p.Addresses {
		addresses = append(addresses, AddressView{
			ID:         a.ID,
			Label:      a.Label,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
		})
	}
	segments := make([]string, 0, len(p.Segments))
	for _, s := range p.Segments {
		segments = append(segments, s.Segment)
	}
	return CustomerView{
		ID:                p.ID,
		Email:             p.Email,
		FullName:          p.FullName,
		PhoneNumber:       p.PhoneNumber,
		PreferredLanguage: p.PreferredLanguage,
		Addresses:         addresses,
		Segments:          segments,
		CreatedAt:         p.CreatedAt.UTC(),
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}
