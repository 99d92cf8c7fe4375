package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/hostels"
)

// Consultancy represents one hostel tenant. It is the isolation boundary
// for students and agent staff: every student and agent belongs to exactly
// one consultancy, and nothing is shared-mutable across consultancies.
type Consultancy struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	// Hostel identity. HostelCode comes from the fixed vocabulary in
	// shared/hostels; at most one active consultancy may hold a code.
	Name       string `json:"name" gorm:"uniqueIndex;not null"`
	HostelCode string `json:"hostel_code" gorm:"uniqueIndex;not null"`

	ContactPerson string `json:"contact_person" gorm:"not null"`
	Email         string `json:"email" gorm:"uniqueIndex;not null"`
	Phone         string `json:"phone" gorm:"not null"`
	Address       string `json:"address"`

	// Optional per-tenant payment gateway credentials. When empty the
	// system default key pair is used.
	PaymentGatewayID  string `json:"payment_gateway_id"`
	PaymentGatewayKey string `json:"-"`

	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Agents   []User    `json:"agents,omitempty" gorm:"foreignKey:ConsultancyID"`
	Students []Student `json:"students,omitempty" gorm:"foreignKey:ConsultancyID"`
}

// TableName returns the table name for the Consultancy model
func (Consultancy) TableName() string {
	return "consultancies"
}

// HostelName resolves the display name for the consultancy's hostel code
// from the fixed vocabulary.
func (c *Consultancy) HostelName() string {
	return hostels.Name(c.HostelCode)
}

// BeforeCreate assigns a uuid primary key when none is set.
func (c *Consultancy) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
