package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Student represents one student record. Exactly one owning User (1:1)
// and at most one Consultancy; ConsultancyID is nullable only to support
// the delete-tenant-keep-students path, after which the student awaits
// reassignment.
type Student struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	UserID        uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	ConsultancyID *uuid.UUID `json:"consultancy_id" gorm:"type:uuid;index"`

	PRN      string `json:"prn" gorm:"uniqueIndex;not null"`
	FullName string `json:"full_name" gorm:"not null"`
	Branch   string `json:"branch" gorm:"not null"`
	Email    string `json:"email" gorm:"not null"`
	Phone    string `json:"phone"`

	TotalFees float64 `json:"total_fees" gorm:"default:0"`
	FeesPaid  float64 `json:"fees_paid" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User         *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Consultancy  *Consultancy  `json:"consultancy,omitempty" gorm:"foreignKey:ConsultancyID"`
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:StudentID"`
}

// TableName returns the table name for the Student model
func (Student) TableName() string {
	return "students"
}

// BeforeCreate assigns a uuid primary key when none is set.
func (s *Student) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// FeesPending is always derived, never stored. An admin may set total
// fees below the amount already paid, in which case the pending value
// goes negative and is displayed as-is.
func (s *Student) FeesPending() float64 {
	return s.TotalFees - s.FeesPaid
}

// HostelCode returns the hostel code of the owning consultancy, or ""
// while the student is detached.
func (s *Student) HostelCode() string {
	if s.Consultancy == nil {
		return ""
	}
	return s.Consultancy.HostelCode
}

// HostelName returns the hostel name of the owning consultancy, or ""
// while the student is detached.
func (s *Student) HostelName() string {
	if s.Consultancy == nil {
		return ""
	}
	return s.Consultancy.HostelName()
}
