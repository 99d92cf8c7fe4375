package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole determines which operations an identity is authorized to call.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleAgent   UserRole = "agent"
	RoleStudent UserRole = "student"
)

// User represents a login identity. Agents and students are scoped to a
// consultancy; admins have no tenant affiliation.
type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username string    `json:"username" gorm:"uniqueIndex;not null"`
	Password string    `json:"-" gorm:"not null"` // bcrypt hash
	Email    string    `json:"email" gorm:"uniqueIndex;not null"`
	Role     UserRole  `json:"role" gorm:"type:varchar(20);not null"`

	// Tenant affiliation, required for agent and student roles.
	ConsultancyID *uuid.UUID `json:"consultancy_id" gorm:"type:uuid;index"`

	// Password reset OTP. A single outstanding code per identity; a new
	// request overwrites the previous one.
	ResetOTP       *string    `json:"-" gorm:"type:varchar(6)"`
	ResetOTPExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Consultancy *Consultancy `json:"consultancy,omitempty" gorm:"foreignKey:ConsultancyID"`
	StudentData *Student     `json:"student_data,omitempty" gorm:"foreignKey:UserID"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a uuid primary key when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the identity is a platform administrator.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BelongsTo reports whether the identity is affiliated with the given
// consultancy. Admins belong to every tenant.
func (u *User) BelongsTo(consultancyID uuid.UUID) bool {
	if u.IsAdmin() {
		return true
	}
	return u.ConsultancyID != nil && *u.ConsultancyID == consultancyID
}
