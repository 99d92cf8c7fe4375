package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Announcement is a broadcast message shown on every dashboard and on the
// public endpoint. Decoupled from the fee ledger.
type Announcement struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	CreatedBy *uuid.UUID `json:"created_by" gorm:"type:uuid"`
	IsActive  bool       `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName returns the table name for the Announcement model
func (Announcement) TableName() string {
	return "announcements"
}

// BeforeCreate assigns a uuid primary key when none is set.
func (a *Announcement) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
