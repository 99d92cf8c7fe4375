package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangeAction is the kind of mutation an audit entry records.
type ChangeAction string

const (
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ChangeLog is the append-only audit trail. Entries are written as a side
// effect of every student mutation and deletion and are never updated or
// deleted themselves. The record id is kept even after the target row is
// gone, so deletions stay traceable by their historical id.
type ChangeLog struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	UserID   uuid.UUID    `json:"user_id" gorm:"type:uuid;not null;index"`
	UserRole UserRole     `json:"user_role" gorm:"type:varchar(20);not null"`
	Action   ChangeAction `json:"action" gorm:"type:varchar(20);not null"`
	Table    string       `json:"table_name" gorm:"column:table_name;not null"`
	RecordID uuid.UUID    `json:"record_id" gorm:"type:uuid;not null"`

	// JSON-serialized diff of the change.
	Changes string `json:"changes" gorm:"type:text"`

	Timestamp time.Time `json:"timestamp"`
}

// TableName returns the table name for the ChangeLog model
func (ChangeLog) TableName() string {
	return "change_logs"
}

// BeforeCreate assigns a uuid primary key when none is set.
func (l *ChangeLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now().UTC()
	}
	return nil
}
