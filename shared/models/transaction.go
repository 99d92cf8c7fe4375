package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionStatus represents the state of a payment attempt.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is one recorded payment. Rows are immutable once created:
// there is no update path, and a completed transaction's amount has been
// added to its student's fees_paid in the same database transaction that
// inserted the row.
type Transaction struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	// Externally visible id, generated from timestamp plus random suffix.
	// The unique index makes any generator collision surface as a
	// conflict instead of a silent overwrite.
	TransactionID string `json:"transaction_id" gorm:"uniqueIndex;not null"`

	StudentID     uuid.UUID `json:"student_id" gorm:"type:uuid;not null;index"`
	ConsultancyID uuid.UUID `json:"consultancy_id" gorm:"type:uuid;not null;index"`

	Amount        float64           `json:"amount" gorm:"not null"` // major currency units
	PaymentMethod string            `json:"payment_method"`
	Status        TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`

	// Opaque gateway payload retained for dispute resolution.
	GatewayResponse string `json:"gateway_response,omitempty" gorm:"type:text"`

	PaymentDate time.Time `json:"payment_date"`
	CreatedAt   time.Time `json:"created_at"`

	// Relationships
	Student *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// TableName returns the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate assigns a uuid primary key when none is set.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
