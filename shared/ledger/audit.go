// Package ledger is the tenant-scoped fee ledger core: the consultancy
// registry, the student balance ledger, the transaction recorder and the
// bulk importer. Every multi-step mutation runs inside a single database
// transaction; audit logging is the one best-effort side effect.
package ledger

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

// Actor identifies who performed a mutation, for audit entries.
type Actor struct {
	ID   uuid.UUID
	Role models.UserRole
}

// Auditor is the single shared audit-append capability. All mutating
// operations go through it rather than keeping per-caller copies of the
// logging logic.
type Auditor struct {
	db *gorm.DB
}

// NewAuditor creates an Auditor over db.
func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{db: db}
}

// Record appends one audit entry. Failures are logged and swallowed: a
// lost audit entry must never roll back or fail the primary mutation.
func (a *Auditor) Record(actor Actor, action models.ChangeAction, table string, recordID uuid.UUID, changes interface{}) {
	payload, err := json.Marshal(changes)
	if err != nil {
		logrus.WithError(err).Warn("audit: failed to serialize changes")
		payload = []byte("{}")
	}

	entry := models.ChangeLog{
		UserID:   actor.ID,
		UserRole: actor.Role,
		Action:   action,
		Table:    table,
		RecordID: recordID,
		Changes:  string(payload),
	}

	if err := a.db.Create(&entry).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"table":     table,
			"record_id": recordID,
			"action":    action,
		}).Warn("audit: failed to write change log entry")
	}
}
