package ledger

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

// newTestDB opens a private in-memory database with the full schema.
// TranslateError is on, same as production, so uniqueness violations
// surface as gorm.ErrDuplicatedKey.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.MigrateAll(db))
	return db
}

func testActor() Actor {
	return Actor{ID: uuid.New(), Role: models.RoleAdmin}
}

// createHostel registers an active consultancy under code, with one
// agent identity.
func createHostel(t *testing.T, db *gorm.DB, code string) *models.Consultancy {
	t.Helper()

	registry := NewRegistry(db)
	consultancy, err := registry.CreateOrReactivate(CreateConsultancyInput{
		HostelCode:    code,
		ContactPerson: "Warden " + code,
		Email:         code + "@hostel.test",
		Phone:         "9000000000",
		Address:       "Campus",
		AgentUsername: "agent_" + code,
		AgentPassword: "secret123",
	})
	require.NoError(t, err)
	return consultancy
}

// createStudent enrolls a student under the consultancy with sensible
// defaults.
func createStudent(t *testing.T, db *gorm.DB, consultancyID uuid.UUID, prn string, total, paid float64) *models.Student {
	t.Helper()

	students := NewStudentLedger(db, NewAuditor(db))
	student, _, err := students.CreateStudent(CreateStudentInput{
		ConsultancyID: consultancyID,
		PRN:           prn,
		FullName:      "Student " + prn,
		Branch:        "CS",
		Email:         prn + "@students.test",
		Phone:         "8000000000",
		TotalFees:     total,
		FeesPaid:      paid,
	})
	require.NoError(t, err)
	return student
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
