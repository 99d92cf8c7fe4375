package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

func TestImport_IndependentRows(t *testing.T) {
	db := newTestDB(t)
	importer := NewImporter(db, NewStudentLedger(db, NewAuditor(db)))

	rows := []ImportRow{
		{Row: 2, PRN: "IMP001", Name: "First", Branch: "CS", Phone: "9000000001", HostelCode: "B1", TotalFees: 50000},
		{Row: 3, PRN: "IMP002", Name: "Second", Branch: "CS", Phone: "9000000002", HostelCode: "B1", TotalFees: 50000},
		// Paid above total fails this row only.
		{Row: 4, PRN: "IMP003", Name: "Third", Branch: "CS", Phone: "9000000003", HostelCode: "B1", TotalFees: 10000, FeesPaid: 20000},
		{Row: 5, PRN: "IMP004", Name: "Fourth", Branch: "CS", Phone: "9000000004", HostelCode: "G1", TotalFees: 40000},
	}

	result := importer.Import(rows)

	assert.Equal(t, 3, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)
	assert.Len(t, result.Credentials, 3)
	assert.Equal(t, "IMP001", result.Credentials[0].Username)
	assert.Equal(t, "9000000001", result.Credentials[0].Password)

	assert.EqualValues(t, 3, countRows(t, db, &models.Student{}))
}

func TestImport_InvalidHostelCodeFailsRow(t *testing.T) {
	db := newTestDB(t)
	importer := NewImporter(db, NewStudentLedger(db, NewAuditor(db)))

	result := importer.Import([]ImportRow{
		{Row: 2, PRN: "IMP010", Name: "Lost", Phone: "9000000010", HostelCode: "Z9", TotalFees: 1000},
	})

	assert.Equal(t, 0, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Reason, "invalid hostel code")
	assert.EqualValues(t, 0, countRows(t, db, &models.Consultancy{}))
}

func TestImport_AutoCreatesConsultancyOnce(t *testing.T) {
	db := newTestDB(t)
	importer := NewImporter(db, NewStudentLedger(db, NewAuditor(db)))

	result := importer.Import([]ImportRow{
		{Row: 2, PRN: "IMP020", Name: "A", Phone: "9000000020", HostelCode: "b2", TotalFees: 1000},
		{Row: 3, PRN: "IMP021", Name: "B", Phone: "9000000021", HostelCode: "B2", TotalFees: 1000},
	})
	assert.Equal(t, 2, result.Success)

	var consultancies []models.Consultancy
	require.NoError(t, db.Find(&consultancies).Error)
	require.Len(t, consultancies, 1)
	assert.Equal(t, "B2", consultancies[0].HostelCode)
	assert.Equal(t, "Boys Hostel 2", consultancies[0].Name)
	assert.Equal(t, "Auto Imported", consultancies[0].ContactPerson)
	assert.True(t, consultancies[0].IsActive)
}

func TestImport_AutoCreatedConsultancySurvivesRowFailure(t *testing.T) {
	db := newTestDB(t)
	importer := NewImporter(db, NewStudentLedger(db, NewAuditor(db)))

	result := importer.Import([]ImportRow{
		// The hostel did not exist; the row fails after auto-creation.
		{Row: 2, PRN: "IMP030", Name: "Bad", Phone: "9000000030", HostelCode: "B3", TotalFees: 100, FeesPaid: 200},
	})
	assert.Equal(t, 1, result.Failed)

	// The tenant itself is valid and stays for subsequent imports.
	assert.EqualValues(t, 1, countRows(t, db, &models.Consultancy{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.Student{}))
}

func TestImport_DuplicatePRNAcrossRows(t *testing.T) {
	db := newTestDB(t)
	importer := NewImporter(db, NewStudentLedger(db, NewAuditor(db)))

	result := importer.Import([]ImportRow{
		{Row: 2, PRN: "IMP040", Name: "First", Phone: "9000000040", HostelCode: "B4", TotalFees: 1000},
		{Row: 3, PRN: "IMP040", Name: "Twin", Phone: "9000000041", HostelCode: "B4", TotalFees: 1000},
	})

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Reason, "already exists")
}
