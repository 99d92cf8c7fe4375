package tabular

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

// buildSheet writes rows into an in-memory spreadsheet and returns it as
// a reader, the way an uploaded file arrives.
func buildSheet(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", start, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func importHeader() []interface{} {
	return []interface{}{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code", "Total_Fees", "Fees_Paid"}
}

func TestParseStudents_ReadsRows(t *testing.T) {
	r := buildSheet(t, [][]interface{}{
		importHeader(),
		{"PRN600", "Asha Rao", "ECE", "asha@students.test", "9876543210", "B1", 60000, 10000},
		{"PRN601", "Vikram N", "CS", "vikram@students.test", "9876543211", "G1", 50000, ""},
	})

	rows, rowErrors, err := ParseStudents(r)
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "PRN600", rows[0].PRN)
	assert.Equal(t, "B1", rows[0].HostelCode)
	assert.Equal(t, 60000.0, rows[0].TotalFees)
	assert.Equal(t, 10000.0, rows[0].FeesPaid)

	// Fees_Paid left blank defaults to zero.
	assert.Equal(t, 3, rows[1].Row)
	assert.Equal(t, 0.0, rows[1].FeesPaid)
}

func TestParseStudents_MissingRequiredColumnFailsFile(t *testing.T) {
	r := buildSheet(t, [][]interface{}{
		{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code"}, // no Total_Fees
		{"PRN602", "Nobody", "CS", "n@students.test", "9876543212", "B1"},
	})

	_, _, err := ParseStudents(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "Total_Fees")
}

func TestParseStudents_ExportLabelsAreNotImportLabels(t *testing.T) {
	// An exported file uses spaced labels and is deliberately not a valid
	// import.
	r := buildSheet(t, [][]interface{}{
		{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code", "Total Fees", "Fees Paid", "Fees Pending"},
		{"PRN603", "Round Trip", "CS", "rt@students.test", "9876543213", "B1", 50000, 0, 50000},
	})

	_, _, err := ParseStudents(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestParseStudents_BadNumericCellFailsOwnRowOnly(t *testing.T) {
	r := buildSheet(t, [][]interface{}{
		importHeader(),
		{"PRN604", "Good", "CS", "g@students.test", "9876543214", "B1", 50000, 0},
		{"PRN605", "Bad", "CS", "b@students.test", "9876543215", "B1", "not-a-number", 0},
		{"PRN606", "AlsoGood", "CS", "ag@students.test", "9876543216", "B1", 40000, 0},
	})

	rows, rowErrors, err := ParseStudents(r)
	require.NoError(t, err)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 3, rowErrors[0].Row)
	assert.Contains(t, rowErrors[0].Reason, "Total_Fees")
	assert.Len(t, rows, 2)
}

func TestParseStudents_EmptyFileRejected(t *testing.T) {
	_, _, err := ParseStudents(bytes.NewReader([]byte("not a spreadsheet")))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSampleTemplate_Headers(t *testing.T) {
	f, err := SampleTemplate()
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code", "Total_Fees", "Fees_Paid", "Pending_Fee"}, rows[0])
}

func TestExportStudents_LabelsAndDerivedColumns(t *testing.T) {
	consultancy := &models.Consultancy{HostelCode: "B1", Name: "Boys Hostel 1"}
	students := []models.Student{
		{
			PRN: "PRN607", FullName: "Asha Rao", Branch: "ECE",
			Email: "asha@students.test", Phone: "9876543210",
			TotalFees: 60000, FeesPaid: 10000,
			Consultancy: consultancy,
		},
		{
			PRN: "PRN608", FullName: "Detached", Branch: "CS",
			TotalFees: 10000, FeesPaid: 10000,
		},
	}

	f, err := ExportStudents(students)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code", "Total Fees", "Fees Paid", "Fees Pending"}, rows[0])

	// Hostel cell renders "CODE - Name"; pending is derived.
	assert.Equal(t, "B1 - Boys Hostel 1", rows[1][5])
	assert.Equal(t, "50000", rows[1][8])
	// A detached student has no hostel cell.
	assert.Equal(t, "0", rows[2][8])
}

func TestExportTransactions_SortedByStudentName(t *testing.T) {
	when := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	txns := []models.Transaction{
		{
			TransactionID: "TXN2", Amount: 2000, Status: models.TransactionCompleted,
			PaymentDate: when,
			Student:     &models.Student{FullName: "Zara", PRN: "PRN610", Branch: "CS"},
		},
		{
			TransactionID: "TXN1", Amount: 1000, Status: models.TransactionCompleted,
			PaymentDate: when,
			Student:     &models.Student{FullName: "Amit", PRN: "PRN609", Branch: "ECE"},
		},
	}

	f, err := ExportTransactions(txns)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Transaction ID", "Student Name", "PRN", "Branch", "Amount", "Payment Date", "Status"}, rows[0])
	assert.Equal(t, "Amit", rows[1][1])
	assert.Equal(t, "Zara", rows[2][1])
	assert.Equal(t, "2026-03-15 10:30:00", rows[1][5])
}
