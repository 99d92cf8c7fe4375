// Package tabular is the spreadsheet collaborator: student import,
// student/transaction export and the blank import template. The import
// template and the export deliberately use different column labels
// (underscores vs spaces); an exported file is not a valid import.
package tabular

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

// Import columns. Pending_Fee appears in the template for reference but
// its value is ignored on import; Fees_Paid is optional and defaults to
// zero.
var (
	requiredImportColumns = []string{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code", "Total_Fees"}
	templateColumns       = []string{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code", "Total_Fees", "Fees_Paid", "Pending_Fee"}
	studentExportColumns  = []string{"PRN", "Name", "Branch", "Email", "Phone", "Hostel_Code", "Total Fees", "Fees Paid", "Fees Pending"}
	txnExportColumns      = []string{"Transaction ID", "Student Name", "PRN", "Branch", "Amount", "Payment Date", "Status"}
)

// ParseStudents reads an import spreadsheet. It fails outright when a
// required column is missing; malformed cells fail only their own row
// and are returned as row errors alongside the parseable rows.
func ParseStudents(r io.Reader) ([]ledger.ImportRow, []ledger.RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "unreadable spreadsheet: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "unreadable spreadsheet: %v", err)
	}
	if len(rows) == 0 {
		return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "spreadsheet is empty")
	}

	// Header row, whitespace-trimmed.
	cols := map[string]int{}
	for i, label := range rows[0] {
		cols[strings.TrimSpace(label)] = i
	}
	for _, required := range requiredImportColumns {
		if _, ok := cols[required]; !ok {
			return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "missing required column: %s", required)
		}
	}

	cell := func(row []string, label string) string {
		idx, ok := cols[label]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var (
		parsed    []ledger.ImportRow
		rowErrors []ledger.RowError
	)
	for i, row := range rows[1:] {
		rowNum := i + 2 // spreadsheet numbering: header is row 1

		totalFees, err := strconv.ParseFloat(cell(row, "Total_Fees"), 64)
		if err != nil {
			rowErrors = append(rowErrors, ledger.RowError{Row: rowNum, Reason: "invalid Total_Fees value"})
			continue
		}

		feesPaid := 0.0
		if raw := cell(row, "Fees_Paid"); raw != "" {
			feesPaid, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				rowErrors = append(rowErrors, ledger.RowError{Row: rowNum, Reason: "invalid Fees_Paid value"})
				continue
			}
		}

		parsed = append(parsed, ledger.ImportRow{
			Row:        rowNum,
			PRN:        cell(row, "PRN"),
			Name:       cell(row, "Name"),
			Branch:     cell(row, "Branch"),
			Email:      cell(row, "Email"),
			Phone:      cell(row, "Phone"),
			HostelCode: cell(row, "Hostel_Code"),
			TotalFees:  totalFees,
			FeesPaid:   feesPaid,
		})
	}

	return parsed, rowErrors, nil
}

// ExportStudents renders students to a spreadsheet with the export
// label set (spaces, derived pending column).
func ExportStudents(students []models.Student) (*excelize.File, error) {
	f, sheet := newSheet("Students")

	if err := writeRow(f, sheet, 1, toCells(studentExportColumns)); err != nil {
		return nil, err
	}

	for i, s := range students {
		hostel := ""
		if s.Consultancy != nil {
			hostel = fmt.Sprintf("%s - %s", s.Consultancy.HostelCode, s.Consultancy.HostelName())
		}
		cells := []interface{}{
			s.PRN, s.FullName, s.Branch, s.Email, s.Phone,
			hostel, s.TotalFees, s.FeesPaid, s.FeesPending(),
		}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// ExportTransactions renders payment history to a spreadsheet, sorted
// alphabetically by student name.
func ExportTransactions(txns []models.Transaction) (*excelize.File, error) {
	sorted := make([]models.Transaction, len(txns))
	copy(sorted, txns)
	sort.Slice(sorted, func(i, j int) bool {
		return studentName(sorted[i]) < studentName(sorted[j])
	})

	f, sheet := newSheet("Transactions")

	if err := writeRow(f, sheet, 1, toCells(txnExportColumns)); err != nil {
		return nil, err
	}

	for i, t := range sorted {
		name, prn, branch := "", "", ""
		if t.Student != nil {
			name, prn, branch = t.Student.FullName, t.Student.PRN, t.Student.Branch
		}
		cells := []interface{}{
			t.TransactionID, name, prn, branch, t.Amount,
			t.PaymentDate.Format("2006-01-02 15:04:05"), string(t.Status),
		}
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// SampleTemplate produces the blank import template with the import
// label set (underscores).
func SampleTemplate() (*excelize.File, error) {
	f, sheet := newSheet("Sample")
	if err := writeRow(f, sheet, 1, toCells(templateColumns)); err != nil {
		return nil, err
	}
	return f, nil
}

func newSheet(name string) (*excelize.File, string) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", name)
	return f, name
}

func writeRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, start, &cells)
}

func toCells(labels []string) []interface{} {
	cells := make([]interface{}, len(labels))
	for i, l := range labels {
		cells[i] = l
	}
	return cells
}

func studentName(t models.Transaction) string {
	if t.Student == nil {
		return ""
	}
	return t.Student.FullName
}
