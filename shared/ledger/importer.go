package ledger

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/hostels"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
)

// ImportRow is one spreadsheet row of student data. Row carries the
// spreadsheet row number (header is row 1, data starts at 2) for error
// reporting.
type ImportRow struct {
	Row        int
	PRN        string
	Name       string
	Branch     string
	Email      string
	Phone      string
	HostelCode string
	TotalFees  float64
	FeesPaid   float64
}

// RowError is one failed row with its reason.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult reports a batch outcome: counts, per-row errors and the
// generated credentials for successful rows.
type ImportResult struct {
	Success     int           `json:"success"`
	Failed      int           `json:"failed"`
	Errors      []RowError    `json:"errors"`
	Credentials []Credentials `json:"credentials"`
}

// Importer batch-creates consultancies, identities and students from
// tabular input, driving the same per-row creation path as manual
// enrollment.
type Importer struct {
	db       *gorm.DB
	students *StudentLedger
}

// NewImporter creates an Importer over db.
func NewImporter(db *gorm.DB, students *StudentLedger) *Importer {
	return &Importer{db: db, students: students}
}

// Import processes rows independently: a failed row is rolled back on
// its own and recorded in the result without aborting the batch. A
// consultancy auto-created for a row that later fails is deliberately
// kept — the tenant itself is valid and subsequent rows may need it.
func (im *Importer) Import(rows []ImportRow) *ImportResult {
	result := &ImportResult{
		Errors:      []RowError{},
		Credentials: []Credentials{},
	}

	for _, row := range rows {
		creds, err := im.importRow(row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{
				Row:    row.Row,
				Reason: err.Error(),
			})
			continue
		}
		result.Success++
		result.Credentials = append(result.Credentials, *creds)
	}

	return result
}

func (im *Importer) importRow(row ImportRow) (*Credentials, error) {
	code := strings.ToUpper(strings.TrimSpace(row.HostelCode))
	if !hostels.IsValid(code) {
		return nil, fmt.Errorf("invalid hostel code %q", code)
	}

	consultancy, err := im.findOrCreateConsultancy(code)
	if err != nil {
		return nil, err
	}

	// CreateStudent is itself transactional, so a failure here rolls
	// back only this row's identity and student writes.
	_, creds, err := im.students.CreateStudent(CreateStudentInput{
		ConsultancyID: consultancy.ID,
		PRN:           row.PRN,
		FullName:      row.Name,
		Branch:        row.Branch,
		Email:         row.Email,
		Phone:         row.Phone,
		TotalFees:     row.TotalFees,
		FeesPaid:      row.FeesPaid,
	})
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// findOrCreateConsultancy looks the hostel up by code and auto-creates
// it with placeholder contact info when absent.
func (im *Importer) findOrCreateConsultancy(code string) (*models.Consultancy, error) {
	var consultancy models.Consultancy
	err := im.db.Where("hostel_code = ?", code).First(&consultancy).Error
	if err == nil {
		return &consultancy, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	consultancy = models.Consultancy{
		Name:          hostels.Name(code),
		HostelCode:    code,
		ContactPerson: "Auto Imported",
		Email:         strings.ToLower(code) + "@auto.local",
		Phone:         "0000000000",
		Address:       "Auto created from spreadsheet import",
		IsActive:      true,
	}
	if err := im.db.Create(&consultancy).Error; err != nil {
		return nil, translateConstraint(err)
	}
	return &consultancy, nil
}
