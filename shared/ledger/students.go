package ledger

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

// StudentLedger owns student records and their fee balances. fees_paid
// changes only as an atomic delta alongside the transaction that
// justifies it, or through an explicit administrative absolute set;
// never by two code paths computing a new value from a stale read.
type StudentLedger struct {
	db    *gorm.DB
	audit *Auditor
}

// NewStudentLedger creates a StudentLedger over db.
func NewStudentLedger(db *gorm.DB, audit *Auditor) *StudentLedger {
	return &StudentLedger{db: db, audit: audit}
}

// CreateStudentInput carries the fields for enrolling one student.
type CreateStudentInput struct {
	ConsultancyID uuid.UUID
	PRN           string
	FullName      string
	Branch        string
	Email         string
	Phone         string
	TotalFees     float64
	FeesPaid      float64
}

// Credentials are the generated login details for a newly enrolled
// student: username is the PRN, password is the phone number.
type Credentials struct {
	PRN      string `json:"prn"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// CreateStudent enrolls a student: one identity and one student record,
// both or neither. The identity logs in with username=PRN and
// password=phone number.
func (l *StudentLedger) CreateStudent(in CreateStudentInput) (*models.Student, *Credentials, error) {
	prn := strings.TrimSpace(in.PRN)
	phone := strings.TrimSpace(in.Phone)

	if prn == "" {
		return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "prn is required")
	}
	if phone == "" {
		return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "phone number is required")
	}
	if in.FeesPaid > in.TotalFees {
		return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "fees paid cannot exceed total fees")
	}

	var existing models.Student
	if err := l.db.Where("prn = ?", prn).First(&existing).Error; err == nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrConflict, "student with PRN %s already exists", prn)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	var consultancy models.Consultancy
	if err := l.db.First(&consultancy, "id = ?", in.ConsultancyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.Wrap(apperrors.ErrNotFound, "consultancy %s", in.ConsultancyID)
		}
		return nil, nil, err
	}
	if !consultancy.IsActive {
		return nil, nil, apperrors.Wrap(apperrors.ErrValidation, "hostel %s is deactivated", consultancy.HostelCode)
	}

	hash, err := utils.HashPassword(phone)
	if err != nil {
		return nil, nil, err
	}

	var student models.Student
	err = l.db.Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Username:      prn,
			Password:      hash,
			Email:         strings.TrimSpace(in.Email),
			Role:          models.RoleStudent,
			ConsultancyID: &consultancy.ID,
		}
		if err := tx.Create(&user).Error; err != nil {
			return translateConstraint(err)
		}

		student = models.Student{
			UserID:        user.ID,
			ConsultancyID: &consultancy.ID,
			PRN:           prn,
			FullName:      strings.TrimSpace(in.FullName),
			Branch:        strings.TrimSpace(in.Branch),
			Email:         strings.TrimSpace(in.Email),
			Phone:         phone,
			TotalFees:     in.TotalFees,
			FeesPaid:      in.FeesPaid,
		}
		if err := tx.Create(&student).Error; err != nil {
			return translateConstraint(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	creds := Credentials{
		PRN:      student.PRN,
		Name:     student.FullName,
		Username: student.PRN,
		Password: phone,
		Email:    student.Email,
		Phone:    phone,
	}
	return &student, &creds, nil
}

// StudentUpdate carries a partial-field student edit. Only non-nil
// fields change.
type StudentUpdate struct {
	PRN           *string
	FullName      *string
	Branch        *string
	Email         *string
	Phone         *string
	TotalFees     *float64
	FeesPaid      *float64
	ConsultancyID *uuid.UUID
}

// UpdateStudent applies a partial-field edit in one transaction and
// appends one audit entry on success. Documented side effects: a PRN
// change renames the linked identity's username, a phone change resets
// the password to the new phone number, an email change syncs the
// identity's email, and a consultancy change reassigns both rows.
// Setting TotalFees below FeesPaid is allowed; the pending balance goes
// negative and is displayed as-is.
func (l *StudentLedger) UpdateStudent(id uuid.UUID, upd StudentUpdate, actor Actor) (*models.Student, error) {
	var student models.Student
	if err := l.db.Preload("User").First(&student, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "student %s", id)
		}
		return nil, err
	}
	if student.User == nil {
		return nil, apperrors.Wrap(apperrors.ErrNotFound, "identity for student %s", student.PRN)
	}

	changes := map[string]interface{}{}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		user := student.User

		if upd.PRN != nil && *upd.PRN != student.PRN {
			changes["prn"] = map[string]string{"from": student.PRN, "to": *upd.PRN}
			student.PRN = *upd.PRN
			user.Username = *upd.PRN
		}
		if upd.FullName != nil && *upd.FullName != student.FullName {
			changes["full_name"] = map[string]string{"from": student.FullName, "to": *upd.FullName}
			student.FullName = *upd.FullName
		}
		if upd.Branch != nil && *upd.Branch != student.Branch {
			changes["branch"] = map[string]string{"from": student.Branch, "to": *upd.Branch}
			student.Branch = *upd.Branch
		}
		if upd.Email != nil && *upd.Email != student.Email {
			changes["email"] = map[string]string{"from": student.Email, "to": *upd.Email}
			student.Email = *upd.Email
			user.Email = *upd.Email
		}
		if upd.Phone != nil && *upd.Phone != student.Phone {
			changes["phone"] = map[string]string{"from": student.Phone, "to": *upd.Phone}
			student.Phone = *upd.Phone
			// The password is derived from the phone number, so a phone
			// change re-derives it.
			hash, err := utils.HashPassword(*upd.Phone)
			if err != nil {
				return err
			}
			user.Password = hash
		}
		if upd.TotalFees != nil && *upd.TotalFees != student.TotalFees {
			changes["total_fees"] = map[string]float64{"from": student.TotalFees, "to": *upd.TotalFees}
			student.TotalFees = *upd.TotalFees
		}
		if upd.FeesPaid != nil && *upd.FeesPaid != student.FeesPaid {
			// Explicit administrative correction; the only absolute-set
			// path for the paid balance.
			changes["fees_paid"] = map[string]float64{"from": student.FeesPaid, "to": *upd.FeesPaid}
			student.FeesPaid = *upd.FeesPaid
		}
		if upd.ConsultancyID != nil {
			var target models.Consultancy
			if err := tx.First(&target, "id = ?", *upd.ConsultancyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.Wrap(apperrors.ErrNotFound, "consultancy %s", *upd.ConsultancyID)
				}
				return err
			}
			changes["consultancy_id"] = map[string]string{
				"from": uuidOrEmpty(student.ConsultancyID), "to": target.ID.String(),
			}
			student.ConsultancyID = &target.ID
			user.ConsultancyID = &target.ID
		}

		if err := tx.Save(&student).Error; err != nil {
			return translateConstraint(err)
		}
		if err := tx.Save(user).Error; err != nil {
			return translateConstraint(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		l.audit.Record(actor, models.ActionUpdate, models.Student{}.TableName(), student.ID, changes)
	}
	return &student, nil
}

// DeleteStudent removes a student, their transactions and their identity
// in one transaction. The audit entry is written first, keyed by the
// soon-to-be-historical id, so the deletion stays traceable.
func (l *StudentLedger) DeleteStudent(id uuid.UUID, actor Actor) error {
	var student models.Student
	if err := l.db.First(&student, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(apperrors.ErrNotFound, "student %s", id)
		}
		return err
	}

	l.audit.Record(actor, models.ActionDelete, models.Student{}.TableName(), student.ID, map[string]string{
		"student_name": student.FullName,
		"prn":          student.PRN,
	})

	return l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", student.ID).Delete(&models.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Student{}, "id = ?", student.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", student.UserID).Error
	})
}

// recordPayment credits a verified payment to the student's balance as
// an atomic SQL delta. It runs inside the transaction that inserts the
// transaction row; callers outside ConfirmPayment have no business
// invoking it.
func recordPayment(tx *gorm.DB, studentID uuid.UUID, amount float64) error {
	res := tx.Model(&models.Student{}).
		Where("id = ?", studentID).
		UpdateColumn("fees_paid", gorm.Expr("fees_paid + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.Wrap(apperrors.ErrNotFound, "student %s", studentID)
	}
	return nil
}

// GetStudent fetches one student with its consultancy preloaded.
func (l *StudentLedger) GetStudent(id uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := l.db.Preload("Consultancy").First(&student, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "student %s", id)
		}
		return nil, err
	}
	return &student, nil
}

// GetStudentByUser fetches the student owned by an identity.
func (l *StudentLedger) GetStudentByUser(userID uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := l.db.Preload("Consultancy").First(&student, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "student for user %s", userID)
		}
		return nil, err
	}
	return &student, nil
}

// PendingFilter narrows a listing by outstanding balance.
type PendingFilter string

const (
	PendingAny  PendingFilter = ""
	PendingOnly PendingFilter = "has_pending"
	PendingNone PendingFilter = "no_pending"
)

// ListFilter narrows ListStudents. A nil ConsultancyID means all tenants
// (admin scope).
type ListFilter struct {
	ConsultancyID *uuid.UUID
	HostelCode    string
	Pending       PendingFilter
	Search        string
}

// ListStudents returns students matching the filter, consultancy
// preloaded for the derived hostel fields.
func (l *StudentLedger) ListStudents(f ListFilter) ([]models.Student, error) {
	query := l.db.Model(&models.Student{}).Preload("Consultancy")

	if f.ConsultancyID != nil {
		query = query.Where("students.consultancy_id = ?", *f.ConsultancyID)
	}
	if f.HostelCode != "" {
		query = query.Joins("JOIN consultancies ON consultancies.id = students.consultancy_id").
			Where("consultancies.hostel_code = ?", f.HostelCode)
	}
	switch f.Pending {
	case PendingOnly:
		query = query.Where("students.total_fees > students.fees_paid")
	case PendingNone:
		query = query.Where("students.total_fees <= students.fees_paid")
	}
	if f.Search != "" {
		term := "%" + f.Search + "%"
		query = query.Where(
			"students.prn LIKE ? OR students.full_name LIKE ? OR students.email LIKE ? OR students.branch LIKE ?",
			term, term, term, term)
	}

	var students []models.Student
	if err := query.Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

// FeeTotals aggregates ledger balances for a dashboard. Pending is
// derived from the other two, never stored.
type FeeTotals struct {
	TotalFees     float64 `json:"total_fees"`
	FeesPaid      float64 `json:"fees_paid"`
	FeesPending   float64 `json:"fees_pending"`
	TotalStudents int64   `json:"total_students"`
}

// Totals sums fee balances, across all tenants when consultancyID is nil
// or for one tenant otherwise.
func (l *StudentLedger) Totals(consultancyID *uuid.UUID) (*FeeTotals, error) {
	query := l.db.Model(&models.Student{})
	if consultancyID != nil {
		query = query.Where("consultancy_id = ?", *consultancyID)
	}

	var row struct {
		TotalFees float64
		FeesPaid  float64
		Count     int64
	}
	if err := query.Select(
		"COALESCE(SUM(total_fees), 0) AS total_fees, COALESCE(SUM(fees_paid), 0) AS fees_paid, COUNT(*) AS count",
	).Scan(&row).Error; err != nil {
		return nil, err
	}

	return &FeeTotals{
		TotalFees:     row.TotalFees,
		FeesPaid:      row.FeesPaid,
		FeesPending:   row.TotalFees - row.FeesPaid,
		TotalStudents: row.Count,
	}, nil
}

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
