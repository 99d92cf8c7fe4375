package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/payment"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

// PaymentEvent is published after a payment is committed, for downstream
// consumers (receipt emails). Best-effort: a publish failure never
// affects the recorded payment.
type PaymentEvent struct {
	TransactionID string    `json:"transaction_id"`
	StudentID     string    `json:"student_id"`
	ConsultancyID string    `json:"consultancy_id"`
	StudentName   string    `json:"student_name"`
	StudentEmail  string    `json:"student_email"`
	Amount        float64   `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

// EventPublisher delivers payment events to the event stream.
type EventPublisher interface {
	PublishPaymentCompleted(event PaymentEvent) error
}

// Order is the result of a gateway order creation. Nothing is persisted
// at this stage; attempts that never reach verification leave no trace.
type Order struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// Recorder owns transaction records: the append-only history the student
// balance derives from. Rows are immutable once created.
type Recorder struct {
	db         *gorm.DB
	gateway    payment.Factory
	breaker    *utils.CircuitBreaker
	publisher  EventPublisher
	defaultKey string
	defaultSec string
}

// NewRecorder creates a Recorder. gateway builds per-tenant provider
// clients; defaultKey/defaultSec are the system fallback credentials for
// consultancies without their own. publisher may be nil.
func NewRecorder(db *gorm.DB, gateway payment.Factory, defaultKey, defaultSec string, publisher EventPublisher) *Recorder {
	return &Recorder{
		db:         db,
		gateway:    gateway,
		breaker:    utils.NewCircuitBreaker(5, 30*time.Second),
		publisher:  publisher,
		defaultKey: defaultKey,
		defaultSec: defaultSec,
	}
}

// GenerateTransactionID builds a transaction id from a timestamp and a
// random suffix. Collisions are vanishingly unlikely, but the unique
// index on the column still turns one into a conflict rather than a
// silent overwrite.
func GenerateTransactionID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return "TXN" + time.Now().Format("20060102150405") + suffix
}

// credentials picks the consultancy's gateway key pair, falling back to
// the system default.
func (r *Recorder) credentials(c *models.Consultancy) (string, string) {
	if c != nil && c.PaymentGatewayID != "" && c.PaymentGatewayKey != "" {
		return c.PaymentGatewayID, c.PaymentGatewayKey
	}
	return r.defaultKey, r.defaultSec
}

// CreateOrder asks the gateway for a payment order over the student's
// tenant credentials. Amount arrives in major units and crosses the
// gateway boundary in minor units (x100). Stateless: no row is written.
func (r *Recorder) CreateOrder(studentID uuid.UUID, amount float64) (*Order, error) {
	if amount <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "amount must be positive")
	}

	student, err := r.loadStudent(studentID)
	if err != nil {
		return nil, err
	}

	keyID, keySecret := r.credentials(student.Consultancy)
	gw := r.gateway(keyID, keySecret)

	amountMinor := int64(amount * 100)
	receipt := "receipt_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:10]

	var orderID string
	err = r.breaker.Call(func() error {
		var gwErr error
		orderID, gwErr = gw.CreateOrder(amountMinor, "INR", receipt)
		return gwErr
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrGateway, "order creation failed: %v", err)
	}

	return &Order{
		OrderID:  orderID,
		Amount:   amountMinor,
		Currency: "INR",
		KeyID:    keyID,
	}, nil
}

// ConfirmPayment verifies a gateway callback and, on success, inserts a
// completed transaction and credits the student's balance in one atomic
// unit. A rejected signature leaves no row and no balance change. A
// duplicate transaction id commits exactly one credit; the loser gets a
// conflict, which is what makes concurrent retries at-most-once.
func (r *Recorder) ConfirmPayment(studentID uuid.UUID, orderID, paymentID, signature string, amountMinor int64, rawResponse string) (*models.Transaction, error) {
	if amountMinor <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "amount must be positive")
	}

	student, err := r.loadStudent(studentID)
	if err != nil {
		return nil, err
	}

	keyID, keySecret := r.credentials(student.Consultancy)
	gw := r.gateway(keyID, keySecret)

	if !gw.VerifySignature(orderID, paymentID, signature) {
		return nil, apperrors.Wrap(apperrors.ErrVerificationFailed, "signature rejected for order %s", orderID)
	}

	if student.ConsultancyID == nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "student %s has no hostel assigned", student.PRN)
	}

	txn := models.Transaction{
		TransactionID:   GenerateTransactionID(),
		StudentID:       student.ID,
		ConsultancyID:   *student.ConsultancyID,
		Amount:          float64(amountMinor) / 100,
		PaymentMethod:   "razorpay",
		Status:          models.TransactionCompleted,
		GatewayResponse: rawResponse,
		PaymentDate:     time.Now().UTC(),
	}

	if err := commitTransaction(r.db, &txn); err != nil {
		return nil, err
	}

	if r.publisher != nil {
		event := PaymentEvent{
			TransactionID: txn.TransactionID,
			StudentID:     student.ID.String(),
			ConsultancyID: txn.ConsultancyID.String(),
			StudentName:   student.FullName,
			StudentEmail:  student.Email,
			Amount:        txn.Amount,
			PaidAt:        txn.PaymentDate,
		}
		if err := r.publisher.PublishPaymentCompleted(event); err != nil {
			logrus.WithError(err).WithField("transaction_id", txn.TransactionID).
				Warn("payment event publish failed")
		}
	}

	return &txn, nil
}

// commitTransaction inserts the transaction row and credits the
// student's balance in one atomic unit. The unique index on
// transaction_id turns a replayed id into a conflict before any credit
// lands, so a duplicate confirmation credits at most once.
func commitTransaction(db *gorm.DB, txn *models.Transaction) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return translateConstraint(err)
		}
		return recordPayment(tx, txn.StudentID, txn.Amount)
	})
}

// ListTransactions returns transaction history, newest first. Nil
// consultancyID means all tenants; nil studentID means all students.
func (r *Recorder) ListTransactions(consultancyID, studentID *uuid.UUID, search string) ([]models.Transaction, error) {
	query := r.db.Model(&models.Transaction{}).Preload("Student")

	if consultancyID != nil {
		query = query.Where("transactions.consultancy_id = ?", *consultancyID)
	}
	if studentID != nil {
		query = query.Where("transactions.student_id = ?", *studentID)
	}
	if search != "" {
		term := "%" + search + "%"
		query = query.Joins("JOIN students ON students.id = transactions.student_id").
			Where("transactions.transaction_id LIKE ? OR students.full_name LIKE ? OR students.prn LIKE ?",
				term, term, term)
	}

	var txns []models.Transaction
	if err := query.Order("transactions.payment_date DESC").Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *Recorder) loadStudent(id uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := r.db.Preload("Consultancy").First(&student, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "student %s", id)
		}
		return nil, err
	}
	return &student, nil
}
