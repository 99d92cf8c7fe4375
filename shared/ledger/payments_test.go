package ledger

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/payment"
)

// fakeGateway stands in for the payment provider.
type fakeGateway struct {
	orderID  string
	orderErr error
	verifyOK bool

	lastAmountMinor int64
	lastCurrency    string
}

func (f *fakeGateway) CreateOrder(amountMinor int64, currency, receipt string) (string, error) {
	f.lastAmountMinor = amountMinor
	f.lastCurrency = currency
	if f.orderErr != nil {
		return "", f.orderErr
	}
	return f.orderID, nil
}

func (f *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return f.verifyOK
}

type capturingPublisher struct {
	events []PaymentEvent
}

func (p *capturingPublisher) PublishPaymentCompleted(event PaymentEvent) error {
	p.events = append(p.events, event)
	return nil
}

func newTestRecorder(db *gorm.DB, gw *fakeGateway, pub EventPublisher) *Recorder {
	factory := func(keyID, keySecret string) payment.Gateway { return gw }
	return NewRecorder(db, factory, "default_key", "default_secret", pub)
}

func TestGenerateTransactionID_Format(t *testing.T) {
	id := GenerateTransactionID()
	assert.True(t, strings.HasPrefix(id, "TXN"))
	assert.Len(t, id, 3+14+6)
	assert.Regexp(t, regexp.MustCompile(`^TXN\d{14}[0-9A-F]{6}$`), id)
}

func TestCreateOrder_ConvertsToMinorUnits(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")
	student := createStudent(t, db, consultancy.ID, "PRN300", 50000, 0)

	gw := &fakeGateway{orderID: "order_123"}
	recorder := newTestRecorder(db, gw, nil)

	order, err := recorder.CreateOrder(student.ID, 2500)
	require.NoError(t, err)
	assert.Equal(t, "order_123", order.OrderID)
	assert.EqualValues(t, 250000, order.Amount)
	assert.EqualValues(t, 250000, gw.lastAmountMinor)
	assert.Equal(t, "INR", order.Currency)

	// Order creation persists nothing.
	assert.EqualValues(t, 0, countRows(t, db, &models.Transaction{}))
}

func TestCreateOrder_RejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")
	student := createStudent(t, db, consultancy.ID, "PRN301", 50000, 0)
	recorder := newTestRecorder(db, &fakeGateway{orderID: "order_123"}, nil)

	_, err := recorder.CreateOrder(student.ID, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateOrder_GatewayFailureMapsToGatewayError(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")
	student := createStudent(t, db, consultancy.ID, "PRN302", 50000, 0)

	gw := &fakeGateway{orderErr: errors.New("provider down")}
	recorder := newTestRecorder(db, gw, nil)

	_, err := recorder.CreateOrder(student.ID, 1000)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrGateway)
}

func TestConfirmPayment_CreditsBalanceAtomically(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")
	student := createStudent(t, db, consultancy.ID, "PRN303", 50000, 0)

	pub := &capturingPublisher{}
	recorder := newTestRecorder(db, &fakeGateway{verifyOK: true}, pub)

	_, err := recorder.ConfirmPayment(student.ID, "order_1", "pay_1", "sig", 200000, `{"ok":true}`)
	require.NoError(t, err)
	txn, err := recorder.ConfirmPayment(student.ID, "order_2", "pay_2", "sig", 300000, `{"ok":true}`)
	require.NoError(t, err)

	assert.Equal(t, 3000.0, txn.Amount)
	assert.Equal(t, models.TransactionCompleted, txn.Status)

	var reloaded models.Student
	require.NoError(t, db.First(&reloaded, "id = ?", student.ID).Error)
	assert.Equal(t, 5000.0, reloaded.FeesPaid)
	assert.Equal(t, 45000.0, reloaded.FeesPending())

	require.Len(t, pub.events, 2)
	assert.Equal(t, 3000.0, pub.events[1].Amount)
	assert.Equal(t, student.Email, pub.events[1].StudentEmail)
}

func TestConfirmPayment_DuplicateTransactionIDCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")
	student := createStudent(t, db, consultancy.ID, "PRN310", 50000, 0)

	txn := models.Transaction{
		TransactionID: "TXN20260315103000ABCDEF",
		StudentID:     student.ID,
		ConsultancyID: consultancy.ID,
		Amount:        2000,
		PaymentMethod: "razorpay",
		Status:        models.TransactionCompleted,
		PaymentDate:   time.Now().UTC(),
	}
	require.NoError(t, commitTransaction(db, &txn))

	// A retry replaying the same transaction id must lose cleanly: no
	// second row, no second credit.
	replay := txn
	replay.ID = uuid.Nil
	err := commitTransaction(db, &replay)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	assert.EqualValues(t, 1, countRows(t, db, &models.Transaction{}))
	var reloaded models.Student
	require.NoError(t, db.First(&reloaded, "id = ?", student.ID).Error)
	assert.Equal(t, 2000.0, reloaded.FeesPaid)
}

func TestConfirmPayment_RejectedSignatureLeavesNoTrace(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")
	student := createStudent(t, db, consultancy.ID, "PRN304", 50000, 0)
	recorder := newTestRecorder(db, &fakeGateway{verifyOK: false}, nil)

	_, err := recorder.ConfirmPayment(student.ID, "order_1", "pay_1", "bad_sig", 100000, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrVerificationFailed)

	assert.EqualValues(t, 0, countRows(t, db, &models.Transaction{}))
	var reloaded models.Student
	require.NoError(t, db.First(&reloaded, "id = ?", student.ID).Error)
	assert.Equal(t, 0.0, reloaded.FeesPaid)
}

func TestConfirmPayment_DetachedStudentRejected(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")
	student := createStudent(t, db, consultancy.ID, "PRN305", 50000, 0)
	require.NoError(t, NewRegistry(db).Delete(consultancy.ID, DeleteDetach))

	recorder := newTestRecorder(db, &fakeGateway{verifyOK: true}, nil)
	_, err := recorder.ConfirmPayment(student.ID, "order_1", "pay_1", "sig", 100000, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestListTransactions_ScopesAndSearches(t *testing.T) {
	db := newTestDB(t)
	b1 := createHostel(t, db, "B1")
	g1 := createHostel(t, db, "G1")
	s1 := createStudent(t, db, b1.ID, "PRN306", 50000, 0)
	s2 := createStudent(t, db, g1.ID, "PRN307", 50000, 0)

	recorder := newTestRecorder(db, &fakeGateway{verifyOK: true}, nil)
	_, err := recorder.ConfirmPayment(s1.ID, "o1", "p1", "sig", 100000, "")
	require.NoError(t, err)
	_, err = recorder.ConfirmPayment(s2.ID, "o2", "p2", "sig", 200000, "")
	require.NoError(t, err)

	all, err := recorder.ListTransactions(nil, nil, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	scoped, err := recorder.ListTransactions(&b1.ID, nil, "")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, 1000.0, scoped[0].Amount)

	found, err := recorder.ListTransactions(nil, nil, "PRN307")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 2000.0, found[0].Amount)
}
