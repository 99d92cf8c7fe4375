package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
	"github.com/hostelpay/go-hostel-fee-system/shared/middleware"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/tabular"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TransactionView is the JSON shape for one payment record.
type TransactionView struct {
	TransactionID string  `json:"transaction_id"`
	StudentName   string  `json:"student_name"`
	PRN           string  `json:"prn"`
	Branch        string  `json:"branch"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	PaymentDate   string  `json:"payment_date"`
	Status        string  `json:"status"`
}

func toTransactionView(t models.Transaction) TransactionView {
	v := TransactionView{
		TransactionID: t.TransactionID,
		Amount:        t.Amount,
		PaymentMethod: t.PaymentMethod,
		PaymentDate:   t.PaymentDate.Format("2006-01-02 15:04:05"),
		Status:        string(t.Status),
	}
	if t.Student != nil {
		v.StudentName = t.Student.FullName
		v.PRN = t.Student.PRN
		v.Branch = t.Student.Branch
	}
	return v
}

// ownStudent resolves the authenticated student's ledger record.
func ownStudent(c *gin.Context, students *ledger.StudentLedger) (*models.Student, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Invalid session")
		return nil, false
	}
	student, err := students.GetStudentByUser(userID)
	if err != nil {
		utils.FromError(c, err)
		return nil, false
	}
	return student, true
}

// CreateOrderRequest starts a payment for the authenticated student.
// Amount is in major currency units.
type CreateOrderRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func handleCreateOrder(students *ledger.StudentLedger, recorder *ledger.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
			return
		}

		student, ok := ownStudent(c, students)
		if !ok {
			return
		}

		order, err := recorder.CreateOrder(student.ID, req.Amount)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "Payment order created", order)
	}
}

// VerifyPaymentRequest is the gateway callback echoed by the client
// after checkout. Amount is in minor units, as the gateway reports it.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	Raw       string `json:"raw_response"`
}

func handleVerifyPayment(students *ledger.StudentLedger, recorder *ledger.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
			return
		}

		student, ok := ownStudent(c, students)
		if !ok {
			return
		}

		txn, err := recorder.ConfirmPayment(student.ID, req.OrderID, req.PaymentID, req.Signature, req.Amount, req.Raw)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "Payment verified successfully", gin.H{
			"transaction_id": txn.TransactionID,
			"amount":         txn.Amount,
			"payment_date":   txn.PaymentDate.Format("2006-01-02 15:04:05"),
			"status":         string(txn.Status),
		})
	}
}

func handleOwnHistory(students *ledger.StudentLedger, recorder *ledger.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		student, ok := ownStudent(c, students)
		if !ok {
			return
		}

		txns, err := recorder.ListTransactions(nil, &student.ID, "")
		if err != nil {
			utils.FromError(c, err)
			return
		}

		views := make([]TransactionView, 0, len(txns))
		for _, t := range txns {
			views = append(views, toTransactionView(t))
		}

		utils.OKResponse(c, "Transaction history retrieved successfully", gin.H{
			"transactions": views,
			"count":        len(views),
		})
	}
}

func scopedTransactions(c *gin.Context, recorder *ledger.Recorder) ([]models.Transaction, bool) {
	scope, ok := middleware.TenantScope(c)
	if !ok {
		utils.UnauthorizedResponse(c, "Invalid session")
		return nil, false
	}

	var studentID *uuid.UUID
	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid student ID")
			return nil, false
		}
		studentID = &id
	}

	txns, err := recorder.ListTransactions(scope, studentID, c.Query("search"))
	if err != nil {
		utils.FromError(c, err)
		return nil, false
	}
	return txns, true
}

func handleTransactionHistory(recorder *ledger.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		txns, ok := scopedTransactions(c, recorder)
		if !ok {
			return
		}

		views := make([]TransactionView, 0, len(txns))
		for _, t := range txns {
			views = append(views, toTransactionView(t))
		}

		utils.OKResponse(c, "Transactions retrieved successfully", gin.H{
			"transactions": views,
			"count":        len(views),
		})
	}
}

func handleExportTransactions(recorder *ledger.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		txns, ok := scopedTransactions(c, recorder)
		if !ok {
			return
		}

		f, err := tabular.ExportTransactions(txns)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to build export")
			return
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to write spreadsheet")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="payment_history.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}
