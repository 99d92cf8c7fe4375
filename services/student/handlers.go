package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/identity"
	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
	"github.com/hostelpay/go-hostel-fee-system/shared/middleware"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/tabular"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StudentView is the JSON shape for a student row. The pending balance
// and hostel fields are derived, never stored.
type StudentView struct {
	ID          string  `json:"id"`
	PRN         string  `json:"prn"`
	FullName    string  `json:"full_name"`
	Branch      string  `json:"branch"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	HostelCode  string  `json:"hostel_code"`
	HostelName  string  `json:"hostel_name"`
	TotalFees   float64 `json:"total_fees"`
	FeesPaid    float64 `json:"fees_paid"`
	FeesPending float64 `json:"fees_pending"`
	CreatedAt   string  `json:"created_at"`
}

func toStudentView(s models.Student) StudentView {
	return StudentView{
		ID:          s.ID.String(),
		PRN:         s.PRN,
		FullName:    s.FullName,
		Branch:      s.Branch,
		Email:       s.Email,
		Phone:       s.Phone,
		HostelCode:  s.HostelCode(),
		HostelName:  s.HostelName(),
		TotalFees:   s.TotalFees,
		FeesPaid:    s.FeesPaid,
		FeesPending: s.FeesPending(),
		CreatedAt:   s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func currentActor(c *gin.Context) (ledger.Actor, bool) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return ledger.Actor{}, false
	}
	return ledger.Actor{ID: id, Role: models.UserRole(c.GetString("role"))}, true
}

// AddStudentRequest enrolls a single student into an existing hostel.
type AddStudentRequest struct {
	ConsultancyID string  `json:"consultancy_id" binding:"required"`
	PRN           string  `json:"prn" binding:"required"`
	FullName      string  `json:"full_name" binding:"required"`
	Branch        string  `json:"branch"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone" binding:"required"`
	TotalFees     float64 `json:"total_fees"`
	FeesPaid      float64 `json:"fees_paid"`
}

func handleAddStudent(students *ledger.StudentLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddStudentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
			return
		}

		consultancyID, err := uuid.Parse(req.ConsultancyID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid consultancy ID")
			return
		}

		student, creds, err := students.CreateStudent(ledger.CreateStudentInput{
			ConsultancyID: consultancyID,
			PRN:           req.PRN,
			FullName:      req.FullName,
			Branch:        req.Branch,
			Email:         req.Email,
			Phone:         req.Phone,
			TotalFees:     req.TotalFees,
			FeesPaid:      req.FeesPaid,
		})
		if err != nil {
			utils.FromError(c, err)
			return
		}

		utils.CreatedResponse(c, "Student added successfully", gin.H{
			"student":     toStudentView(*student),
			"credentials": creds,
		})
	}
}

// UpdateStudentRequest is a partial edit; absent fields stay unchanged.
type UpdateStudentRequest struct {
	PRN           *string  `json:"prn"`
	FullName      *string  `json:"full_name"`
	Branch        *string  `json:"branch"`
	Email         *string  `json:"email"`
	Phone         *string  `json:"phone"`
	TotalFees     *float64 `json:"total_fees"`
	FeesPaid      *float64 `json:"fees_paid"`
	ConsultancyID *string  `json:"consultancy_id"`
}

func handleUpdateStudent(students *ledger.StudentLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid student ID")
			return
		}

		var req UpdateStudentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
			return
		}

		upd := ledger.StudentUpdate{
			PRN:       req.PRN,
			FullName:  req.FullName,
			Branch:    req.Branch,
			Email:     req.Email,
			Phone:     req.Phone,
			TotalFees: req.TotalFees,
			FeesPaid:  req.FeesPaid,
		}
		if req.ConsultancyID != nil {
			cid, err := uuid.Parse(*req.ConsultancyID)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid consultancy ID")
				return
			}
			upd.ConsultancyID = &cid
		}

		actor, ok := currentActor(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		student, err := students.UpdateStudent(id, upd, actor)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "Student updated successfully", toStudentView(*student))
	}
}

func handleDeleteStudent(students *ledger.StudentLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid student ID")
			return
		}

		actor, ok := currentActor(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		if err := students.DeleteStudent(id, actor); err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "Student deleted successfully", nil)
	}
}

func listFilterFromQuery(c *gin.Context) (ledger.ListFilter, bool) {
	scope, ok := middleware.TenantScope(c)
	if !ok {
		return ledger.ListFilter{}, false
	}
	return ledger.ListFilter{
		ConsultancyID: scope,
		HostelCode:    c.Query("hostel_code"),
		Pending:       ledger.PendingFilter(c.Query("pending")),
		Search:        c.Query("search"),
	}, true
}

func handleListStudents(students *ledger.StudentLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := listFilterFromQuery(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		list, err := students.ListStudents(filter)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		views := make([]StudentView, 0, len(list))
		for _, s := range list {
			views = append(views, toStudentView(s))
		}

		utils.OKResponse(c, "Students retrieved successfully", gin.H{
			"students": views,
			"count":    len(views),
		})
	}
}

func handleExportStudents(students *ledger.StudentLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := listFilterFromQuery(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		list, err := students.ListStudents(filter)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		f, err := tabular.ExportStudents(list)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to build export")
			return
		}

		sendSpreadsheet(c, f, "students_export.xlsx")
	}
}

func handleSampleTemplate() gin.HandlerFunc {
	return func(c *gin.Context) {
		f, err := tabular.SampleTemplate()
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to build template")
			return
		}
		sendSpreadsheet(c, f, "student_import_template.xlsx")
	}
}

func handleUploadStudents(importer *ledger.Importer) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			utils.BadRequestResponse(c, "Spreadsheet file is required")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.BadRequestResponse(c, "Unable to read uploaded file")
			return
		}
		defer file.Close()

		rows, parseErrors, err := tabular.ParseStudents(file)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		result := importer.Import(rows)

		// Cell-level parse failures count as failed rows alongside the
		// creation failures.
		result.Failed += len(parseErrors)
		result.Errors = append(parseErrors, result.Errors...)

		logrus.WithFields(logrus.Fields{
			"success": result.Success,
			"failed":  result.Failed,
		}).Info("Student import completed")

		utils.OKResponse(c, "Import completed", result)
	}
}

func handleActiveHostels(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, err := registry.ListActive()
		if err != nil {
			utils.FromError(c, err)
			return
		}

		type hostelOption struct {
			ID         string `json:"id"`
			HostelCode string `json:"hostel_code"`
			Name       string `json:"name"`
		}
		options := make([]hostelOption, 0, len(active))
		for _, h := range active {
			options = append(options, hostelOption{
				ID:         h.ID.String(),
				HostelCode: h.HostelCode,
				Name:       h.HostelName(),
			})
		}

		utils.OKResponse(c, "Active hostels retrieved successfully", options)
	}
}

func handleDashboard(db *gorm.DB, students *ledger.StudentLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := middleware.TenantScope(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		totals, err := students.Totals(scope)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		data := gin.H{"totals": totals}
		if scope == nil {
			var activeHostels int64
			if err := db.Model(&models.Consultancy{}).Where("is_active = ?", true).Count(&activeHostels).Error; err != nil {
				utils.FromError(c, err)
				return
			}
			data["active_hostels"] = activeHostels
		}

		utils.OKResponse(c, "Dashboard retrieved successfully", data)
	}
}

func handleStudentDashboard(db *gorm.DB, students *ledger.StudentLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		student, err := students.GetStudentByUser(userID)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		var recent []models.Transaction
		if err := db.Where("student_id = ?", student.ID).
			Order("payment_date DESC").Limit(5).Find(&recent).Error; err != nil {
			utils.FromError(c, err)
			return
		}

		type recentPayment struct {
			TransactionID string  `json:"transaction_id"`
			Amount        float64 `json:"amount"`
			PaymentDate   string  `json:"payment_date"`
			Status        string  `json:"status"`
		}
		payments := make([]recentPayment, 0, len(recent))
		for _, t := range recent {
			payments = append(payments, recentPayment{
				TransactionID: t.TransactionID,
				Amount:        t.Amount,
				PaymentDate:   t.PaymentDate.Format("2006-01-02 15:04:05"),
				Status:        string(t.Status),
			})
		}

		utils.OKResponse(c, "Dashboard retrieved successfully", gin.H{
			"student":         toStudentView(*student),
			"recent_payments": payments,
		})
	}
}

func handleSendStepUpCode(identitySvc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		user, err := identitySvc.GetUser(userID)
		if err != nil {
			utils.FromError(c, err)
			return
		}
		if user.Email == "" {
			utils.BadRequestResponse(c, "No email on record for this account")
			return
		}

		sessionID, err := identitySvc.SendStepUpCode(userID, user.Email)
		if err != nil {
			// The session was opened even if delivery failed; surface the
			// failure but still hand back the session id so the client
			// can retry.
			logrus.WithError(err).Warn("Step-up code delivery failed")
		}

		utils.OKResponse(c, "Verification code sent", gin.H{
			"session_id": sessionID,
			"expires_in": int((10 * time.Minute).Seconds()),
		})
	}
}

// ChangePasswordRequest completes a step-up verified password change.
type ChangePasswordRequest struct {
	SessionID       string `json:"session_id" binding:"required"`
	Code            string `json:"otp" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

func handleChangeVerifiedPassword(identitySvc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.CurrentUserID(c)
		if !ok {
			utils.UnauthorizedResponse(c, "Invalid session")
			return
		}

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
			return
		}

		if err := identitySvc.ChangeVerifiedPassword(req.SessionID, req.Code, userID, req.CurrentPassword, req.NewPassword); err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "Password changed successfully", nil)
	}
}

func sendSpreadsheet(c *gin.Context, f *excelize.File, filename string) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to write spreadsheet")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
