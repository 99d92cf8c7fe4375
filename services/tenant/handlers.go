package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
	"github.com/hostelpay/go-hostel-fee-system/shared/middleware"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

// CreateConsultancyRequest represents the hostel registration request
type CreateConsultancyRequest struct {
	HostelCode        string `json:"hostel_code" binding:"required"`
	ContactPerson     string `json:"contact_person" binding:"required"`
	Email             string `json:"email" binding:"required,email"`
	Phone             string `json:"phone" binding:"required"`
	Address           string `json:"address"`
	PaymentGatewayID  string `json:"payment_gateway_id"`
	PaymentGatewayKey string `json:"payment_gateway_key"`
	AgentUsername     string `json:"agent_username" binding:"required"`
	AgentPassword     string `json:"agent_password" binding:"required,min=6"`
}

// handleCreateConsultancy registers a hostel or reactivates a
// deactivated one holding the same code.
func handleCreateConsultancy(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateConsultancyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		consultancy, err := registry.CreateOrReactivate(ledger.CreateConsultancyInput{
			HostelCode:        req.HostelCode,
			ContactPerson:     req.ContactPerson,
			Email:             req.Email,
			Phone:             req.Phone,
			Address:           req.Address,
			PaymentGatewayID:  req.PaymentGatewayID,
			PaymentGatewayKey: req.PaymentGatewayKey,
			AgentUsername:     req.AgentUsername,
			AgentPassword:     req.AgentPassword,
		})
		if err != nil {
			utils.FromError(c, err)
			return
		}

		utils.CreatedResponse(c, "Hostel registered successfully", consultancy)
	}
}

// UpdateConsultancyRequest represents a partial hostel update
type UpdateConsultancyRequest struct {
	Name              *string `json:"name"`
	ContactPerson     *string `json:"contact_person"`
	Email             *string `json:"email"`
	Phone             *string `json:"phone"`
	Address           *string `json:"address"`
	PaymentGatewayID  *string `json:"payment_gateway_id"`
	PaymentGatewayKey *string `json:"payment_gateway_key"`
	AgentUsername     *string `json:"agent_username"`
	AgentPassword     *string `json:"agent_password"`
}

func handleUpdateConsultancy(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid consultancy id")
			return
		}

		var req UpdateConsultancyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		consultancy, err := registry.Update(id, ledger.ConsultancyUpdate{
			Name:              req.Name,
			ContactPerson:     req.ContactPerson,
			Email:             req.Email,
			Phone:             req.Phone,
			Address:           req.Address,
			PaymentGatewayID:  req.PaymentGatewayID,
			PaymentGatewayKey: req.PaymentGatewayKey,
			AgentUsername:     req.AgentUsername,
			AgentPassword:     req.AgentPassword,
		})
		if err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "Hostel updated successfully", consultancy)
	}
}

func handleListConsultancies(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		consultancies, err := registry.List()
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch hostels")
			return
		}
		utils.OKResponse(c, "Hostels retrieved successfully", consultancies)
	}
}

func handleGetConsultancy(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid consultancy id")
			return
		}

		consultancy, err := registry.Get(id)
		if err != nil {
			utils.FromError(c, err)
			return
		}
		utils.OKResponse(c, "Hostel retrieved successfully", consultancy)
	}
}

// handleAvailableCodes lists vocabulary codes not held by an active
// hostel.
func handleAvailableCodes(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		codes, err := registry.AvailableCodes()
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to compute available codes")
			return
		}
		utils.OKResponse(c, "Available hostel codes", codes)
	}
}

func handleDeactivateConsultancy(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid consultancy id")
			return
		}

		if err := registry.Deactivate(id); err != nil {
			utils.FromError(c, err)
			return
		}
		utils.OKResponse(c, "Hostel deactivated. Students remain in the system.", nil)
	}
}

// handleDeleteConsultancy deletes a hostel. mode=cascade removes its
// students and their data; mode=detach keeps the students unassigned.
func handleDeleteConsultancy(registry *ledger.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid consultancy id")
			return
		}

		mode := ledger.DeleteMode(c.DefaultQuery("mode", string(ledger.DeleteCascade)))
		if err := registry.Delete(id, mode); err != nil {
			utils.FromError(c, err)
			return
		}
		utils.OKResponse(c, "Hostel deleted successfully", nil)
	}
}

// AnnouncementView is the public shape of one announcement.
type AnnouncementView struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	CreatedAt string    `json:"created_at"`
}

// handleListAnnouncements returns active announcements, newest first.
func handleListAnnouncements(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var announcements []models.Announcement
		if err := db.Where("is_active = ?", true).
			Order("created_at DESC").
			Find(&announcements).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch announcements")
			return
		}

		views := make([]AnnouncementView, 0, len(announcements))
		for _, a := range announcements {
			views = append(views, AnnouncementView{
				ID:        a.ID,
				Message:   a.Message,
				CreatedAt: a.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		utils.OKResponse(c, "Announcements retrieved successfully", views)
	}
}

// CreateAnnouncementRequest represents a new broadcast message
type CreateAnnouncementRequest struct {
	Message string `json:"message" binding:"required"`
}

func handleCreateAnnouncement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateAnnouncementRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		announcement := models.Announcement{
			Message:   req.Message,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}
		if userID, ok := middleware.CurrentUserID(c); ok {
			announcement.CreatedBy = &userID
		}

		if err := db.Create(&announcement).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create announcement")
			return
		}
		utils.CreatedResponse(c, "Announcement added successfully", announcement)
	}
}

func handleDeleteAnnouncement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid announcement id")
			return
		}

		res := db.Delete(&models.Announcement{}, "id = ?", id)
		if res.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete announcement")
			return
		}
		if res.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Announcement not found")
			return
		}
		utils.OKResponse(c, "Announcement deleted successfully", nil)
	}
}
