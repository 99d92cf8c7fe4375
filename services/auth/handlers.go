package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hostelpay/go-hostel-fee-system/shared/identity"
	"github.com/hostelpay/go-hostel-fee-system/shared/middleware"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

const tokenTTL = 12 * time.Hour

// LoginRequest represents the login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *models.User `json:"user"`
}

// handleLogin verifies credentials and issues a JWT carrying the role
// and tenant claims the other services enforce.
func handleLogin(svc *identity.Service, am *middleware.AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		user, err := svc.Authenticate(req.Username, req.Password)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		token, err := am.IssueToken(user, tokenTTL)
		if err != nil {
			logrus.WithError(err).Error("failed to sign token")
			utils.InternalServerErrorResponse(c, "Failed to issue token")
			return
		}

		utils.OKResponse(c, "Login successful", LoginResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(tokenTTL.Seconds()),
			User:        user,
		})
	}
}

// ForgotPasswordRequest starts the OTP reset flow.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func handleForgotPassword(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		userID, deliveryErr, err := svc.RequestReset(req.Email)
		if err != nil {
			utils.FromError(c, err)
			return
		}

		data := gin.H{"user_id": userID}
		if deliveryErr != nil {
			// The code is stored; only the email failed.
			logrus.WithError(deliveryErr).Warn("reset OTP delivery failed")
			data["delivery"] = "failed"
		}
		utils.OKResponse(c, "OTP sent to your email", data)
	}
}

// VerifyOTPRequest carries the reset code back.
type VerifyOTPRequest struct {
	UserID string `json:"user_id" binding:"required"`
	OTP    string `json:"otp" binding:"required"`
}

func handleVerifyOTP(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifyOTPRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid user id")
			return
		}

		if err := svc.VerifyResetCode(userID, req.OTP); err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "OTP verified", nil)
	}
}

// ResetPasswordRequest completes the reset flow.
type ResetPasswordRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func handleResetPassword(svc *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid user id")
			return
		}

		if err := svc.CompleteReset(userID, req.Password); err != nil {
			utils.FromError(c, err)
			return
		}

		utils.OKResponse(c, "Password reset successful", nil)
	}
}
