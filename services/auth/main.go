package main

import (
	"errors"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hostelpay/go-hostel-fee-system/shared/config"
	"github.com/hostelpay/go-hostel-fee-system/shared/identity"
	"github.com/hostelpay/go-hostel-fee-system/shared/mailer"
	"github.com/hostelpay/go-hostel-fee-system/shared/middleware"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Initialize Redis for the reset-flow session markers
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := models.MigrateAll(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
	if err := seedDefaultAdmin(db); err != nil {
		log.Fatal("Failed to seed default admin:", err)
	}

	sesMailer, err := mailer.NewSESMailer(cfg.AWSRegion, cfg.MailSender)
	if err != nil {
		log.Fatal("Failed to initialize SES mailer:", err)
	}

	identitySvc := identity.NewService(db, sesMailer, utils.NewRedisCodeStore("auth"))
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Auth service is healthy", nil)
	})

	auth := router.Group("/auth")
	{
		auth.POST("/login", handleLogin(identitySvc, authMiddleware))
		auth.POST("/forgot-password", handleForgotPassword(identitySvc))
		auth.POST("/verify-otp", handleVerifyOTP(identitySvc))
		auth.POST("/reset-password", handleResetPassword(identitySvc))
	}

	// Start server
	port := os.Getenv("AUTH_SERVICE_PORT")
	if port == "" {
		port = "8001"
	}

	logrus.Infof("Auth service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start auth service:", err)
	}
}

// seedDefaultAdmin creates the bootstrap admin identity when none
// exists.
func seedDefaultAdmin(db *gorm.DB) error {
	var admin models.User
	err := db.Where("username = ?", "admin").First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		logrus.Warn("ADMIN_PASSWORD not set, using default admin password")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin = models.User{
		Username: "admin",
		Password: hash,
		Email:    getEnvDefault("ADMIN_EMAIL", "admin@hostelpay.local"),
		Role:     models.RoleAdmin,
	}
	return db.Create(&admin).Error
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
