package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hostelpay/go-hostel-fee-system/shared/config"
	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
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

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	registry := ledger.NewRegistry(db)
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Tenant service is healthy", nil)
	})

	// Public announcement feed
	router.GET("/announcements", handleListAnnouncements(db))

	// Hostel management routes (admin only)
	consultancies := router.Group("/consultancies")
	consultancies.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(string(models.RoleAdmin)))
	{
		consultancies.GET("/", handleListConsultancies(registry))
		consultancies.GET("/available-codes", handleAvailableCodes(registry))
		consultancies.GET("/:id", handleGetConsultancy(registry))
		consultancies.POST("/", handleCreateConsultancy(registry))
		consultancies.PUT("/:id", handleUpdateConsultancy(registry))
		consultancies.POST("/:id/deactivate", handleDeactivateConsultancy(registry))
		consultancies.DELETE("/:id", handleDeleteConsultancy(registry))
	}

	// Announcement management (admin only)
	admin := router.Group("/admin/announcements")
	admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(string(models.RoleAdmin)))
	{
		admin.POST("/", handleCreateAnnouncement(db))
		admin.DELETE("/:id", handleDeleteAnnouncement(db))
	}

	// Start server
	port := os.Getenv("TENANT_SERVICE_PORT")
	if port == "" {
		port = "8002"
	}

	logrus.Infof("Tenant service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start tenant service:", err)
	}
}
