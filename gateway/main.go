package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hostelpay/go-hostel-fee-system/shared/config"
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
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	// Initialize service clients
	serviceClients := &ServiceClients{
		AuthService:    NewServiceClient(getEnv("AUTH_SERVICE_URL", "http://localhost:8001")),
		TenantService:  NewServiceClient(getEnv("TENANT_SERVICE_URL", "http://localhost:8002")),
		StudentService: NewServiceClient(getEnv("STUDENT_SERVICE_URL", "http://localhost:8003")),
		PaymentService: NewServiceClient(getEnv("PAYMENT_SERVICE_URL", "http://localhost:8004")),
	}

	// Initialize Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", nil)
	})
	router.GET("/health/services", func(c *gin.Context) {
		utils.OKResponse(c, "Service status", serviceClients.GetServiceStatus())
	})

	adminRole := string(models.RoleAdmin)
	studentRole := string(models.RoleStudent)

	// Authentication routes (public)
	auth := router.Group("/auth")
	{
		auth.POST("/login", serviceClients.AuthService.ProxyRequest)
		auth.POST("/forgot-password", serviceClients.AuthService.ProxyRequest)
		auth.POST("/verify-otp", serviceClients.AuthService.ProxyRequest)
		auth.POST("/reset-password", serviceClients.AuthService.ProxyRequest)
	}

	// Public announcement feed
	router.GET("/announcements", serviceClients.TenantService.ProxyRequest)

	// Hostel management routes (admin only)
	consultancies := router.Group("/consultancies")
	consultancies.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(adminRole))
	{
		consultancies.GET("/", serviceClients.TenantService.ProxyRequest)
		consultancies.GET("/available-codes", serviceClients.TenantService.ProxyRequest)
		consultancies.GET("/:id", serviceClients.TenantService.ProxyRequest)
		consultancies.POST("/", serviceClients.TenantService.ProxyRequest)
		consultancies.PUT("/:id", serviceClients.TenantService.ProxyRequest)
		consultancies.POST("/:id/deactivate", serviceClients.TenantService.ProxyRequest)
		consultancies.DELETE("/:id", serviceClients.TenantService.ProxyRequest)
	}

	// Announcement management (admin only)
	adminAnnouncements := router.Group("/admin/announcements")
	adminAnnouncements.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(adminRole))
	{
		adminAnnouncements.POST("/", serviceClients.TenantService.ProxyRequest)
		adminAnnouncements.DELETE("/:id", serviceClients.TenantService.ProxyRequest)
	}

	// Student management and listings
	students := router.Group("/students")
	students.Use(authMiddleware.RequireAuth())
	{
		students.POST("/", authMiddleware.RequireRole(adminRole), serviceClients.StudentService.ProxyRequest)
		students.PUT("/:id", authMiddleware.RequireRole(adminRole), serviceClients.StudentService.ProxyRequest)
		students.DELETE("/:id", authMiddleware.RequireRole(adminRole), serviceClients.StudentService.ProxyRequest)
		students.POST("/upload", authMiddleware.RequireRole(adminRole), serviceClients.StudentService.ProxyRequest)
		students.GET("/template", authMiddleware.RequireRole(adminRole), serviceClients.StudentService.ProxyRequest)
		students.GET("/hostels", authMiddleware.RequireRole(adminRole), serviceClients.StudentService.ProxyRequest)

		students.GET("/", authMiddleware.RequireAgentOrAdmin(), serviceClients.StudentService.ProxyRequest)
		students.GET("/export", authMiddleware.RequireAgentOrAdmin(), serviceClients.StudentService.ProxyRequest)
	}

	// Staff dashboard
	router.GET("/dashboard", authMiddleware.RequireAuth(), authMiddleware.RequireAgentOrAdmin(),
		serviceClients.StudentService.ProxyRequest)

	// Student self-service
	me := router.Group("/me")
	me.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(studentRole))
	{
		me.GET("/dashboard", serviceClients.StudentService.ProxyRequest)
		me.POST("/send-otp", serviceClients.StudentService.ProxyRequest)
		me.POST("/change-password", serviceClients.StudentService.ProxyRequest)
	}

	// Payment flow
	payments := router.Group("/payments")
	payments.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(studentRole))
	{
		payments.POST("/create-order", serviceClients.PaymentService.ProxyRequest)
		payments.POST("/verify", serviceClients.PaymentService.ProxyRequest)
		payments.GET("/history", serviceClients.PaymentService.ProxyRequest)
	}

	// Transaction history for staff
	transactions := router.Group("/transactions")
	transactions.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAgentOrAdmin())
	{
		transactions.GET("/", serviceClients.PaymentService.ProxyRequest)
		transactions.GET("/export", serviceClients.PaymentService.ProxyRequest)
	}

	// Start server
	port := os.Getenv("API_GATEWAY_PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start API Gateway:", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
