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
	"github.com/hostelpay/go-hostel-fee-system/shared/payment"
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

	producer := NewKafkaProducer(cfg.KafkaBroker)
	defer producer.Close()

	auditor := ledger.NewAuditor(db)
	students := ledger.NewStudentLedger(db, auditor)
	recorder := ledger.NewRecorder(db, payment.NewRazorpayGateway, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, producer)
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Payment service is healthy", nil)
	})

	// Student-facing payment flow
	pay := router.Group("/payments")
	pay.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(string(models.RoleStudent)))
	{
		pay.POST("/create-order", handleCreateOrder(students, recorder))
		pay.POST("/verify", handleVerifyPayment(students, recorder))
		pay.GET("/history", handleOwnHistory(students, recorder))
	}

	// Staff-facing transaction history
	staff := router.Group("/transactions")
	staff.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAgentOrAdmin())
	{
		staff.GET("/", handleTransactionHistory(recorder))
		staff.GET("/export", handleExportTransactions(recorder))
	}

	// Start server
	port := os.Getenv("PAYMENT_SERVICE_PORT")
	if port == "" {
		port = "8004"
	}

	logrus.Infof("Payment service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start payment service:", err)
	}
}
