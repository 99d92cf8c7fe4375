package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hostelpay/go-hostel-fee-system/shared/config"
	"github.com/hostelpay/go-hostel-fee-system/shared/identity"
	"github.com/hostelpay/go-hostel-fee-system/shared/ledger"
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

	// Initialize Redis for the step-up verification sessions
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sesMailer, err := mailer.NewSESMailer(cfg.AWSRegion, cfg.MailSender)
	if err != nil {
		log.Fatal("Failed to initialize SES mailer:", err)
	}

	auditor := ledger.NewAuditor(db)
	students := ledger.NewStudentLedger(db, auditor)
	registry := ledger.NewRegistry(db)
	importer := ledger.NewImporter(db, students)
	identitySvc := identity.NewService(db, sesMailer, utils.NewRedisCodeStore("stepup"))
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Student service is healthy", nil)
	})

	adminRole := string(models.RoleAdmin)

	// Student management (admin only)
	admin := router.Group("/students")
	admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(adminRole))
	{
		admin.POST("/", handleAddStudent(students))
		admin.PUT("/:id", handleUpdateStudent(students))
		admin.DELETE("/:id", handleDeleteStudent(students))
		admin.POST("/upload", handleUploadStudents(importer))
		admin.GET("/template", handleSampleTemplate())
		admin.GET("/hostels", handleActiveHostels(registry))
	}

	// Scoped listings and exports (admin sees all, agent their hostel)
	scoped := router.Group("/")
	scoped.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAgentOrAdmin())
	{
		scoped.GET("/students", handleListStudents(students))
		scoped.GET("/students/export", handleExportStudents(students))
		scoped.GET("/dashboard", handleDashboard(db, students))
	}

	// Student self-service
	me := router.Group("/me")
	me.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(string(models.RoleStudent)))
	{
		me.GET("/dashboard", handleStudentDashboard(db, students))
		me.POST("/send-otp", handleSendStepUpCode(identitySvc))
		me.POST("/change-password", handleChangeVerifiedPassword(identitySvc))
	}

	// Start server
	port := os.Getenv("STUDENT_SERVICE_PORT")
	if port == "" {
		port = "8003"
	}

	logrus.Infof("Student service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start student service:", err)
	}
}
