package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartdalali_backend/database"
	"smartdalali_backend/internal/auth"
	"smartdalali_backend/internal/config"
	"smartdalali_backend/internal/email"
	"smartdalali_backend/internal/gateway"
	"smartdalali_backend/internal/handlers"
	"smartdalali_backend/internal/logger"
	"smartdalali_backend/internal/middleware"
	"smartdalali_backend/internal/models"
	"smartdalali_backend/internal/repositories"
	"smartdalali_backend/internal/routes"
	"smartdalali_backend/internal/services"
	"smartdalali_backend/internal/validator"
	"smartdalali_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.Migrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	logger.Info("Migrations applied")

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter, worker := SetupRouter(cfg, gormDB)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	worker.Start(workerCtx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info(fmt.Sprintf("Server starting on %s", address))
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) (*gin.Engine, *workers.PaymentWorker) {
	v := validator.New()

	// A misconfigured gateway must not block startup: initiation answers 501
	// until credentials are provided.
	var stkPusher gateway.StkPusher
	darajaClient, err := gateway.NewDarajaClient(gateway.SettingsFromConfig(cfg.Mpesa))
	if err != nil {
		logger.Warn("M-Pesa gateway not configured, STK push disabled", "error", err.Error())
	} else {
		stkPusher = darajaClient
	}

	var mailer email.Sender
	if cfg.Email.SMTPHost != "" {
		mailer = email.NewGomailSender(email.Config{
			SMTPHost:  cfg.Email.SMTPHost,
			SMTPPort:  cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		})
	} else {
		logger.Warn("SMTP not configured, payment emails disabled")
		mailer = email.NoopSender{}
	}

	paymentRepo := repositories.NewPaymentRepository(gormDB)
	propertyRepo := repositories.NewPropertyRepository(gormDB)
	agentProfileRepo := repositories.NewAgentProfileRepository(gormDB)
	userRepo := repositories.NewUserRepository(gormDB)

	authService := services.NewAuthService(userRepo)
	paymentService := services.NewPaymentService(paymentRepo, propertyRepo, stkPusher, cfg.Mpesa.CallbackURL)
	reconcileService := services.NewReconcileService(paymentRepo, propertyRepo, agentProfileRepo, userRepo, mailer)
	receiptService := services.NewReceiptService(paymentRepo, cfg.Receipt.CompanyName, cfg.Receipt.CompanyEmail)

	appHandlers := &handlers.AppHandlers{
		AuthHandler:    handlers.NewAuthHandler(v, authService),
		PaymentHandler: handlers.NewPaymentHandler(v, paymentService, reconcileService, receiptService),
	}

	ginRouter := initializeGinRouter(cfg)
	routes.RegisterRoutes(ginRouter, appHandlers)

	worker := workers.NewPaymentWorker(
		paymentRepo,
		agentProfileRepo,
		time.Duration(cfg.Worker.StalePendingMinutes)*time.Minute,
	)

	return ginRouter, worker
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())
	ginRouter.Use(middleware.RequestIDMiddleware())
	ginRouter.Use(middleware.LoggingMiddleware())
	ginRouter.Use(middleware.CORSMiddleware())
	return ginRouter
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	adminEmail := cfg.FirstAdminEmail
	adminPassword := cfg.FirstAdminPassword

	if adminEmail == "" || adminPassword == "" {
		logger.Warn("FIRST_ADMIN_EMAIL or FIRST_ADMIN_PASSWORD is not set. Skipping admin seeding.")
		return nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	defer tx.Rollback()

	var adminUser models.User
	result := tx.Where("email = ?", adminEmail).First(&adminUser)

	if result.Error == nil {
		logger.Info("Admin user already exists. Skipping creation.", "email", adminEmail)
		tx.Rollback()
		return nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", result.Error)
	}

	logger.Warn("No admin user found with specified email. Creating first admin...", "email", adminEmail)

	hashedPassword, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	newAdmin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Role:         models.UserRoleAdmin,
		Status:       models.UserStatusActive,
	}

	if err := tx.Create(newAdmin).Error; err != nil {
		return fmt.Errorf("failed to create admin user in database: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit admin seed: %w", err)
	}

	logger.Info("First admin user created", "email", adminEmail)
	return nil
}
