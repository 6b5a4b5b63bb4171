package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nidaro/nidaro-backend/config"
	"github.com/nidaro/nidaro-backend/internal/app/controller"
	"github.com/nidaro/nidaro-backend/internal/app/repository"
	"github.com/nidaro/nidaro-backend/internal/app/service"
	"github.com/nidaro/nidaro-backend/internal/db"
	"github.com/nidaro/nidaro-backend/internal/metrics"
	"github.com/nidaro/nidaro-backend/internal/middleware"
	"github.com/nidaro/nidaro-backend/internal/router"
	"github.com/nidaro/nidaro-backend/internal/scheduler"
	"github.com/nidaro/nidaro-backend/internal/storage"
	"github.com/nidaro/nidaro-backend/pkg/gstportal"
	"github.com/nidaro/nidaro-backend/pkg/logger"
	"github.com/nidaro/nidaro-backend/pkg/redis"
	"github.com/nidaro/nidaro-backend/pkg/sms"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting Nidaro Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Initialize Redis (sessions and token blacklist)
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to initialize Redis", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	// External clients
	smsConfig := sms.Config{
		AccountSID:       cfg.Twilio.AccountSID,
		AuthToken:        cfg.Twilio.AuthToken,
		VerifyServiceSID: cfg.Twilio.VerifyServiceSID,
		BaseURL:          cfg.Twilio.BaseURL,
		Timeout:          cfg.Twilio.Timeout,
	}
	if smsConfig.DevMode() {
		if cfg.Server.Environment == "production" {
			logger.Fatal("Twilio credentials are required in production", nil)
		}
		logger.Warn("Twilio credentials missing, SMS client runs in development mode", nil)
	}
	otpClient := sms.NewClient(smsConfig)
	portalClient := gstportal.NewClient(cfg.GSTPortal.BaseURL, cfg.GSTPortal.Timeout)

	var evidence service.EvidenceStorage
	if cfg.S3.Bucket != "" {
		evidence = storage.NewS3Storage(cfg.S3)
	} else {
		logger.Warn("AWS_S3_BUCKET not set, evidence uploads are disabled", nil)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db.GetDB())
	businessRepo := repository.NewBusinessRepository(db.GetDB())
	reportRepo := repository.NewReportRepository(db.GetDB())
	sessionRepo := repository.NewSessionRepository(redis.GetClient())

	// Initialize services
	authService := service.NewAuthService(
		accountRepo,
		businessRepo,
		reportRepo,
		otpClient,
		cfg.JWT.Secret,
		cfg.JWT.TokenExpiry,
	)
	signupService := service.NewSignupService(accountRepo, businessRepo, sessionRepo, otpClient, portalClient, cfg.Security, m)
	businessService := service.NewBusinessService(businessRepo, sessionRepo, portalClient, cfg.Security, m)
	reportService := service.NewReportService(reportRepo, businessRepo, accountRepo, evidence, cfg.Reports, cfg.Security, m)

	// Initialize controllers
	authController := controller.NewAuthController(authService, cfg.JWT.CookieName, cfg.JWT.TokenExpiry)
	signupController := controller.NewSignupController(signupService)
	businessController := controller.NewBusinessController(businessService)
	reportController := controller.NewReportController(reportService)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.CookieName)

	// Report stats for the status gauge
	statsScheduler := scheduler.NewReportStatsScheduler(reportRepo, m, cfg.Reports.StatsCron)
	if err := statsScheduler.Start(); err != nil {
		logger.Error("Failed to start report stats scheduler", err)
	} else {
		defer statsScheduler.Stop()
	}

	// Setup router
	r := router.NewRouter(
		authController,
		signupController,
		businessController,
		reportController,
		authMiddleware,
		m,
		prometheus.DefaultGatherer,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	logger.Info("Server stopped successfully")
}
