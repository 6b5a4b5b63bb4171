package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nidaro/nidaro-backend/config"
	"github.com/nidaro/nidaro-backend/internal/app/controller"
	apperrors "github.com/nidaro/nidaro-backend/internal/errors"
	"github.com/nidaro/nidaro-backend/internal/metrics"
	"github.com/nidaro/nidaro-backend/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const version = "1.0.0"

type Router struct {
	authController     *controller.AuthController
	signupController   *controller.SignupController
	businessController *controller.BusinessController
	reportController   *controller.ReportController
	authMiddleware     *middleware.AuthMiddleware
	metrics            *metrics.Metrics
	gatherer           prometheus.Gatherer
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	signupController *controller.SignupController,
	businessController *controller.BusinessController,
	reportController *controller.ReportController,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		signupController:   signupController,
		businessController: businessController,
		reportController:   reportController,
		authMiddleware:     authMiddleware,
		metrics:            m,
		gatherer:           gatherer,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.SecurityHeaders(r.config.Security.Headers))
	router.Use(middleware.CORS(r.config.CORS))
	router.Use(middleware.MetricsMiddleware(r.metrics))

	router.GET("/", r.status)
	router.GET("/api/status", r.status)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Nidaro API is running",
		})
	})

	if r.config.Metrics.Enabled && r.gatherer != nil {
		router.GET(r.config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	authenticate := r.authMiddleware.Authenticate()

	auth := router.Group("/auth")
	{
		auth.POST("/login/mobile/otp", r.authController.RequestLoginOTP)
		auth.POST("/login/mobile/verify", r.authController.VerifyLoginOTP)
		auth.GET("/me", authenticate, r.authController.GetMe)
		auth.POST("/logout", authenticate, r.authController.Logout)

		signup := auth.Group("/signup/step")
		{
			signup.POST("/1", r.signupController.StartSignup)
			signup.POST("/1/verify", r.signupController.VerifySignupOTP)
			signup.POST("/2", r.signupController.SubmitPAN)
			signup.POST("/2/verify", r.signupController.VerifyPAN)
			signup.POST("/3", r.signupController.StartGSTINLookup)
			signup.POST("/4", r.signupController.ResolveGSTIN)
			signup.POST("/5", r.signupController.CompleteRegistration)
		}
	}

	business := router.Group("/business", authenticate)
	{
		business.GET("", r.businessController.Search)
		business.GET("/me", r.businessController.GetMine)
		business.PATCH("/refetch", r.businessController.StartRefetch)
		business.POST("/refetch/verify", r.businessController.CompleteRefetch)
	}

	reports := router.Group("/reports", authenticate)
	{
		reports.POST("", r.reportController.CreateReport)
		reports.GET("/my-reports", r.reportController.GetMyReports)
		reports.GET("/my-reports/export", r.reportController.ExportMyReports)
		reports.GET("/on-my-business", r.reportController.GetReportsOnMyBusiness)
		reports.POST("/evidence/upload-url", r.reportController.CreateEvidenceUpload)
		reports.GET("/business/:gstin", r.reportController.GetBusinessReports)
		reports.GET("/:id", r.reportController.GetReport)
		reports.POST("/:id/attest", r.reportController.Attest)
		reports.PATCH("/:id/dispute", r.reportController.Dispute)
	}

	router.NoRoute(func(c *gin.Context) {
		apperrors.NotFound(c, apperrors.ResourceNotFound, "Route not found")
	})

	return router
}

func (r *Router) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Nidaro API",
		"version":     version,
		"status":      "ok",
		"environment": r.config.Server.Environment,
	})
}
