package api

import (
	"github.com/gin-gonic/gin"

	"github.com/secureplay/training/internal/middleware"
	"github.com/secureplay/training/internal/models"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/pkg/config"
)

func SetupRouter(
	authHandler *AuthHandler,
	eventHandler *EventHandler,
	analyticsHandler *AnalyticsHandler,
	alertHandler *AlertHandler,
	reportHandler *ReportHandler,
	prometheusHandler *PrometheusHandler,
	cfg *config.Config,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (in order)
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())

	// CORS middleware (for development)
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoints (no auth required)
	healthHandler := NewHealthHandler(repository.GetDBProvider())
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)
	router.GET("/stats", healthHandler.RuntimeStats)

	// Prometheus scrape endpoint (no auth required)
	router.GET("/metrics", prometheusHandler.MetricsEndpoint)

	// Auth endpoints, with strict per-IP rate limiting
	authLimiter := middleware.NewRateLimiter(1, 5)
	auth := router.Group("/api/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/profile", middleware.AuthMiddleware(), authHandler.Profile)
	}

	// Event ingestion and queries
	eventsGroup := router.Group("/api/events")
	eventsGroup.Use(middleware.AuthMiddleware())
	{
		eventsGroup.POST("", eventHandler.Track)
		eventsGroup.POST("/batch", eventHandler.TrackBatch)
		eventsGroup.GET("", eventHandler.Query)
		eventsGroup.GET("/counts", eventHandler.Counts)
		eventsGroup.GET("/aggregates", eventHandler.Aggregates)
		eventsGroup.GET("/users/:id/activity", eventHandler.UserActivity)
	}

	// Analytics, restricted to managers and admins
	analytics := router.Group("/api/analytics")
	analytics.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleOrgAdmin, models.RoleManager))
	{
		analytics.GET("/resilience", analyticsHandler.ResilienceScore)
		analytics.GET("/resilience/history", analyticsHandler.ResilienceHistory)
		analytics.GET("/groups/:id/resilience", analyticsHandler.GroupScore)
		analytics.GET("/risk-matrix", analyticsHandler.RiskMatrix)
		analytics.GET("/knowledge-gaps", analyticsHandler.KnowledgeGaps)
		analytics.GET("/users/:id/risk", analyticsHandler.UserRisk)
		analytics.POST("/recalculate", analyticsHandler.Recalculate)
		analytics.POST("/reports", analyticsHandler.RequestReport)
	}

	// Alerts
	alerts := router.Group("/api/alerts")
	alerts.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleOrgAdmin, models.RoleManager))
	{
		alerts.GET("", alertHandler.Active)
		alerts.GET("/history", alertHandler.History)
		alerts.GET("/counts", alertHandler.Counts)
		alerts.POST("/:id/acknowledge", alertHandler.Acknowledge)
	}

	// Stored reports
	reportsGroup := router.Group("/api/reports")
	reportsGroup.Use(middleware.AuthMiddleware(), middleware.RequireRole(models.RoleOrgAdmin, models.RoleManager))
	{
		reportsGroup.GET("", reportHandler.List)
		reportsGroup.GET("/:id", reportHandler.Get)
	}

	return router
}
