package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/secureplay/training/internal/alerts"
	"github.com/secureplay/training/internal/api"
	"github.com/secureplay/training/internal/events"
	"github.com/secureplay/training/internal/ingestion"
	"github.com/secureplay/training/internal/jobs"
	"github.com/secureplay/training/internal/middleware"
	"github.com/secureplay/training/internal/reports"
	"github.com/secureplay/training/internal/repository"
	"github.com/secureplay/training/internal/scoring"
	"github.com/secureplay/training/internal/service"
	"github.com/secureplay/training/internal/storage"
	"github.com/secureplay/training/pkg/config"
	"github.com/secureplay/training/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.NewLogger(logger.ParseLevel(cfg.LogLevel), os.Stdout, cfg.LogJSON)
	logger.SetDefault(appLogger)

	logger.Info("Starting application", map[string]interface{}{
		"app":   cfg.AppName,
		"debug": cfg.Debug,
		"port":  cfg.Port,
	})

	// Initialize relational database
	if err := repository.InitDB(cfg); err != nil {
		logger.Fatal("Failed to initialize database", err, nil)
	}
	logger.Info("Database initialized", nil)

	db := repository.GetDB()

	// Event store (MongoDB with TTL-based retention)
	mongoClient, mongoDB, err := storage.ConnectMongo(storage.MongoConfig{
		URL:      cfg.MongoURL,
		Database: cfg.MongoDatabase,
	})
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", err, nil)
	}
	defer storage.DisconnectMongo(mongoClient)

	eventStore := events.NewMongoStore(mongoDB)

	// Optional InfluxDB mirror for dashboard time-series
	var mirror events.Mirror = events.NopMirror{}
	if cfg.InfluxDBURL != "" && cfg.InfluxDBToken != "" {
		influxClient, err := storage.ConnectInfluxDB(storage.InfluxDBConfig{
			URL:    cfg.InfluxDBURL,
			Token:  cfg.InfluxDBToken,
			Org:    cfg.InfluxDBOrg,
			Bucket: cfg.InfluxDBBucket,
		})
		if err != nil {
			logger.Warn("InfluxDB unavailable, events will not be mirrored", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer influxClient.Close()
			mirror = events.NewInfluxMirror(influxClient, cfg.InfluxDBOrg, cfg.InfluxDBBucket)
		}
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	orgRepo := repository.NewOrgRepository(db)
	riskRepo := repository.NewRiskRepository(db)
	resilienceRepo := repository.NewResilienceRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, cfg)
	middleware.SetAuthService(authService)

	riskService := scoring.NewRiskService(userRepo, progressRepo, orgRepo, riskRepo)
	resilienceService := scoring.NewResilienceService(userRepo, progressRepo, orgRepo, riskRepo, resilienceRepo)
	analyticsService := scoring.NewAnalyticsService(userRepo, progressRepo, orgRepo, riskRepo)
	alertEngine := alerts.NewEngine(userRepo, orgRepo, riskRepo, resilienceRepo, alertRepo)
	reportGenerator := reports.NewGenerator(userRepo, orgRepo, riskRepo, resilienceRepo, alertRepo, analyticsService)

	// Task queue
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	queueClient := jobs.NewClient(redisOpt)
	defer queueClient.Close()

	// Ingestion pipeline
	admission := ingestion.NewFixedWindowLimiter(cfg.IngestRateLimit, time.Second)
	ingestor := ingestion.NewIngestor(admission, queueClient)
	writer := ingestion.NewWriter(eventStore, mirror, cfg.EventRetentionDays)

	// Background workers
	workerPool := jobs.NewWorkerPool(redisOpt, jobs.Handlers{
		Ingest:  jobs.NewIngestHandler(writer),
		Scoring: jobs.NewScoringHandler(riskService, resilienceService, orgRepo),
		Alerts:  jobs.NewAlertHandler(alertEngine, orgRepo),
		Reports: jobs.NewReportHandler(reportGenerator, reportRepo),
	})
	defer workerPool.Shutdown()

	// Recurring tasks
	scheduler, err := jobs.NewScheduler(redisOpt, cfg.DailyCalculationCron, cfg.AlertCheckCron)
	if err != nil {
		logger.Fatal("Failed to build scheduler", err, nil)
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", err, nil)
	}
	defer scheduler.Shutdown()

	// HTTP handlers
	authHandler := api.NewAuthHandler(authService, userRepo)
	eventHandler := api.NewEventHandler(ingestor, eventStore)
	analyticsHandler := api.NewAnalyticsHandler(resilienceService, analyticsService, riskRepo, resilienceRepo, queueClient)
	alertHandler := api.NewAlertHandler(alertRepo)
	reportHandler := api.NewReportHandler(reportRepo)
	prometheusHandler := api.NewPrometheusHandler()

	router := api.SetupRouter(authHandler, eventHandler, analyticsHandler, alertHandler, reportHandler, prometheusHandler, cfg)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gracefully...", nil)

		scheduler.Shutdown()
		workerPool.Shutdown()
		mirror.Flush()
		storage.DisconnectMongo(mongoClient)

		logger.Info("Shutdown complete", nil)
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("Server starting", map[string]interface{}{
		"address":      addr,
		"api_endpoint": fmt.Sprintf("http://localhost%s/api", addr),
		"health_check": fmt.Sprintf("http://localhost%s/health", addr),
	})

	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", err, nil)
	}
}
