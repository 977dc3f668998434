package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	Debug   bool
	Port    string

	// Logging
	LogLevel string
	LogJSON  bool

	// Database (relational store: users, progress, scores, alerts)
	DatabaseType string
	DatabaseURL  string

	// Authentication
	JWTSecret string

	// MongoDB (time-series event store)
	MongoURL      string
	MongoDatabase string

	// Redis (task queue backend)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// InfluxDB (optional event mirror for dashboard time-series)
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string

	// Event ingestion
	EventRetentionDays int
	IngestRateLimit    int // admitted calls per org per second

	// Recurring schedules (cron expressions, server local time)
	DailyCalculationCron string
	AlertCheckCron       string
}

var AppConfig *Config

// Load loads configuration from environment
func Load() *Config {
	// Load .env file if exists
	_ = godotenv.Load()

	config := &Config{
		AppName:      getEnv("APP_NAME", "SecurePlay"),
		Debug:        getEnvBool("DEBUG", true),
		Port:         getEnv("PORT", "8000"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		LogJSON:      getEnvBool("LOG_JSON", false),
		DatabaseType: getEnv("DATABASE_TYPE", "postgres"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production-please-use-a-random-string"),

		MongoURL:      getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "secureplay_events"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		InfluxDBURL:    getEnv("INFLUXDB_URL", ""),
		InfluxDBToken:  getEnv("INFLUXDB_TOKEN", ""),
		InfluxDBOrg:    getEnv("INFLUXDB_ORG", "secureplay"),
		InfluxDBBucket: getEnv("INFLUXDB_BUCKET", "game_events"),

		EventRetentionDays: getEnvInt("EVENT_RETENTION_DAYS", 30),
		IngestRateLimit:    getEnvInt("INGEST_RATE_LIMIT", 100),

		DailyCalculationCron: getEnv("DAILY_CALCULATION_CRON", "0 2 * * *"),
		AlertCheckCron:       getEnv("ALERT_CHECK_CRON", "0 * * * *"),
	}

	AppConfig = config
	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Invalid boolean for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Invalid integer for %s, using default: %d", key, defaultValue)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}
