package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrMissingAPIKey is returned when no upstream credential is configured.
// The service refuses to start without one rather than failing per call.
var ErrMissingAPIKey = errors.New("FMP_API_KEY is not configured")

type Config struct {
	Port        string
	Environment string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	SQLitePath string

	FMPAPIKey          string
	FMPBaseURL         string
	RateLimitPerMinute int

	CollectIntervalMinutes int

	MongoURI string
}

// LoadConfig loads environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "marketpulse"),
		SQLitePath: getEnv("SQLITE_PATH", "market_data.db"),

		FMPAPIKey:          getEnv("FMP_API_KEY", ""),
		FMPBaseURL:         getEnv("FMP_BASE_URL", ""),
		RateLimitPerMinute: getEnvInt("FMP_RATE_LIMIT_PER_MINUTE", 30),

		CollectIntervalMinutes: getEnvInt("COLLECT_INTERVAL_MINUTES", 15),

		MongoURI: getEnv("MONGODB_URI", ""),
	}

	if cfg.FMPAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if cfg.RateLimitPerMinute < 1 {
		log.Printf("Warning: invalid FMP_RATE_LIMIT_PER_MINUTE %d, using 30", cfg.RateLimitPerMinute)
		cfg.RateLimitPerMinute = 30
	}

	// Collection runs on clock boundaries, so the interval must divide the hour
	if cfg.CollectIntervalMinutes < 1 || 60%cfg.CollectIntervalMinutes != 0 {
		log.Printf("Warning: COLLECT_INTERVAL_MINUTES %d does not divide 60, using 15", cfg.CollectIntervalMinutes)
		cfg.CollectIntervalMinutes = 15
	}

	return cfg, nil
}

// InitDB opens the database connection. Postgres is used when DB_HOST is
// configured; otherwise the service falls back to a local SQLite file.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Warn
	}
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var db *gorm.DB
	var err error

	if cfg.DBHost != "" {
		log.Printf("Connecting to postgres: host=%s port=%s dbname=%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
		)
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	} else {
		log.Printf("Using sqlite database at %s", cfg.SQLitePath)
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection with ping
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: %s=%q is not a number, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}
