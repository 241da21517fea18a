package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"page-composer-backend/internal/constants"
)

// Auto-save store backends selectable with AUTOSAVE_STORE.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	// Database
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string
	LogLevel    string

	// CORS
	CORSOrigins []string

	// Storage
	DataDir       string
	ExportDir     string
	MaxImportSize int64

	// Auto-save
	AutoSaveStore         string
	AutoSaveEnabled       bool
	AutoSaveKey           string
	AutoSaveDebounceMS    int
	AutoSaveRetentionDays int

	// Builder
	HistoryMaxSize int
	EditSettleMS   int

	// Rate Limiting
	RateLimitRequests       int
	RateLimitWindow         int
	RateLimitBurst          int
	TransferRateLimit       int
	TransferRateLimitWindow int

	// Features
	EnableMetrics bool

	// Site Meta
	SiteName        string
	SiteDescription string
	SiteURL         string
}

func New() *Config {
	c := &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "composer"),
		DBPassword: getEnv("DB_PASSWORD", "composer"),
		DBName:     getEnv("DB_NAME", "composerdb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "localhost:6379"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// CORS
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),

		// Storage
		DataDir:       getEnv("DATA_DIR", "./data"),
		ExportDir:     getEnv("EXPORT_DIR", ""),
		MaxImportSize: int64(getEnvAsInt("MAX_IMPORT_SIZE", 5*1024*1024)),

		// Auto-save
		AutoSaveStore:         strings.ToLower(getEnv("AUTOSAVE_STORE", StoreMemory)),
		AutoSaveEnabled:       getEnvAsBool("AUTOSAVE_ENABLED", true),
		AutoSaveKey:           getEnv("AUTOSAVE_KEY", constants.AutoSaveKey),
		AutoSaveDebounceMS:    getEnvAsInt("AUTOSAVE_DEBOUNCE_MS", int(constants.AutoSaveDebounce/time.Millisecond)),
		AutoSaveRetentionDays: getEnvAsInt("AUTOSAVE_RETENTION_DAYS", 30),

		// Builder
		HistoryMaxSize: getEnvAsInt("HISTORY_MAX_SIZE", constants.MaxHistorySize),
		EditSettleMS:   getEnvAsInt("EDIT_SETTLE_MS", int(constants.EditSettleDelay/time.Millisecond)),

		// Rate Limiting
		RateLimitRequests:       getEnvAsInt("RATE_LIMIT_REQUESTS", 300),
		RateLimitWindow:         getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:          getEnvAsInt("RATE_LIMIT_BURST", 0),
		TransferRateLimit:       getEnvAsInt("TRANSFER_RATE_LIMIT", 20),
		TransferRateLimitWindow: getEnvAsInt("TRANSFER_RATE_LIMIT_WINDOW", 60),

		// Features
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),

		// Site Meta
		SiteName:        getEnv("SITE_NAME", constants.AutoSaveName),
		SiteDescription: getEnv("SITE_DESCRIPTION", constants.AutoSaveDescription),
		SiteURL:         getEnv("SITE_URL", ""),
	}

	if c.ExportDir == "" {
		c.ExportDir = c.DataDir + "/exports"
	}

	// Build DSN
	c.DatabaseURL = getEnv("DATABASE_URL", fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	))

	return c
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.AutoSaveStore {
	case StoreMemory, StoreFile, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unsupported AUTOSAVE_STORE %q", c.AutoSaveStore)
	}
	if c.AutoSaveDebounceMS <= 0 {
		return fmt.Errorf("AUTOSAVE_DEBOUNCE_MS must be positive")
	}
	if c.AutoSaveRetentionDays <= 0 {
		return fmt.Errorf("AUTOSAVE_RETENTION_DAYS must be positive")
	}
	if c.HistoryMaxSize <= 0 {
		return fmt.Errorf("HISTORY_MAX_SIZE must be positive")
	}
	if c.EditSettleMS <= 0 {
		return fmt.Errorf("EDIT_SETTLE_MS must be positive")
	}
	return nil
}

func (c *Config) AutoSaveDebounce() time.Duration {
	return time.Duration(c.AutoSaveDebounceMS) * time.Millisecond
}

func (c *Config) AutoSaveRetention() time.Duration {
	return time.Duration(c.AutoSaveRetentionDays) * 24 * time.Hour
}

func (c *Config) EditSettle() time.Duration {
	return time.Duration(c.EditSettleMS) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
