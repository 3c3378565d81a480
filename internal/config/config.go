package config

import (
	"os"
	"strconv"
	"time"

	"reader-annotations/internal/domain"
	"reader-annotations/pkg/sanitize"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort         string
	LogLevel           string
	LogFormat          string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseURL        string
	SupabaseURL        string
	SupabaseKey        string
	PersistenceTimeout time.Duration
	CheckpointInterval time.Duration
	MinSessionDuration time.Duration
	SanitizeMaxLength  int
	GoalTimezone       string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:         getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "text"),
		DatabaseDriver:     getEnvOrDefault("DATABASE_DRIVER", "sqlite"),
		DatabasePath:       getEnvOrDefault("DATABASE_PATH", "./reader.db"),
		DatabaseURL:        getEnvOrDefault("DATABASE_URL", ""),
		SupabaseURL:        getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:        getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		PersistenceTimeout: getEnvDurationOrDefault("PERSISTENCE_TIMEOUT", 5*time.Second),
		CheckpointInterval: getEnvDurationOrDefault("CHECKPOINT_INTERVAL", 5*time.Minute),
		MinSessionDuration: getEnvDurationOrDefault("MIN_SESSION_DURATION", time.Minute),
		SanitizeMaxLength:  getEnvIntOrDefault("SANITIZE_MAX_LENGTH", sanitize.DefaultMaxLength),
		GoalTimezone:       getEnvOrDefault("GOAL_TIMEZONE", "UTC"),
		RateLimitRPS:       getEnvFloatOrDefault("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvIntOrDefault("RATE_LIMIT_BURST", 20),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetLogFormat returns "text" or "json"
func (c *AppConfig) GetLogFormat() string {
	return c.LogFormat
}

func (c *AppConfig) GetDatabaseDriver() string {
	return c.DatabaseDriver
}

func (c *AppConfig) GetDatabasePath() string {
	return c.DatabasePath
}

func (c *AppConfig) GetDatabaseURL() string {
	return c.DatabaseURL
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetPersistenceTimeout bounds every store round trip made on behalf of a request.
func (c *AppConfig) GetPersistenceTimeout() time.Duration {
	return c.PersistenceTimeout
}

func (c *AppConfig) GetCheckpointInterval() time.Duration {
	return c.CheckpointInterval
}

func (c *AppConfig) GetMinSessionDuration() time.Duration {
	return c.MinSessionDuration
}

func (c *AppConfig) GetSanitizeMaxLength() int {
	return c.SanitizeMaxLength
}

// GetGoalLocation returns the zone goal windows are cut in. An unknown zone
// name falls back to UTC.
func (c *AppConfig) GetGoalLocation() *time.Location {
	loc, err := time.LoadLocation(c.GoalTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *AppConfig) GetRateLimitRPS() float64 {
	return c.RateLimitRPS
}

func (c *AppConfig) GetRateLimitBurst() int {
	return c.RateLimitBurst
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
