package domain

import "time"

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetLogFormat() string
	GetDatabaseDriver() string
	GetDatabasePath() string
	GetDatabaseURL() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetPersistenceTimeout() time.Duration
	GetCheckpointInterval() time.Duration
	GetMinSessionDuration() time.Duration
	GetSanitizeMaxLength() int
	GetGoalLocation() *time.Location
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}
