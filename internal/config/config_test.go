package config

import (
	"testing"
	"time"
)

var configKeys = []string{
	"PORT", "SERVER_PORT", "LOG_LEVEL", "LOG_FORMAT", "DATABASE_DRIVER", "DATABASE_PATH",
	"DATABASE_URL", "SUPABASE_URL", "SUPABASE_ANON_KEY", "PERSISTENCE_TIMEOUT",
	"CHECKPOINT_INTERVAL", "MIN_SESSION_DURATION", "SANITIZE_MAX_LENGTH", "GOAL_TIMEZONE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()

	if cfg.GetServerPort() != "8080" {
		t.Fatalf("expected default server port 8080, got %s", cfg.GetServerPort())
	}
	if cfg.GetLogLevel() != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.GetLogLevel())
	}
	if cfg.GetLogFormat() != "text" {
		t.Fatalf("expected default log format text, got %s", cfg.GetLogFormat())
	}
	if cfg.GetDatabaseDriver() != "sqlite" {
		t.Fatalf("expected default driver sqlite, got %s", cfg.GetDatabaseDriver())
	}
	if cfg.GetDatabasePath() != "./reader.db" {
		t.Fatalf("expected default database path, got %s", cfg.GetDatabasePath())
	}
	if cfg.GetSupabaseURL() != "" {
		t.Fatalf("expected default supabase url empty, got %s", cfg.GetSupabaseURL())
	}
	if cfg.GetPersistenceTimeout() != 5*time.Second {
		t.Fatalf("expected default persistence timeout 5s, got %s", cfg.GetPersistenceTimeout())
	}
	if cfg.GetCheckpointInterval() != 5*time.Minute {
		t.Fatalf("expected default checkpoint interval 5m, got %s", cfg.GetCheckpointInterval())
	}
	if cfg.GetMinSessionDuration() != time.Minute {
		t.Fatalf("expected default min session 1m, got %s", cfg.GetMinSessionDuration())
	}
	if cfg.GetSanitizeMaxLength() != 1000 {
		t.Fatalf("expected default max length 1000, got %d", cfg.GetSanitizeMaxLength())
	}
	if cfg.GetGoalLocation() != time.UTC {
		t.Fatalf("expected UTC goal location, got %s", cfg.GetGoalLocation())
	}
	if cfg.GetRateLimitRPS() != 5 || cfg.GetRateLimitBurst() != 20 {
		t.Fatalf("unexpected rate limit defaults: %v/%d", cfg.GetRateLimitRPS(), cfg.GetRateLimitBurst())
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/reader")
	t.Setenv("SUPABASE_URL", "http://localhost:54321")
	t.Setenv("SUPABASE_ANON_KEY", "test-key")
	t.Setenv("PERSISTENCE_TIMEOUT", "750ms")
	t.Setenv("CHECKPOINT_INTERVAL", "30s")
	t.Setenv("MIN_SESSION_DURATION", "90s")
	t.Setenv("SANITIZE_MAX_LENGTH", "200")
	t.Setenv("GOAL_TIMEZONE", "Europe/Berlin")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "3")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9090" {
		t.Fatalf("expected server port 9090, got %s", cfg.GetServerPort())
	}
	if cfg.GetLogLevel() != "debug" || cfg.GetLogFormat() != "json" {
		t.Fatalf("unexpected log settings: %s %s", cfg.GetLogLevel(), cfg.GetLogFormat())
	}
	if cfg.GetDatabaseDriver() != "postgres" || cfg.GetDatabaseURL() != "postgres://localhost/reader" {
		t.Fatalf("unexpected database settings: %s %s", cfg.GetDatabaseDriver(), cfg.GetDatabaseURL())
	}
	if cfg.GetSupabaseKey() != "test-key" {
		t.Fatalf("expected supabase key test-key, got %s", cfg.GetSupabaseKey())
	}
	if cfg.GetPersistenceTimeout() != 750*time.Millisecond {
		t.Fatalf("expected 750ms, got %s", cfg.GetPersistenceTimeout())
	}
	if cfg.GetCheckpointInterval() != 30*time.Second {
		t.Fatalf("expected 30s, got %s", cfg.GetCheckpointInterval())
	}
	if cfg.GetMinSessionDuration() != 90*time.Second {
		t.Fatalf("expected 90s, got %s", cfg.GetMinSessionDuration())
	}
	if cfg.GetSanitizeMaxLength() != 200 {
		t.Fatalf("expected 200, got %d", cfg.GetSanitizeMaxLength())
	}
	if cfg.GetGoalLocation().String() != "Europe/Berlin" {
		t.Fatalf("expected Europe/Berlin, got %s", cfg.GetGoalLocation())
	}
	if cfg.GetRateLimitRPS() != 0.5 || cfg.GetRateLimitBurst() != 3 {
		t.Fatalf("unexpected rate limit: %v/%d", cfg.GetRateLimitRPS(), cfg.GetRateLimitBurst())
	}
}

func TestNewConfig_Fallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("PERSISTENCE_TIMEOUT", "soon")
	t.Setenv("SANITIZE_MAX_LENGTH", "not-a-number")
	t.Setenv("GOAL_TIMEZONE", "Mars/Olympus_Mons")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9091" {
		t.Fatalf("expected server port 9091, got %s", cfg.GetServerPort())
	}
	if cfg.GetPersistenceTimeout() != 5*time.Second {
		t.Fatalf("expected default persistence timeout, got %s", cfg.GetPersistenceTimeout())
	}
	if cfg.GetSanitizeMaxLength() != 1000 {
		t.Fatalf("expected default max length, got %d", cfg.GetSanitizeMaxLength())
	}
	if cfg.GetGoalLocation() != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", cfg.GetGoalLocation())
	}
}
