package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reader-annotations/internal/config"
	"reader-annotations/pkg/sanitize"
)

// Setting keys. Each one is also read from the upper-cased environment
// variable, so the CLI and the server share a .env file.
const (
	keyLogLevel       = "log_level"
	keyDatabaseDriver = "database_driver"
	keyDatabasePath   = "database_path"
	keyDatabaseURL    = "database_url"
	keyGoalTimezone   = "goal_timezone"
	keyTimeout        = "persistence_timeout"
	keyMaxLength      = "sanitize_max_length"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyDatabaseDriver, "sqlite")
	v.SetDefault(keyDatabasePath, "./reader.db")
	v.SetDefault(keyGoalTimezone, "UTC")
	v.SetDefault(keyTimeout, 10*time.Second)
	v.SetDefault(keyMaxLength, sanitize.DefaultMaxLength)

	root := &cobra.Command{
		Use:           "lectorctl",
		Short:         "Administer the reader annotations store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("db-driver", "", "database driver (sqlite or postgres)")
	flags.String("db-path", "", "sqlite database file")
	flags.String("db-url", "", "postgres connection URL")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("timezone", "", "zone goal windows are cut in")
	_ = v.BindPFlag(keyDatabaseDriver, flags.Lookup("db-driver"))
	_ = v.BindPFlag(keyDatabasePath, flags.Lookup("db-path"))
	_ = v.BindPFlag(keyDatabaseURL, flags.Lookup("db-url"))
	_ = v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(keyGoalTimezone, flags.Lookup("timezone"))

	root.AddCommand(
		newMigrateCmd(v),
		newSanitizeCmd(v),
		newPositionCmd(),
		newBooksCmd(v),
		newGoalsCmd(v),
	)
	return root
}

// appConfig builds the server configuration from flags, environment and defaults.
func appConfig(v *viper.Viper) *config.AppConfig {
	return &config.AppConfig{
		LogLevel:           v.GetString(keyLogLevel),
		LogFormat:          "text",
		DatabaseDriver:     v.GetString(keyDatabaseDriver),
		DatabasePath:       v.GetString(keyDatabasePath),
		DatabaseURL:        v.GetString(keyDatabaseURL),
		PersistenceTimeout: v.GetDuration(keyTimeout),
		CheckpointInterval: 5 * time.Minute,
		MinSessionDuration: time.Minute,
		SanitizeMaxLength:  v.GetInt(keyMaxLength),
		GoalTimezone:       v.GetString(keyGoalTimezone),
		RateLimitRPS:       1,
		RateLimitBurst:     1,
	}
}

func openContainer(v *viper.Viper) (*config.Container, error) {
	return config.NewContainerWithConfig(appConfig(v))
}
