// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/gymops, cmd/gymops-worker, and cmd/gymops-import.
package cli

import (
	"os"

	"log/slog"

	"github.com/joho/godotenv"

	"gymops/internal/amqp"
	"gymops/internal/config"
	applog "gymops/internal/log"
	"gymops/internal/services"
	"gymops/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging for the given component
// and sets it as the default logger.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitOptionalPublisher connects to the broker when an AMQP URL is
// configured. A connection failure is logged and a nil publisher is
// returned, so imports still work with event delivery disabled.
func InitOptionalPublisher(logger *applog.Logger, cfg *config.Config) (services.Publisher, func()) {
	if cfg.AMQPURL == "" {
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, import events disabled", "error", err)
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}
