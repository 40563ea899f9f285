// Package cli provides common initialization shared by the tutorledger
// binaries.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"tutorledger/internal/config"
	"tutorledger/internal/store/sqlite"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the default logger.
func SetupLogger() *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite store at the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *slog.Logger, dbPath string) *sqlite.Repository {
	repo, err := sqlite.New(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}
