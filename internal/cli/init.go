// Package cli holds the start-up steps shared by the commands in cmd/.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fleetledger/internal/backend"
	"fleetledger/internal/config"
	applog "fleetledger/internal/log"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads .env and the configuration, installs the process logger
// for component and exits when the configuration is invalid.
func Bootstrap(component string) (*config.Config, *applog.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := applog.Setup(cfg.LogLevel, component)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg, logger
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// OpenBackend creates the configured store. withEvents controls whether an
// AMQP publisher is attached when a broker URL is configured. Failure exits.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *applog.Logger, withEvents bool) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if !withEvents {
		backendCfg.AMQPURL = ""
	}

	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// Close runs the backend cleanup, logging a failure.
func Close(logger *applog.Logger, result *backend.BackendResult) {
	if result == nil || result.Cleanup == nil {
		return
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", "error", err)
	}
}
