// Package cli provides common CLI initialization utilities shared by
// cmd/trackbot and cmd/trackbot-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diogoviieira/register-track-bot/internal/config"
	"github.com/diogoviieira/register-track-bot/internal/log"
)

// SetupLogger initializes structured text logging at the LOG_LEVEL found in
// the environment and installs it as the default logger.
func SetupLogger(component string) *log.Logger {
	return log.NewText(os.Stdout, log.ParseLevel(os.Getenv("LOG_LEVEL")), component)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustConfig is LoadAndValidateConfig that exits the process on failure.
func MustConfig(logger *log.Logger) *config.Config {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// RunCleanup runs each cleanup step in order under a shared timeout and
// reports the first failure. Steps still run after one fails.
func RunCleanup(logger *log.Logger, timeout time.Duration, steps ...func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var first error
	for i, step := range steps {
		if step == nil {
			continue
		}
		if err := step(ctx); err != nil {
			logger.Error("Shutdown step failed", "step", i, log.FieldError, err)
			if first == nil {
				first = fmt.Errorf("shutdown step %d: %w", i, err)
			}
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached")
	} else {
		logger.Info("Shutdown complete")
	}
	return first
}
