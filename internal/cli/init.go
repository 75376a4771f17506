// Package cli provides common initialization shared by cmd/catatan and
// cmd/catatan-cli.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"catatan/internal/amqp"
	"catatan/internal/backend"
	"catatan/internal/config"
	"catatan/internal/core"
	applog "catatan/internal/log"
	"catatan/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at level and installs it as the
// slog default. An unknown level falls back to info.
func SetupLogger(level, component string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	logger := applog.NewText(os.Stdout, lvl, component)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", "log_level", level)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitReference creates the configured reference source.
func InitReference(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid reference backend configuration: %w", err)
	}
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("initialize %s reference backend: %w", cfg.ReferenceBackend, err)
	}
	return res, nil
}

// InitFormatter builds the amount formatter from the currency settings.
func InitFormatter(cfg *config.Config) (*core.CurrencyFormatter, error) {
	f, err := core.NewCurrencyFormatter(cfg.CurrencyLocale, cfg.CurrencyCode, cfg.CurrencySymbol)
	if err != nil {
		return nil, fmt.Errorf("invalid currency configuration: %w", err)
	}
	return f.WithFractionDigits(cfg.CurrencyFractionDigits), nil
}

// InitNotifier connects to the broker when AMQP_URL is set. It returns a nil
// Notifier, not a typed nil, when notifications are disabled or the broker is
// unreachable; commits never depend on the broker.
func InitNotifier(logger *slog.Logger, cfg *config.Config) (services.Notifier, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP notifications disabled")
		return nil, func() {}
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, continuing without notifications", "error", err)
		return nil, func() {}
	}
	logger.Info("AMQP notifications enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close failed", "error", err)
		}
	}
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
