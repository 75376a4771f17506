package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"catatan/internal/cache"
	"catatan/internal/cli"
	apphttp "catatan/internal/http"
	applog "catatan/internal/log"
	"catatan/internal/services"
	"catatan/internal/session"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always runs.
func run() int {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return 1
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	ref, err := cli.InitReference(ctx, logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize reference backend", "error", err, "backend", cfg.ReferenceBackend)
		return 1
	}
	defer func() {
		if ref.Cleanup != nil {
			if err := ref.Cleanup(); err != nil {
				logger.Warn("Reference backend cleanup failed", "error", err)
			}
		}
	}()

	formatter, err := cli.InitFormatter(cfg)
	if err != nil {
		logger.Error("Invalid currency configuration", "error", err)
		return 1
	}
	notifier, closeNotifier := cli.InitNotifier(logger.Logger, cfg)
	defer closeNotifier()

	commits := services.NewCommitService(notifier, logger)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := commits.Shutdown(sctx); err != nil {
			logger.Warn("Pending commit notifications not published", "error", err)
		}
	}()

	sessions, err := session.NewStore(session.Options{
		Reader:  ref.Reader,
		TTL:     cfg.SessionTTL,
		MaxSize: cfg.SessionMax,
		Logger:  logger.WithComponent(applog.ComponentSession).Logger,
	})
	if err != nil {
		logger.Error("Failed to create session store", "error", err)
		return 1
	}
	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	caches.Register(sessions.Cache())

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Sessions:           sessions,
		Commits:            commits,
		Formatter:          formatter,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SessionTTL:         cfg.SessionTTL,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		caches.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting catatan server", "port", cfg.Port, "backend", cfg.ReferenceBackend)
		return srv.Run(gctx, 30*time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		return 1
	}
	logger.Info("Server stopped gracefully")
	return 0
}
