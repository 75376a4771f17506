// catatan-cli edits the transaction list from a terminal. It reads one
// command per line from stdin; type "help" for the list.
package main

import (
	"context"
	"os"
	"time"

	"catatan/internal/cli"
	"catatan/internal/editor"
	applog "catatan/internal/log"
	"catatan/internal/reference"
	"catatan/internal/services"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always runs.
func run() int {
	cli.LoadEnvFile()

	// Logs go to stderr so they do not interleave with the table output.
	lvl, _ := applog.ParseLevel(os.Getenv("LOG_LEVEL"))
	logger := applog.NewText(os.Stderr, lvl, applog.ComponentCLI)
	applog.SetDefault(logger)
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return 1
	}
	formatter, err := cli.InitFormatter(cfg)
	if err != nil {
		logger.Error("Invalid currency configuration", "error", err)
		return 1
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	ref, err := cli.InitReference(ctx, logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize reference backend", "error", err, "backend", cfg.ReferenceBackend)
		return 1
	}
	if ref.Cleanup != nil {
		defer func() { _ = ref.Cleanup() }()
	}
	data, err := reference.Load(ctx, ref.Reader)
	if err != nil {
		logger.Error("Failed to load reference data", "error", err)
		return 1
	}
	ed, err := editor.New(editor.Options{
		Accounts:   data.Accounts,
		Categories: data.Categories,
		Seed:       data.Opening,
	})
	if err != nil {
		logger.Error("Failed to create editor", "error", err)
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

	r := &repl{
		editor:    ed,
		commits:   commits,
		formatter: formatter,
		out:       os.Stdout,
	}
	if err := r.run(ctx, os.Stdin); err != nil {
		logger.Error("Input error", "error", err)
		return 1
	}
	return 0
}
