// Command arbnotify delivers what the arbwatch detector has published since
// the last run. It is meant to be started by cron or a CI schedule: it reads
// the hand-off state, sends each new message once, advances its cursor and
// exits. Logs go to stderr so stdout carries only the delivery summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/arbwatch/internal/app"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/logging"
)

func main() {
	configPath := flag.String("config", "arbwatch.toml", "path to configuration file")
	dryRun := flag.Bool("dry-run", false, "print messages instead of sending them")
	flag.Parse()

	if err := run(*configPath, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := logging.NewTo(os.Stderr, cfg.LogLevel, cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := app.WireNotifier(ctx, cfg, dryRun, os.Stdout, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := app.NotifyOnce(ctx, cfg, deps, logger)
	if err != nil {
		logger.Error("notifier run failed", slog.String("error", err.Error()))
		return err
	}
	logger.Info("notifier run complete",
		slog.Bool("found", res.Found),
		slog.Int("messages", len(res.Messages)),
		slog.Bool("dry_run", dryRun),
	)
	return app.PrintResult(os.Stdout, res, deps)
}
