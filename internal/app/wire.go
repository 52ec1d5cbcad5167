package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/cache/redis"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/handoff"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/notify"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
	"github.com/alanyoungcy/arbwatch/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Optional backends are nil
// when their section is disabled. It is constructed by Wire and torn down by
// the returned cleanup function.
type Dependencies struct {
	// Hand-off
	Snapshot *handoff.SnapshotFile
	Cursor   *handoff.CursorFile
	EventLog domain.EventLog // nil for the snapshot transport

	// Redis
	RateCache   domain.RateCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage
	Archiver *s3blob.Archiver

	// Postgres
	History domain.OpportunityStore

	Notifier *notify.Notifier
	Metrics  *metrics.Metrics

	// Checks are the health probes of the connected backends.
	Checks map[string]handler.Checker
}

// Wire constructs the detector's dependencies from cfg and returns them
// together with a cleanup function that should be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Metrics: metrics.New(),
		Checks:  make(map[string]handler.Checker),
	}

	rc, err := wireRedis(ctx, cfg, deps)
	if err != nil {
		return nil, nil, err
	}
	if rc != nil {
		closers = append(closers, func() { _ = rc.Close() })
	}
	if err := wireHandoff(cfg, rc, deps, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.History = postgres.NewOpportunityStore(pgClient.Pool())
		deps.Checks["postgres"] = pgClient.Health
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), cfg.S3.Prefix, logger)
		deps.Checks["s3"] = s3Client.Health
	}

	deps.Notifier = notify.NewNotifier(Senders(cfg.Notify, false, os.Stdout), cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// WireNotifier constructs only what a notifier pass needs: the hand-off
// files or stream, the optional Redis lock and the senders. With dryRun set
// every message goes to out instead of the configured senders.
func WireNotifier(ctx context.Context, cfg *config.Config, dryRun bool, out io.Writer, logger *slog.Logger) (*Dependencies, func(), error) {
	deps := &Dependencies{Checks: make(map[string]handler.Checker)}
	cleanup := func() {}

	rc, err := wireRedis(ctx, cfg, deps)
	if err != nil {
		return nil, nil, err
	}
	if rc != nil {
		cleanup = func() { _ = rc.Close() }
	}
	if err := wireHandoff(cfg, rc, deps, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	deps.Notifier = notify.NewNotifier(Senders(cfg.Notify, dryRun, out), cfg.Notify.Events, logger)
	return deps, cleanup, nil
}

func wireRedis(ctx context.Context, cfg *config.Config, deps *Dependencies) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
		KeyPrefix:  cfg.Redis.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: redis: %w", err)
	}
	deps.RateCache = redis.NewRateCache(rc)
	deps.RateLimiter = redis.NewRateLimiter(rc)
	deps.LockManager = redis.NewLockManager(rc)
	deps.Checks["redis"] = rc.Ping
	return rc, nil
}

// wireHandoff resolves the hand-off files under the configured directory and
// selects the event log for the transport.
func wireHandoff(cfg *config.Config, rc *redis.Client, deps *Dependencies, logger *slog.Logger) error {
	h := cfg.Handoff
	deps.Snapshot = handoff.NewSnapshotFile(filepath.Join(h.Dir, h.SnapshotFile))
	deps.Cursor = handoff.NewCursorFile(filepath.Join(h.Dir, h.CursorFile))

	switch h.Transport {
	case "snapshot":
		deps.EventLog = nil
	case "log":
		deps.EventLog = handoff.NewFileLog(filepath.Join(h.Dir, h.LogFile), logger)
	case "redis":
		if rc == nil {
			return fmt.Errorf("wire: transport redis requires redis.enabled")
		}
		deps.EventLog = redis.NewStreamLog(rc, h.Stream, h.StreamMaxLen)
	default:
		return fmt.Errorf("wire: unknown hand-off transport %q", h.Transport)
	}
	return nil
}

// Senders builds the notification channels. The console sender is used when
// requested, when nothing else is configured, and exclusively in dry-run.
func Senders(cfg config.NotifyConfig, dryRun bool, console io.Writer) []notify.Sender {
	if dryRun {
		return []notify.Sender{notify.NewConsoleSender(console)}
	}

	var senders []notify.Sender
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.TelegramBaseURL,
			cfg.TelegramToken,
			cfg.TelegramChatID,
		))
	}
	if cfg.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.DiscordWebhookURL))
	}
	if cfg.Console || len(senders) == 0 {
		senders = append(senders, notify.NewConsoleSender(console))
	}
	return senders
}
