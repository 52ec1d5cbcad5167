package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/checkpoint"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/handoff"
)

// notifierLockTTL bounds how long a crashed pass can block the next one when
// the lock lives in Redis.
const notifierLockTTL = 5 * time.Minute

// NotifyOnce runs a single checkpoint pass while holding the single-instance
// lock: the Redis lock when Redis is configured, otherwise a PID file next to
// the hand-off files.
func NotifyOnce(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger) (checkpoint.Result, error) {
	unlock, err := acquireNotifierLock(ctx, cfg, deps)
	if err != nil {
		return checkpoint.Result{}, err
	}
	defer unlock()

	consumer := checkpoint.NewConsumer(checkpoint.Config{
		Snapshot:  deps.Snapshot,
		Cursor:    deps.Cursor,
		Log:       deps.EventLog,
		BatchSize: cfg.Handoff.BatchSize,
		Notifier:  deps.Notifier,
		Logger:    logger,
	})
	return consumer.Run(ctx)
}

func acquireNotifierLock(ctx context.Context, cfg *config.Config, deps *Dependencies) (func(), error) {
	if deps.LockManager != nil {
		unlock, err := deps.LockManager.Acquire(ctx, "notifier", notifierLockTTL)
		if err != nil {
			return nil, fmt.Errorf("app: notifier lock: %w", err)
		}
		return unlock, nil
	}

	lock := handoff.NewPIDLock(filepath.Join(cfg.Handoff.Dir, cfg.Handoff.PIDFile))
	if err := lock.Acquire(); err != nil {
		return nil, fmt.Errorf("app: notifier lock: %w", err)
	}
	return func() { _ = lock.Release() }, nil
}

// PrintResult writes the pass result to w. When a console sender is
// configured it has already printed each message, so only the status lines
// are written.
func PrintResult(w io.Writer, res checkpoint.Result, deps *Dependencies) error {
	if deps.Notifier != nil && deps.Notifier.Has("console") {
		return checkpoint.WriteHeader(w, res)
	}
	return checkpoint.WriteResult(w, res)
}
