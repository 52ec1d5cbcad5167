package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/config"
)

// Cadence chooses the pause between scan cycles. Inside the market session,
// [OpenHour, CloseHour) in UTC, cycles run every Market; otherwise every
// OffHours.
type Cadence struct {
	OpenHour  int
	CloseHour int
	Market    time.Duration
	OffHours  time.Duration
}

// CadenceFrom builds a Cadence from the schedule section.
func CadenceFrom(cfg config.ScheduleConfig) Cadence {
	return Cadence{
		OpenHour:  cfg.MarketOpenHourUTC,
		CloseHour: cfg.MarketCloseHourUTC,
		Market:    cfg.MarketInterval.Duration,
		OffHours:  cfg.OffHoursInterval.Duration,
	}
}

// Next returns the pause after a cycle that started at now.
func (c Cadence) Next(now time.Time) time.Duration {
	h := now.UTC().Hour()
	if h >= c.OpenHour && h < c.CloseHour {
		return c.Market
	}
	return c.OffHours
}

// due reports whether at least every has elapsed between last and now.
func due(last, now time.Time, every time.Duration) bool {
	return now.Sub(last) >= every
}

// runLoop runs cycle, then sleeps for the cadence, until ctx is cancelled.
// Cancellation is only observed between cycles: a cycle runs on a context
// that is not cancelled with ctx, so a scan in progress always completes and
// is persisted. An error from cycle ends the loop.
func runLoop(ctx context.Context, cadence Cadence, now func() time.Time, logger *slog.Logger, cycle func(context.Context) error) error {
	for ctx.Err() == nil {
		started := now()
		if err := cycle(context.WithoutCancel(ctx)); err != nil {
			return err
		}

		wait := cadence.Next(started)
		logger.InfoContext(ctx, "cycle complete",
			slog.Duration("next_in", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
	return nil
}
