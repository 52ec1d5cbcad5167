package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/feed"
	"github.com/alanyoungcy/arbwatch/internal/fx"
	"github.com/alanyoungcy/arbwatch/internal/handoff"
	"github.com/alanyoungcy/arbwatch/internal/ledger"
	"github.com/alanyoungcy/arbwatch/internal/platform/exchangerate"
	"github.com/alanyoungcy/arbwatch/internal/platform/httpx"
	"github.com/alanyoungcy/arbwatch/internal/platform/yahoo"
	"github.com/alanyoungcy/arbwatch/internal/report"
	"github.com/alanyoungcy/arbwatch/internal/server"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
)

// MonitorMode runs the passive detector: scan on the market cadence, publish
// accepted opportunities for the notifier, and summarize periodically.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Int("symbols", len(a.cfg.Watch)),
		slog.String("source", a.cfg.Source.Kind),
	)

	basis, err := arbitrage.ParseSpreadBasis(a.cfg.Arbitrage.SpreadBasis)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	source, watches := a.priceSource(deps)

	det := arbitrage.NewDetector(arbitrage.DetectorConfig{
		Source:     source,
		Normalizer: fx.NewNormalizer(a.fxConverter(deps)),
		Basis:      basis,
		Economics:  a.cfg.Economics(),
		Recorder:   deps.Metrics,
		Now:        a.now,
		Logger:     a.logger,
	})
	persister := handoff.NewPersister(handoff.PersisterConfig{
		Snapshot: deps.Snapshot,
		Log:      deps.EventLog,
		Retain:   a.cfg.Report.Retain,
		Now:      a.now,
		Logger:   a.logger,
	})

	m := &monitor{
		detector: det,
		reporter: report.NewReporter(report.ReporterConfig{
			MinSpreadPct: a.cfg.Report.MinReportSpreadPct,
			Window:       a.cfg.Report.DedupWindow.Duration,
			Now:          a.now,
		}),
		persister: persister,
		history:   deps.History,
		archiver:  deps.Archiver,
		metrics:   deps.Metrics,
		watches:   watches,
		cfg:       a.cfg.Report,
		now:       a.now,
		logger:    a.logger.With(slog.String("component", "monitor")),
	}
	if err := m.start(ctx); err != nil {
		return fmt.Errorf("app: start monitor: %w", err)
	}

	return a.runScheduled(ctx, deps, persister, nil, m.cycle, m.stop)
}

// SimulateMode runs the simulated trading variant against the broker book.
func (a *App) SimulateMode(ctx context.Context, deps *Dependencies) error {
	l, err := ledger.Open(a.cfg.Ledger.Path, a.logger)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	book := l.Book()

	minSpread := a.cfg.Ledger.MinSpreadPct
	if minSpread <= 0 {
		minSpread = book.Thresholds.MinSpreadPct
	}
	a.logger.InfoContext(ctx, "starting simulate mode",
		slog.String("ledger", a.cfg.Ledger.Path),
		slog.Float64("min_spread_pct", minSpread),
	)

	det := arbitrage.NewDetector(arbitrage.DetectorConfig{
		Source:       feed.NewBrokerStatic(),
		Normalizer:   fx.NewNormalizer(a.fxConverter(deps)),
		Basis:        arbitrage.BasisMin,
		Economics:    a.cfg.Economics(),
		MinSpreadPct: minSpread,
		Recorder:     deps.Metrics,
		Now:          a.now,
		Logger:       a.logger,
	})

	s := &simulator{
		detector:   det,
		ledger:     l,
		notifier:   deps.Notifier,
		archiver:   deps.Archiver,
		history:    deps.History,
		metrics:    deps.Metrics,
		watches:    feed.BrokerWatches(book.Stocks.IDXHighLiquidity, book.Brokers),
		dailyEvery: a.cfg.Ledger.DailyReportInterval.Duration,
		retain:     a.cfg.Report.Retain,
		now:        a.now,
		logger:     a.logger.With(slog.String("component", "simulator")),
	}
	s.start(ctx)

	return a.runScheduled(ctx, deps, s, l, s.cycle, s.stop)
}

// runScheduled runs the scan loop, plus the status server when enabled, and
// calls stop once both have returned.
func (a *App) runScheduled(
	ctx context.Context,
	deps *Dependencies,
	state handler.StateSource,
	book handler.LedgerView,
	cycle func(context.Context) error,
	stop func(context.Context) error,
) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(gctx, g, deps, state, book)
	}

	cadence := CadenceFrom(a.cfg.Schedule)
	g.Go(func() error {
		return runLoop(gctx, cadence, a.now, a.logger, cycle)
	})

	runErr := g.Wait()
	if err := stop(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(runErr, fmt.Errorf("app: stop: %w", err))
	}
	return runErr
}

// startHTTPServer serves the status API until ctx is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	state handler.StateSource,
	book handler.LedgerView,
) {
	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(deps.Checks, a.logger),
		Status:        handler.NewStatusHandler(a.cfg.Mode, state),
		Opportunities: handler.NewOpportunityHandler(state, deps.History, a.logger),
		Metrics:       deps.Metrics.Handler(),
	}
	if book != nil {
		handlers.Ledger = handler.NewLedgerHandler(book)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Minute,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// priceSource builds the configured quote source and the watch list it can
// serve. Live sources are paced locally and, when a shared budget is set,
// across processes through Redis.
func (a *App) priceSource(deps *Dependencies) (domain.PriceSource, []domain.Watch) {
	sc := a.cfg.Source

	if sc.Kind == "static" {
		symbols := make([]string, 0, len(a.cfg.Watch))
		for _, w := range a.cfg.Watch {
			symbols = append(symbols, w.Symbol)
		}
		return feed.NewBrokerStatic(), feed.BrokerWatches(symbols, ledger.DefaultBook().Brokers)
	}

	var src domain.PriceSource = yahoo.NewClient(sc.BaseURL, httpx.Config{
		Timeout:    sc.Timeout.Duration,
		MaxRetries: sc.MaxRetries,
		UserAgent:  sc.UserAgent,
	})
	if sc.SharedBudget > 0 && deps.RateLimiter != nil {
		src = feed.NewShared(src, deps.RateLimiter, "source:"+sc.Kind, sc.SharedBudget, time.Second)
	}
	src = feed.NewPaced(src, sc.RequestsPerSecond, sc.Burst)
	return src, a.cfg.Watch
}

// fxConverter builds the converter over the live rate API, cached in Redis
// when it is configured.
func (a *App) fxConverter(deps *Dependencies) *fx.Converter {
	live := exchangerate.NewClient(a.cfg.FX.BaseURL, httpx.Config{
		Timeout:    a.cfg.FX.Timeout.Duration,
		MaxRetries: a.cfg.FX.MaxRetries,
	})
	var opts []fx.Option
	if deps.RateCache != nil {
		opts = append(opts, fx.WithCache(deps.RateCache, a.cfg.FX.CacheTTL.Duration))
	}
	return fx.NewConverter(live, a.logger, opts...)
}
