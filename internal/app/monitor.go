package app

import (
	"context"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/handoff"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/report"
)

// scanner produces the opportunities of one watched symbol.
type scanner interface {
	Scan(ctx context.Context, w domain.Watch) []domain.Opportunity
}

// monitor is the passive detector: it scans, filters through the reporter
// and publishes accepted opportunities through the persister.
type monitor struct {
	detector  scanner
	reporter  *report.Reporter
	persister *handoff.Persister
	history   domain.OpportunityStore
	archiver  *s3blob.Archiver
	metrics   *metrics.Metrics
	watches   []domain.Watch
	cfg       config.ReportConfig
	now       func() time.Time
	logger    *slog.Logger

	lastSummary time.Time
}

// start warms the reporter from the opportunity store, then publishes the
// startup message.
func (m *monitor) start(ctx context.Context) error {
	now := m.now()
	m.lastSummary = now

	if m.history != nil {
		since := now.Add(-m.cfg.SummaryWindow.Duration)
		opps, err := m.history.ListSince(ctx, since)
		if err != nil {
			m.logger.WarnContext(ctx, "history warm-up failed",
				slog.String("error", err.Error()),
			)
		} else {
			m.reporter.Preload(opps)
			m.logger.InfoContext(ctx, "history warmed",
				slog.Int("opportunities", len(opps)),
				slog.Time("since", since),
			)
		}
	}

	return m.persister.Start(ctx, report.FormatStartup(now, m.cfg.SummaryInterval.Duration), now)
}

// cycle scans every watched symbol once. Only a persistence failure is
// returned; source and history failures are logged and the cycle goes on.
func (m *monitor) cycle(ctx context.Context) error {
	start := m.now()
	m.logger.InfoContext(ctx, "checking markets", slog.Int("symbols", len(m.watches)))

	reported := 0
	for _, w := range m.watches {
		for _, opp := range m.detector.Scan(ctx, w) {
			if !m.reporter.ShouldReport(opp) {
				continue
			}
			if err := m.persister.Record(ctx, opp); err != nil {
				return err
			}
			reported++
			m.metrics.OpportunityReported(opp)
			m.logger.InfoContext(ctx, "opportunity reported",
				slog.String("symbol", opp.Symbol),
				slog.String("market1", opp.Market1),
				slog.String("market2", opp.Market2),
				slog.Float64("spread_pct", opp.SpreadPct),
				slog.Bool("free_money", opp.IsFreeMoney),
			)

			if m.history != nil {
				if err := m.history.Insert(ctx, opp); err != nil {
					m.logger.WarnContext(ctx, "history insert failed",
						slog.String("symbol", opp.Symbol),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}

	if due(m.lastSummary, start, m.cfg.SummaryInterval.Duration) {
		m.summarize(ctx, start)
	}

	m.reporter.Cleanup()
	m.reporter.Prune(start.Add(-m.cfg.SummaryWindow.Duration))

	if err := m.persister.Save(ctx); err != nil {
		return err
	}
	m.metrics.CycleCompleted(m.now().Sub(start))
	m.logger.InfoContext(ctx, "check complete", slog.Int("reported", reported))
	return nil
}

func (m *monitor) summarize(ctx context.Context, now time.Time) {
	history := m.reporter.History()
	s := report.Summarize(history, now, m.cfg.SummaryWindow.Duration)
	msg := report.FormatSummary(s, m.cfg.CapitalNoteUSD)
	m.persister.SetSummary(msg, now)
	m.lastSummary = now

	m.logger.InfoContext(ctx, "summary generated",
		slog.Int("opportunities", s.Count),
		slog.Int("free_money", s.FreeMoney),
		slog.Float64("max_spread_pct", s.MaxSpreadPct),
	)

	if m.archiver == nil {
		return
	}
	if _, err := m.archiver.ArchiveReport(ctx, "summary", now, msg); err != nil {
		m.logger.WarnContext(ctx, "summary archive failed", slog.String("error", err.Error()))
	}
	window := make([]domain.Opportunity, 0, len(history))
	for _, opp := range history {
		if !opp.Timestamp.Before(s.Start) {
			window = append(window, opp)
		}
	}
	if _, err := m.archiver.ArchiveOpportunities(ctx, now, window); err != nil {
		m.logger.WarnContext(ctx, "opportunity archive failed", slog.String("error", err.Error()))
	}
}

// stop writes the final snapshot with the stopped status.
func (m *monitor) stop(ctx context.Context) error {
	return m.persister.Stop(ctx)
}
