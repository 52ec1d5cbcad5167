package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/ledger"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/notify"
)

// reportNotifier delivers the daily report.
type reportNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// simulator is the simulated trading variant: every cycle is gated against
// the ledger and the widest valid opportunity is executed on paper.
type simulator struct {
	detector   scanner
	ledger     *ledger.Ledger
	notifier   reportNotifier
	archiver   *s3blob.Archiver
	history    domain.OpportunityStore
	metrics    *metrics.Metrics
	watches    []domain.Watch
	dailyEvery time.Duration
	retain     int
	now        func() time.Time
	logger     *slog.Logger

	lastReport time.Time

	mu    sync.Mutex
	state domain.ReportState
}

func (s *simulator) start(ctx context.Context) {
	now := s.now()
	s.lastReport = now

	book := s.ledger.Book()
	s.metrics.SetCapital(book.State.CurrentCapital)

	s.mu.Lock()
	s.state = domain.ReportState{
		LastUpdate:              now.UTC(),
		Opportunities:           []domain.Opportunity{},
		TotalOpportunitiesFound: book.State.OpportunitiesFound,
		MonitoringStatus:        domain.StatusRunning,
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "simulation started",
		slog.Float64("capital", book.State.CurrentCapital),
		slog.Int("open_positions", book.State.OpenPositions),
		slog.Int("symbols", len(s.watches)),
	)
}

func (s *simulator) cycle(ctx context.Context) error {
	start := s.now()

	var opps []domain.Opportunity
	for _, w := range s.watches {
		opps = append(opps, s.detector.Scan(ctx, w)...)
	}

	res, err := s.ledger.RunCycle(ctx, opps)
	if err != nil {
		return fmt.Errorf("app: simulation cycle: %w", err)
	}

	if len(res.Opportunities) == 0 {
		s.logger.InfoContext(ctx, "no arbitrage opportunities found")
	}
	for i, opp := range res.Opportunities {
		if i == 5 {
			break
		}
		attrs := []any{
			slog.Int("rank", i+1),
			slog.String("symbol", opp.Symbol),
			slog.Float64("spread_pct", opp.SpreadPct),
			slog.Bool("valid", opp.Executable()),
		}
		if opp.Risk != nil {
			attrs = append(attrs,
				slog.Float64("risk_reward", opp.Risk.RiskRatio),
				slog.Float64("risk", opp.Risk.Risk),
				slog.String("reason", opp.Risk.Reason),
			)
		}
		s.logger.InfoContext(ctx, "candidate", attrs...)
	}

	if s.history != nil {
		for _, opp := range res.Opportunities {
			if !opp.Executable() {
				continue
			}
			if err := s.history.Insert(ctx, opp); err != nil {
				s.logger.WarnContext(ctx, "history insert failed",
					slog.String("symbol", opp.Symbol),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	book := s.ledger.Book()
	if res.Executed != nil {
		s.metrics.TradeExecuted(res.Executed.Symbol, book.State.CurrentCapital)
	}

	s.mu.Lock()
	s.state.LastUpdate = s.now().UTC()
	s.state.TotalOpportunitiesFound = book.State.OpportunitiesFound
	s.state.Opportunities = widest(res.Opportunities, s.retain)
	s.mu.Unlock()

	if due(s.lastReport, start, s.dailyEvery) {
		s.dailyReport(ctx, start)
	}

	s.metrics.CycleCompleted(s.now().Sub(start))
	return nil
}

// dailyReport sends and archives the ledger's report. Delivery failures are
// logged; the next report is still scheduled from now.
func (s *simulator) dailyReport(ctx context.Context, now time.Time) {
	s.lastReport = now
	text := s.ledger.DailyReport(now)

	if err := s.notifier.Notify(ctx, notify.EventDailyReport, "", text); err != nil {
		s.logger.WarnContext(ctx, "daily report delivery failed", slog.String("error", err.Error()))
	} else {
		s.metrics.MessageDelivered(notify.EventDailyReport)
		s.logger.InfoContext(ctx, "daily report sent")
	}

	if s.archiver != nil {
		if _, err := s.archiver.ArchiveReport(ctx, "daily", now, text); err != nil {
			s.logger.WarnContext(ctx, "daily report archive failed", slog.String("error", err.Error()))
		}
	}
}

func (s *simulator) stop(ctx context.Context) error {
	s.mu.Lock()
	s.state.MonitoringStatus = domain.StatusStopped
	s.state.LastUpdate = s.now().UTC()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "simulation stopped")
	return nil
}

// State reports the simulator in the snapshot shape served by the status
// API.
func (s *simulator) State() domain.ReportState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Opportunities = append([]domain.Opportunity(nil), s.state.Opportunities...)
	return st
}

// widest keeps the first n of opps, which RunCycle sorts by spread.
func widest(opps []domain.Opportunity, n int) []domain.Opportunity {
	if n > 0 && len(opps) > n {
		opps = opps[:n]
	}
	return append([]domain.Opportunity{}, opps...)
}
