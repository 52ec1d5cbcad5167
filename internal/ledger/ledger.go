package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/handoff"
)

// Ledger owns a Book and the file it lives in. Every mutation is saved
// before the method returns. It is safe for concurrent use.
type Ledger struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	book Book
}

// Open loads the book at path. A missing file is initialized with
// DefaultBook and written out.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		path:   path,
		logger: logger.With(slog.String("component", "ledger")),
	}

	var b Book
	err := handoff.ReadJSON(path, &b)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		b = DefaultBook()
		l.logger.Info("creating new book", slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("ledger: open: %w", err)
	}
	if b.Performance.TopStocks == nil {
		b.Performance.TopStocks = map[string]float64{}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	l.book = b
	if errors.Is(err, domain.ErrNotFound) {
		if err := l.saveLocked(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Book returns a copy of the current book.
func (l *Ledger) Book() Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyLocked()
}

// Limits returns the configured risk gates.
func (l *Ledger) Limits() arbitrage.RiskLimits {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limitsLocked()
}

// Exposure returns the state the risk gates are evaluated against.
func (l *Ledger) Exposure() arbitrage.Exposure {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exposureLocked()
}

// CycleResult summarizes one simulated trading cycle.
type CycleResult struct {
	// Opportunities are gated and sorted by spread, widest first.
	Opportunities []domain.Opportunity
	Valid         int
	Executed      *domain.Opportunity
}

// RunCycle gates opps against the current exposure, counts the valid ones
// towards opportunities_found and executes the widest valid one.
func (l *Ledger) RunCycle(ctx context.Context, opps []domain.Opportunity) (CycleResult, error) {
	l.mu.Lock()
	gated := arbitrage.Gate(opps, l.limitsLocked(), l.exposureLocked())
	l.mu.Unlock()

	sort.SliceStable(gated, func(i, j int) bool {
		return gated[i].SpreadPct > gated[j].SpreadPct
	})

	res := CycleResult{Opportunities: gated}
	var best *domain.Opportunity
	for i := range gated {
		if gated[i].Executable() {
			res.Valid++
			if best == nil {
				best = &gated[i]
			}
		}
	}

	l.mu.Lock()
	l.book.State.OpportunitiesFound += res.Valid
	err := l.saveLocked()
	l.mu.Unlock()
	if err != nil {
		return res, err
	}

	l.logger.InfoContext(ctx, "simulation cycle evaluated",
		slog.Int("opportunities", len(gated)),
		slog.Int("valid", res.Valid),
	)
	if best == nil {
		return res, nil
	}

	if err := l.Execute(ctx, *best); err != nil {
		if errors.Is(err, domain.ErrRiskRejected) {
			return res, nil
		}
		return res, err
	}
	res.Executed = best
	return res, nil
}

// Execute opens a simulated position. The gates are re-checked against the
// current book because it may have changed since the opportunity was
// assessed. A refusal leaves the book untouched and wraps
// domain.ErrRiskRejected.
func (l *Ledger) Execute(ctx context.Context, opp domain.Opportunity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rm := l.book.RiskManagement
	st := l.book.State
	var reason string
	switch {
	case !opp.Executable():
		reason = "opportunity is not valid"
		if opp.Risk != nil && opp.Risk.Reason != "" {
			reason = opp.Risk.Reason
		}
	case opp.Risk.Risk > rm.MaxLossPerTrade:
		reason = fmt.Sprintf("Risk $%.2f exceeds max $%s", opp.Risk.Risk, pyFloat(rm.MaxLossPerTrade))
	case st.TotalLoss >= rm.MaxLossTotal:
		reason = "Total loss limit reached"
	case st.OpenPositions >= rm.MaxOpenPositions:
		reason = fmt.Sprintf("Max open positions (%d) reached", rm.MaxOpenPositions)
	}
	if reason != "" {
		l.logger.WarnContext(ctx, "trade refused",
			slog.String("symbol", opp.Symbol),
			slog.String("reason", reason),
		)
		return fmt.Errorf("ledger: execute %s: %s: %w", opp.Symbol, reason, domain.ErrRiskRejected)
	}

	l.book.State.TradesExecuted++
	l.book.State.OpenPositions++
	if err := l.saveLocked(); err != nil {
		l.book.State.TradesExecuted--
		l.book.State.OpenPositions--
		return err
	}

	l.logger.InfoContext(ctx, "trade executed",
		slog.String("symbol", opp.Symbol),
		slog.String("buy", opp.Market2),
		slog.String("sell", opp.Market1),
		slog.Float64("spread_pct", opp.SpreadPct),
		slog.Float64("risk", opp.Risk.Risk),
		slog.Float64("reward", opp.Risk.Reward),
	)
	return nil
}

// Close settles an open position. amount is the absolute profit on a win or
// the absolute loss on a loss; only wins are attributed to the symbol.
func (l *Ledger) Close(ctx context.Context, symbol string, amount decimal.Decimal, win bool) error {
	if amount.IsNegative() {
		return fmt.Errorf("ledger: close %s: amount must not be negative", symbol)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.book.State.OpenPositions == 0 {
		return fmt.Errorf("ledger: close %s: no open positions: %w", symbol, domain.ErrNotFound)
	}

	prev := l.copyLocked()
	st := &l.book.State
	st.OpenPositions--
	if win {
		st.Wins++
		st.TotalProfit = add(st.TotalProfit, amount)
		st.CurrentCapital = add(st.CurrentCapital, amount)
		l.book.Performance.TopStocks[symbol] = add(l.book.Performance.TopStocks[symbol], amount)
	} else {
		st.Losses++
		st.TotalLoss = add(st.TotalLoss, amount)
		st.CurrentCapital = add(st.CurrentCapital, amount.Neg())
	}

	if err := l.saveLocked(); err != nil {
		l.book = prev
		return err
	}

	outcome := "loss"
	if win {
		outcome = "win"
	}
	l.logger.InfoContext(ctx, "position closed",
		slog.String("symbol", symbol),
		slog.String("outcome", outcome),
		slog.String("amount", amount.StringFixed(4)),
		slog.Float64("capital", st.CurrentCapital),
		slog.Float64("win_rate", winRate(*st)),
	)
	return nil
}

// WinRate is wins over closed trades, in percent. It is 0 before any trade
// has closed.
func (l *Ledger) WinRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return winRate(l.book.State)
}

// SymbolProfit is one row of the profit ranking.
type SymbolProfit struct {
	Symbol string
	Profit float64
}

// TopStocks ranks symbols by attributed profit, highest first, ties by
// symbol.
func (l *Ledger) TopStocks(n int) []SymbolProfit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return topStocks(l.book.Performance.TopStocks, n)
}

func topStocks(m map[string]float64, n int) []SymbolProfit {
	out := make([]SymbolProfit, 0, len(m))
	for sym, p := range m {
		out = append(out, SymbolProfit{Symbol: sym, Profit: p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Profit != out[j].Profit {
			return out[i].Profit > out[j].Profit
		}
		return out[i].Symbol < out[j].Symbol
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// DailyReport renders the book's daily report at now.
func (l *Ledger) DailyReport(now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return formatDailyReport(l.book, now)
}

func winRate(st State) float64 {
	total := st.Wins + st.Losses
	if total == 0 {
		return 0
	}
	return float64(st.Wins) / float64(total) * 100
}

func add(a float64, b decimal.Decimal) float64 {
	return decimal.NewFromFloat(a).Add(b).InexactFloat64()
}

func (l *Ledger) limitsLocked() arbitrage.RiskLimits {
	rm := l.book.RiskManagement
	return arbitrage.RiskLimits{
		MinRiskReward:    rm.MinRiskRewardRatio,
		MaxLossPerTrade:  rm.MaxLossPerTrade,
		MaxLossTotal:     rm.MaxLossTotal,
		MaxOpenPositions: rm.MaxOpenPositions,
	}
}

func (l *Ledger) exposureLocked() arbitrage.Exposure {
	st := l.book.State
	return arbitrage.Exposure{
		Capital:       st.CurrentCapital,
		OpenPositions: st.OpenPositions,
		TotalLoss:     st.TotalLoss,
	}
}

func (l *Ledger) copyLocked() Book {
	b := l.book
	b.Brokers = append([]string(nil), l.book.Brokers...)
	b.Stocks.IDXHighLiquidity = append([]string(nil), l.book.Stocks.IDXHighLiquidity...)
	b.Performance.TopStocks = make(map[string]float64, len(l.book.Performance.TopStocks))
	for k, v := range l.book.Performance.TopStocks {
		b.Performance.TopStocks[k] = v
	}
	return b
}

func (l *Ledger) saveLocked() error {
	if err := handoff.WriteJSON(l.path, l.book); err != nil {
		return fmt.Errorf("ledger: save: %w", err)
	}
	return nil
}
