package arbitrage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Normalizer converts a quote into the reference currency. ok is false when
// no conversion rate is available.
type Normalizer interface {
	Normalize(ctx context.Context, q domain.Quote) (domain.NormalizedPrice, bool)
}

// Recorder receives detector outcomes for metrics. A nil Recorder is allowed.
type Recorder interface {
	QuoteFailed(ticker string)
	PairEvaluated(symbol string)
	PairDiscarded(symbol, reason string)
}

// DetectorConfig configures the detector.
type DetectorConfig struct {
	Source     domain.PriceSource
	Normalizer Normalizer
	Basis      SpreadBasis
	Economics  Economics
	// MinSpreadPct drops pairs below the threshold before they are emitted.
	// Zero keeps every plausible pair.
	MinSpreadPct float64
	Recorder     Recorder
	Now          func() time.Time
	Logger       *slog.Logger
}

// Detector fetches the listings of a watched symbol and prices every venue
// pair.
type Detector struct {
	source     domain.PriceSource
	normalizer Normalizer
	basis      SpreadBasis
	econ       Economics
	minSpread  float64
	recorder   Recorder
	now        func() time.Time
	logger     *slog.Logger
}

// NewDetector creates a detector from cfg.
func NewDetector(cfg DetectorConfig) *Detector {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Detector{
		source:     cfg.Source,
		normalizer: cfg.Normalizer,
		basis:      cfg.Basis,
		econ:       cfg.Economics,
		minSpread:  cfg.MinSpreadPct,
		recorder:   cfg.Recorder,
		now:        now,
		logger:     cfg.Logger.With(slog.String("component", "detector")),
	}
}

// Scan fetches a quote for every listing of w and returns the opportunities
// among them. A listing whose quote cannot be fetched is logged and skipped;
// the remaining listings are still paired.
func (d *Detector) Scan(ctx context.Context, w domain.Watch) []domain.Opportunity {
	quotes := make([]domain.Quote, 0, len(w.Listings))
	for _, l := range w.Listings {
		q, err := d.source.Quote(ctx, l.Ticker)
		if err != nil {
			d.logger.WarnContext(ctx, "quote unavailable",
				slog.String("symbol", w.Symbol),
				slog.String("ticker", l.Ticker),
				slog.String("error", err.Error()),
			)
			if d.recorder != nil {
				d.recorder.QuoteFailed(l.Ticker)
			}
			continue
		}
		if l.Market != "" {
			q.Market = l.Market
		}
		if q.Currency == "" {
			q.Currency = l.Currency
		}
		quotes = append(quotes, q)
	}
	return d.Detect(ctx, w.Symbol, quotes)
}

// Detect pairs every quote with every later quote (i < j, in the given
// order) and returns one opportunity per plausible pair. Legs without an FX
// rate are skipped.
func (d *Detector) Detect(ctx context.Context, symbol string, quotes []domain.Quote) []domain.Opportunity {
	legs := make([]domain.NormalizedPrice, 0, len(quotes))
	for _, q := range quotes {
		if q.Mid <= 0 {
			continue
		}
		np, ok := d.normalizer.Normalize(ctx, q)
		if !ok {
			d.logger.WarnContext(ctx, "fx rate unavailable, leg skipped",
				slog.String("symbol", symbol),
				slog.String("market", q.Market),
				slog.String("currency", q.Currency),
			)
			continue
		}
		legs = append(legs, np)
	}

	var opps []domain.Opportunity
	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			opp, ok := d.price(symbol, legs[i], legs[j])
			if !ok {
				continue
			}
			opps = append(opps, opp)
		}
	}
	return opps
}

func (d *Detector) price(symbol string, a, b domain.NormalizedPrice) (domain.Opportunity, bool) {
	ev := Evaluate(a.USD, b.USD, d.basis, d.econ)
	if d.recorder != nil {
		d.recorder.PairEvaluated(symbol)
	}
	if !ev.Plausible {
		if d.recorder != nil {
			d.recorder.PairDiscarded(symbol, "implausible")
		}
		return domain.Opportunity{}, false
	}
	if ev.SpreadPct < d.minSpread {
		if d.recorder != nil {
			d.recorder.PairDiscarded(symbol, "below_min_spread")
		}
		return domain.Opportunity{}, false
	}

	return domain.Opportunity{
		ID:                 uuid.NewString(),
		Symbol:             symbol,
		Market1:            a.Quote.Label(),
		Price1Orig:         a.Quote.Mid,
		Price1USD:          a.USD,
		Bid1:               a.Quote.Bid,
		Ask1:               a.Quote.Ask,
		Market2:            b.Quote.Label(),
		Price2Orig:         b.Quote.Mid,
		Price2USD:          b.USD,
		Bid2:               b.Quote.Bid,
		Ask2:               b.Quote.Ask,
		SpreadPct:          ev.SpreadPct,
		PotentialProfitUSD: ev.PotentialProfit,
		EstimatedFees:      ev.Fees,
		NetProfit:          ev.NetProfit,
		IsFreeMoney:        ev.FreeMoney,
		Timestamp:          d.now().UTC(),
	}, true
}
