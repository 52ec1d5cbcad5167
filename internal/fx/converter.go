// Package fx resolves currency conversion rates and normalizes quotes into
// the reference currency.
package fx

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type pair struct{ from, to string }

// fallbackRates are used when the live source cannot answer. Pairs outside
// this table are unavailable.
var fallbackRates = map[pair]float64{
	{"IDR", "USD"}: 0.000063,
	{"USD", "IDR"}: 15850.0,
}

// Converter resolves rates from a live source, an optional cache and the
// fallback table, in that order of preference (cache first when present).
type Converter struct {
	live     domain.RateSource
	cache    domain.RateCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// Option customizes a Converter.
type Option func(*Converter)

// WithCache memoizes live rates for ttl.
func WithCache(cache domain.RateCache, ttl time.Duration) Option {
	return func(c *Converter) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewConverter creates a Converter. live may be nil, in which case only the
// fallback table is consulted.
func NewConverter(live domain.RateSource, logger *slog.Logger, opts ...Option) *Converter {
	c := &Converter{
		live:   live,
		logger: logger.With(slog.String("component", "fx")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rate returns the multiplier converting an amount in from into to. ok is
// false when no rate could be resolved; errors never escape.
func (c *Converter) Rate(ctx context.Context, from, to string) (float64, bool) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return 1.0, true
	}

	if c.cache != nil {
		rate, ok, err := c.cache.GetRate(ctx, from, to)
		if err != nil {
			c.logger.DebugContext(ctx, "rate cache read failed", slog.String("error", err.Error()))
		} else if ok && rate > 0 {
			return rate, true
		}
	}

	if c.live != nil {
		rate, err := c.live.Rate(ctx, from, to)
		if err == nil && rate > 0 {
			if c.cache != nil {
				if err := c.cache.SetRate(ctx, from, to, rate, c.cacheTTL); err != nil {
					c.logger.DebugContext(ctx, "rate cache write failed", slog.String("error", err.Error()))
				}
			}
			return rate, true
		}
		if err != nil {
			c.logger.WarnContext(ctx, "live fx rate unavailable",
				slog.String("from", from),
				slog.String("to", to),
				slog.String("error", err.Error()),
			)
		}
	}

	if rate, ok := fallbackRates[pair{from, to}]; ok {
		c.logger.WarnContext(ctx, "using fallback fx rate",
			slog.String("from", from),
			slog.String("to", to),
			slog.Float64("rate", rate),
		)
		return rate, true
	}
	return 0, false
}

// Normalizer expresses quotes in domain.ReferenceCurrency.
type Normalizer struct {
	conv *Converter
}

// NewNormalizer creates a Normalizer backed by conv.
func NewNormalizer(conv *Converter) *Normalizer {
	return &Normalizer{conv: conv}
}

// Normalize converts the quote's mid price. ok is false when the rate is
// unavailable or the quote has no usable price.
func (n *Normalizer) Normalize(ctx context.Context, q domain.Quote) (domain.NormalizedPrice, bool) {
	if q.Mid <= 0 {
		return domain.NormalizedPrice{}, false
	}
	currency := q.Currency
	if currency == "" {
		currency = domain.ReferenceCurrency
	}
	rate, ok := n.conv.Rate(ctx, currency, domain.ReferenceCurrency)
	if !ok {
		return domain.NormalizedPrice{}, false
	}
	return domain.NormalizedPrice{Quote: q, USD: q.Mid * rate, Rate: rate}, true
}
