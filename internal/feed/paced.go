package feed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Paced limits how fast an underlying source is queried. Public quote
// endpoints throttle aggressive clients.
type Paced struct {
	next    domain.PriceSource
	limiter *rate.Limiter
}

// NewPaced allows perSecond requests with the given burst. A non-positive
// perSecond disables pacing.
func NewPaced(next domain.PriceSource, perSecond float64, burst int) *Paced {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Paced{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Quote waits for a token, then delegates.
func (p *Paced) Quote(ctx context.Context, ticker string) (domain.Quote, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, fmt.Errorf("feed: pace %s: %w: %w", ticker, domain.ErrDataUnavailable, err)
	}
	return p.next.Quote(ctx, ticker)
}

// Compile-time interface check.
var _ domain.PriceSource = (*Paced)(nil)

// Shared draws from a request budget shared with other processes before
// delegating. Key names the budget, e.g. the upstream host.
type Shared struct {
	next    domain.PriceSource
	limiter domain.RateLimiter
	key     string
	limit   int
	window  time.Duration
}

// NewShared allows limit requests per window across every process using
// the same limiter and key.
func NewShared(next domain.PriceSource, limiter domain.RateLimiter, key string, limit int, window time.Duration) *Shared {
	return &Shared{next: next, limiter: limiter, key: key, limit: limit, window: window}
}

// Quote waits for the shared budget, then delegates.
func (s *Shared) Quote(ctx context.Context, ticker string) (domain.Quote, error) {
	if err := s.limiter.Wait(ctx, s.key, s.limit, s.window); err != nil {
		return domain.Quote{}, fmt.Errorf("feed: shared budget %s: %w: %w", ticker, domain.ErrDataUnavailable, err)
	}
	return s.next.Quote(ctx, ticker)
}

var _ domain.PriceSource = (*Shared)(nil)
