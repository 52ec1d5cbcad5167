package report

import (
	"sync"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ReporterConfig tunes which opportunities are worth reporting.
type ReporterConfig struct {
	// MinSpreadPct is the smallest spread reported when the opportunity is
	// not free money.
	MinSpreadPct float64
	// Window suppresses a repeat of the same venue pair for this long.
	Window time.Duration
	Now    func() time.Time
}

// DefaultReporterConfig returns the passive monitor's thresholds.
func DefaultReporterConfig() ReporterConfig {
	return ReporterConfig{
		MinSpreadPct: 0.3,
		Window:       30 * time.Minute,
		Now:          time.Now,
	}
}

// Reporter decides whether an opportunity is reported and keeps the history
// of accepted ones for summaries. It is safe for concurrent use.
type Reporter struct {
	cfg     ReporterConfig
	seen    map[string]time.Time // opportunity key -> last report time
	history []domain.Opportunity
	mu      sync.Mutex
}

// NewReporter creates a Reporter. A nil Now defaults to time.Now.
func NewReporter(cfg ReporterConfig) *Reporter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reporter{
		cfg:  cfg,
		seen: make(map[string]time.Time),
	}
}

// ShouldReport returns true if opp passes the spread threshold and its venue
// pair has not been reported within the window. An accepted opportunity is
// recorded and appended to the history before the lock is released, so two
// concurrent callers can never both accept the same key.
func (r *Reporter) ShouldReport(opp domain.Opportunity) bool {
	if opp.SpreadPct < r.cfg.MinSpreadPct && !opp.IsFreeMoney {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	key := opp.Key()
	if last, ok := r.seen[key]; ok {
		if now.Sub(last) < r.cfg.Window {
			return false
		}
	}

	r.seen[key] = now
	r.history = append(r.history, opp)
	return true
}

// History returns a copy of every accepted opportunity still retained.
func (r *Reporter) History() []domain.Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Opportunity, len(r.history))
	copy(out, r.history)
	return out
}

// Preload seeds the history, e.g. from the opportunity store after a
// restart. Dedup keys are restored from the opportunity timestamps.
func (r *Reporter) Preload(opps []domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, opp := range opps {
		if last, ok := r.seen[opp.Key()]; !ok || opp.Timestamp.After(last) {
			r.seen[opp.Key()] = opp.Timestamp
		}
		r.history = append(r.history, opp)
	}
}

// Prune drops history entries timestamped before cutoff and returns how many
// were removed.
func (r *Reporter) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.history[:0]
	for _, opp := range r.history {
		if !opp.Timestamp.Before(cutoff) {
			kept = append(kept, opp)
		}
	}
	removed := len(r.history) - len(kept)
	clear(r.history[len(kept):])
	r.history = kept
	return removed
}

// Cleanup removes dedup keys that have expired beyond the window. This should
// be called periodically to prevent unbounded memory growth.
func (r *Reporter) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.cfg.Now()
	for key, ts := range r.seen {
		if now.Sub(ts) >= r.cfg.Window {
			delete(r.seen, key)
		}
	}
}
