package domain

import (
	"context"
	"time"
)

// RateCache memoizes FX rates between cycles.
type RateCache interface {
	GetRate(ctx context.Context, from, to string) (rate float64, ok bool, err error)
	SetRate(ctx context.Context, from, to string, rate float64, ttl time.Duration) error
}

// LockManager provides mutual exclusion across processes.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// LogRecord is one opportunity read back from an EventLog. Position is the
// cursor value that resumes reading after this record.
type LogRecord struct {
	Position    string
	Opportunity Opportunity
}

// EventLog is the append-only hand-off channel between the detector and the
// notifier.
type EventLog interface {
	Append(ctx context.Context, opp Opportunity) error
	ReadFrom(ctx context.Context, position string, limit int) ([]LogRecord, error)
}

// RateLimiter is a request budget shared across processes.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}
