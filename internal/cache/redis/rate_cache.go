package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// RateCache implements domain.RateCache with one string key per currency
// pair, "fx:{FROM}:{TO}", expiring after the TTL given on write.
type RateCache struct {
	c *Client
}

// NewRateCache creates a RateCache backed by the given Client.
func NewRateCache(c *Client) *RateCache {
	return &RateCache{c: c}
}

func (rc *RateCache) key(from, to string) string {
	return rc.c.Key("fx", strings.ToUpper(from), strings.ToUpper(to))
}

// GetRate returns the cached rate. A miss is reported with ok=false and a
// nil error.
func (rc *RateCache) GetRate(ctx context.Context, from, to string) (float64, bool, error) {
	s, err := rc.c.rdb.Get(ctx, rc.key(from, to)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis: get rate %s/%s: %w", from, to, err)
	}
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis: parse rate %s/%s: %w", from, to, err)
	}
	return rate, true, nil
}

// SetRate stores rate for ttl.
func (rc *RateCache) SetRate(ctx context.Context, from, to string, rate float64, ttl time.Duration) error {
	v := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := rc.c.rdb.Set(ctx, rc.key(from, to), v, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set rate %s/%s: %w", from, to, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RateCache = (*RateCache)(nil)
