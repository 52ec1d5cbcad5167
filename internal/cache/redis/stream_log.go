package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// defaultStreamMaxLen is the approximate maximum length of the opportunity
// stream, enforced via XADD MAXLEN ~.
const defaultStreamMaxLen int64 = 10000

// StreamLog implements domain.EventLog on a Redis stream. Positions are
// stream entry IDs; the empty position reads from the start of the stream.
type StreamLog struct {
	c      *Client
	stream string
	maxLen int64
}

// NewStreamLog creates a StreamLog on the named stream. A non-positive
// maxLen selects the default.
func NewStreamLog(c *Client, stream string, maxLen int64) *StreamLog {
	if maxLen <= 0 {
		maxLen = defaultStreamMaxLen
	}
	return &StreamLog{c: c, stream: c.Key(stream), maxLen: maxLen}
}

// Append adds opp to the stream.
func (s *StreamLog) Append(ctx context.Context, opp domain.Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("redis: encode opportunity: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"symbol":  opp.Symbol,
			"payload": payload,
		},
	}
	if err := s.c.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w: %w", s.stream, domain.ErrPersistence, err)
	}
	return nil
}

// ReadFrom returns up to limit entries after position, oldest first. A limit
// of zero or less means no limit.
func (s *StreamLog) ReadFrom(ctx context.Context, position string, limit int) ([]domain.LogRecord, error) {
	start := "-"
	if position != "" {
		start = position
	}

	var (
		msgs []redis.XMessage
		err  error
	)
	if limit > 0 {
		// The start ID is inclusive; ask for one extra to cover it.
		msgs, err = s.c.rdb.XRangeN(ctx, s.stream, start, "+", int64(limit)+1).Result()
	} else {
		msgs, err = s.c.rdb.XRange(ctx, s.stream, start, "+").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redis: stream read %s: %w", s.stream, err)
	}

	recs := make([]domain.LogRecord, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == position {
			continue
		}
		if limit > 0 && len(recs) == limit {
			break
		}
		var opp domain.Opportunity
		if err := json.Unmarshal(payloadBytes(m.Values["payload"]), &opp); err != nil {
			return recs, fmt.Errorf("redis: decode stream entry %s: %w", m.ID, err)
		}
		recs = append(recs, domain.LogRecord{Position: m.ID, Opportunity: opp})
	}
	return recs, nil
}

func payloadBytes(v any) []byte {
	switch p := v.(type) {
	case string:
		return []byte(p)
	case []byte:
		return p
	default:
		return nil
	}
}

// Compile-time interface check.
var _ domain.EventLog = (*StreamLog)(nil)
