package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestBrokerStatic_ServesSimulatedBook(t *testing.T) {
	src := NewBrokerStatic()

	q, err := src.Quote(context.Background(), BrokerTicker("GOTO", "idx_broker1"))

	require.NoError(t, err)
	assert.Equal(t, "GOTO", q.Symbol)
	assert.Equal(t, "idx_broker1", q.Market)
	assert.Equal(t, 83.5, q.Mid)
	assert.Equal(t, "IDR", q.Currency)
	assert.False(t, q.Timestamp.IsZero())
}

func TestStatic_UnknownTicker(t *testing.T) {
	src := NewStatic(nil)

	_, err := src.Quote(context.Background(), "NOPE")

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestStatic_Set(t *testing.T) {
	src := NewStatic(map[string]domain.Quote{"A": {Mid: 1}})
	src.Set("A", domain.Quote{Mid: 2})

	q, err := src.Quote(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, 2.0, q.Mid)
}

func TestBrokerWatches(t *testing.T) {
	watches := BrokerWatches([]string{"bbca", "UNVR"}, []string{"idx", "idx_broker1"})

	require.Len(t, watches, 2)
	assert.Equal(t, "BBCA", watches[0].Symbol)
	assert.Equal(t, []domain.Listing{
		{Ticker: "BBCA@idx", Market: "idx"},
		{Ticker: "BBCA@idx_broker1", Market: "idx_broker1"},
	}, watches[0].Listings)
}

func TestPaced_HonoursContext(t *testing.T) {
	src := NewPaced(NewBrokerStatic(), 0.001, 1)
	_, err := src.Quote(context.Background(), BrokerTicker("BBCA", "idx"))
	require.NoError(t, err, "first request uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = src.Quote(ctx, BrokerTicker("BBCA", "idx"))

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestPaced_Unlimited(t *testing.T) {
	src := NewPaced(NewBrokerStatic(), 0, 0)
	for i := 0; i < 50; i++ {
		_, err := src.Quote(context.Background(), BrokerTicker("ADRO", "idx"))
		require.NoError(t, err)
	}
}

type budget struct {
	calls int
	err   error
}

func (b *budget) Allow(context.Context, string, int, time.Duration) (bool, error) { return true, nil }

func (b *budget) Wait(context.Context, string, int, time.Duration) error {
	b.calls++
	return b.err
}

func TestShared_WaitsBeforeDelegating(t *testing.T) {
	b := &budget{}
	src := NewShared(NewBrokerStatic(), b, "query1.finance.yahoo.com", 2, time.Second)

	q, err := src.Quote(context.Background(), BrokerTicker("TLKM", "idx"))

	require.NoError(t, err)
	assert.Equal(t, "TLKM", q.Symbol)
	assert.Equal(t, 1, b.calls)
}

func TestShared_BudgetErrorIsUnavailable(t *testing.T) {
	src := NewShared(NewBrokerStatic(), &budget{err: errors.New("redis down")}, "k", 1, time.Second)

	_, err := src.Quote(context.Background(), BrokerTicker("TLKM", "idx"))

	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
}
