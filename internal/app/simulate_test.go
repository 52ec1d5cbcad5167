package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/feed"
	"github.com/alanyoungcy/arbwatch/internal/fx"
	"github.com/alanyoungcy/arbwatch/internal/ledger"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/notify"
)

type sentMessage struct {
	event, message string
}

type recordingNotifier struct {
	sent []sentMessage
}

func (r *recordingNotifier) Notify(_ context.Context, event, _, message string) error {
	r.sent = append(r.sent, sentMessage{event: event, message: message})
	return nil
}

func newTestSimulator(t *testing.T) (*simulator, *clock, *recordingNotifier, *ledger.Ledger) {
	t.Helper()
	c := &clock{t: t0}
	l, err := ledger.Open(filepath.Join(t.TempDir(), "config.json"), quiet())
	require.NoError(t, err)
	book := l.Book()

	det := arbitrage.NewDetector(arbitrage.DetectorConfig{
		Source:       feed.NewBrokerStatic(),
		Normalizer:   fx.NewNormalizer(fx.NewConverter(nil, quiet())),
		Basis:        arbitrage.BasisMin,
		Economics:    arbitrage.DefaultEconomics(),
		MinSpreadPct: book.Thresholds.MinSpreadPct,
		Now:          c.now,
		Logger:       quiet(),
	})
	n := &recordingNotifier{}
	s := &simulator{
		detector:   det,
		ledger:     l,
		notifier:   n,
		metrics:    metrics.New(),
		watches:    feed.BrokerWatches(book.Stocks.IDXHighLiquidity, book.Brokers),
		dailyEvery: 24 * time.Hour,
		retain:     20,
		now:        c.now,
		logger:     quiet(),
	}
	s.start(context.Background())
	return s, c, n, l
}

func TestSimulator_CycleExecutesWidestValidOpportunity(t *testing.T) {
	s, _, _, l := newTestSimulator(t)

	require.NoError(t, s.cycle(context.Background()))

	book := l.Book()
	assert.Equal(t, 1, book.State.TradesExecuted)
	assert.Equal(t, 1, book.State.OpenPositions)
	assert.Positive(t, book.State.OpportunitiesFound)

	st := s.State()
	assert.Equal(t, domain.StatusRunning, st.MonitoringStatus)
	assert.Equal(t, book.State.OpportunitiesFound, st.TotalOpportunitiesFound)
	require.NotEmpty(t, st.Opportunities)
	assert.Equal(t, "GOTO", st.Opportunities[0].Symbol, "GOTO has the widest broker spread (min basis)")
	for i := 1; i < len(st.Opportunities); i++ {
		assert.GreaterOrEqual(t, st.Opportunities[i-1].SpreadPct, st.Opportunities[i].SpreadPct)
	}
	for _, opp := range st.Opportunities {
		assert.GreaterOrEqual(t, opp.SpreadPct, 0.5, "pairs below the book threshold are dropped")
	}
}

func TestSimulator_OpenPositionCapStopsExecution(t *testing.T) {
	s, c, _, l := newTestSimulator(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, s.cycle(ctx))
		c.advance(5 * time.Minute)
	}

	book := l.Book()
	assert.Equal(t, 3, book.State.TradesExecuted)
	assert.Equal(t, 3, book.State.OpenPositions)
	for _, opp := range s.State().Opportunities {
		require.NotNil(t, opp.Risk)
		assert.False(t, opp.Risk.Valid)
		assert.Contains(t, opp.Risk.Reason, "Max open positions")
	}
}

func TestSimulator_DailyReportAfterInterval(t *testing.T) {
	s, c, n, _ := newTestSimulator(t)
	ctx := context.Background()

	require.NoError(t, s.cycle(ctx))
	assert.Empty(t, n.sent)

	c.advance(24 * time.Hour)
	require.NoError(t, s.cycle(ctx))

	require.Len(t, n.sent, 1)
	assert.Equal(t, notify.EventDailyReport, n.sent[0].event)
	assert.Contains(t, n.sent[0].message, "LAPORAN HARIAN ARBITRASE SAHAM")
	assert.Contains(t, n.sent[0].message, "Trade Dieksekusi: 2")

	c.advance(time.Hour)
	require.NoError(t, s.cycle(ctx))
	assert.Len(t, n.sent, 1, "next report waits a full interval")
}

func TestSimulator_StopMarksStopped(t *testing.T) {
	s, _, _, _ := newTestSimulator(t)

	require.NoError(t, s.stop(context.Background()))

	assert.Equal(t, domain.StatusStopped, s.State().MonitoringStatus)
}
