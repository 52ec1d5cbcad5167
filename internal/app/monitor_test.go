package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3blob "github.com/alanyoungcy/arbwatch/internal/blob/s3"
	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/handoff"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/report"
)

var t0 = time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time         { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fixedScanner returns the same opportunities every scan, stamped with the
// clock's time.
type fixedScanner struct {
	clock *clock
	opps  map[string][]domain.Opportunity
}

func (f *fixedScanner) Scan(_ context.Context, w domain.Watch) []domain.Opportunity {
	var out []domain.Opportunity
	for _, opp := range f.opps[w.Symbol] {
		opp.Timestamp = f.clock.now()
		out = append(out, opp)
	}
	return out
}

type memHistory struct {
	mu       sync.Mutex
	opps     []domain.Opportunity
	inserted []domain.Opportunity
}

func (m *memHistory) Insert(_ context.Context, opp domain.Opportunity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, opp)
	return nil
}

func (m *memHistory) ListSince(_ context.Context, since time.Time) ([]domain.Opportunity, error) {
	var out []domain.Opportunity
	for _, o := range m.opps {
		if !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

type memBlobs struct {
	mu   sync.Mutex
	keys []string
}

func (m *memBlobs) Put(_ context.Context, key string, data io.Reader, _ string) error {
	if _, err := io.ReadAll(data); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func (m *memBlobs) PutMultipart(ctx context.Context, key string, data io.Reader, _ int64) error {
	return m.Put(ctx, key, data, "")
}

func (m *memBlobs) count(part string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.keys {
		if strings.Contains(k, part) {
			n++
		}
	}
	return n
}

func watched(symbols ...string) []domain.Watch {
	out := make([]domain.Watch, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, domain.Watch{Symbol: s})
	}
	return out
}

func spreadOpp(symbol, m1, m2 string, spread float64) domain.Opportunity {
	return domain.Opportunity{Symbol: symbol, Market1: m1, Market2: m2, SpreadPct: spread}
}

type monitorFixture struct {
	m        *monitor
	clock    *clock
	snapshot *handoff.SnapshotFile
	log      *handoff.FileLog
}

func newMonitorFixture(t *testing.T, history domain.OpportunityStore, blobs domain.BlobWriter) monitorFixture {
	t.Helper()
	dir := t.TempDir()
	c := &clock{t: t0}
	snap := handoff.NewSnapshotFile(filepath.Join(dir, "monitor_state.json"))
	log := handoff.NewFileLog(filepath.Join(dir, "opportunities.jsonl"), quiet())
	cfg := config.Defaults().Report

	m := &monitor{
		detector: &fixedScanner{clock: c, opps: map[string][]domain.Opportunity{
			"BBCA": {spreadOpp("BBCA", "IDX (IDR)", "NASDAQ/NYSE (USD)", 0.42)},
			"UNVR": {spreadOpp("UNVR", "IDX (IDR)", "NASDAQ/NYSE (USD)", 0.1)},
		}},
		reporter: report.NewReporter(report.ReporterConfig{
			MinSpreadPct: cfg.MinReportSpreadPct,
			Window:       cfg.DedupWindow.Duration,
			Now:          c.now,
		}),
		persister: handoff.NewPersister(handoff.PersisterConfig{
			Snapshot: snap,
			Log:      log,
			Now:      c.now,
			Logger:   quiet(),
		}),
		history: history,
		metrics: metrics.New(),
		watches: watched("BBCA", "UNVR"),
		cfg:     cfg,
		now:     c.now,
		logger:  quiet(),
	}
	if blobs != nil {
		m.archiver = s3blob.NewArchiver(blobs, "arbwatch", quiet())
	}
	return monitorFixture{m: m, clock: c, snapshot: snap, log: log}
}

func TestMonitor_StartPublishesStartupMessage(t *testing.T) {
	f := newMonitorFixture(t, nil, nil)

	require.NoError(t, f.m.start(context.Background()))

	st, err := f.snapshot.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, st.MonitoringStatus)
	assert.Contains(t, st.StartupMessage, "MONITORING PASIF START")
	require.NotNil(t, st.LastSummaryTime)
	assert.True(t, st.LastSummaryTime.Equal(t0))
}

func TestMonitor_CycleReportsOnceWithinDedupWindow(t *testing.T) {
	hist := &memHistory{}
	f := newMonitorFixture(t, hist, nil)
	ctx := context.Background()
	require.NoError(t, f.m.start(ctx))

	require.NoError(t, f.m.cycle(ctx))
	f.clock.advance(5 * time.Minute)
	require.NoError(t, f.m.cycle(ctx))

	st, err := f.snapshot.Load()
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalOpportunitiesFound, "below-threshold UNVR and the BBCA repeat are not reported")
	require.Len(t, st.Opportunities, 1)
	assert.Equal(t, "BBCA", st.Opportunities[0].Symbol)

	recs, err := f.log.ReadFrom(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Len(t, hist.inserted, 1)

	f.clock.advance(30 * time.Minute)
	require.NoError(t, f.m.cycle(ctx))
	st, err = f.snapshot.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalOpportunitiesFound, "reported again once the window has passed")
}

func TestMonitor_SummaryAfterInterval(t *testing.T) {
	blobs := &memBlobs{}
	f := newMonitorFixture(t, nil, blobs)
	ctx := context.Background()
	require.NoError(t, f.m.start(ctx))
	require.NoError(t, f.m.cycle(ctx))

	st, err := f.snapshot.Load()
	require.NoError(t, err)
	assert.Empty(t, st.SummaryMessage)

	f.clock.advance(6 * time.Hour)
	require.NoError(t, f.m.cycle(ctx))

	st, err = f.snapshot.Load()
	require.NoError(t, err)
	assert.Contains(t, st.SummaryMessage, "BBCA")
	assert.NotEmpty(t, st.StartupMessage, "startup message survives later saves")
	require.NotNil(t, st.LastSummaryTime)
	assert.True(t, st.LastSummaryTime.Equal(f.clock.now()))
	assert.Equal(t, 1, blobs.count("reports/summary/"))
	assert.Equal(t, 1, blobs.count("archive/opportunities/"))
}

func TestMonitor_WarmsHistoryFromStore(t *testing.T) {
	recent := spreadOpp("BBCA", "IDX (IDR)", "NASDAQ/NYSE (USD)", 0.5)
	recent.Timestamp = t0.Add(-10 * time.Minute)
	stale := spreadOpp("TLKM", "IDX (IDR)", "NASDAQ/NYSE (USD)", 0.5)
	stale.Timestamp = t0.Add(-7 * time.Hour)
	hist := &memHistory{opps: []domain.Opportunity{stale, recent}}
	f := newMonitorFixture(t, hist, nil)
	ctx := context.Background()

	require.NoError(t, f.m.start(ctx))
	require.NoError(t, f.m.cycle(ctx))

	st, err := f.snapshot.Load()
	require.NoError(t, err)
	assert.Zero(t, st.TotalOpportunitiesFound, "BBCA was reported ten minutes before the restart")
	history := f.m.reporter.History()
	require.Len(t, history, 1)
	assert.Equal(t, "BBCA", history[0].Symbol)
}

func TestMonitor_StopMarksStopped(t *testing.T) {
	f := newMonitorFixture(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, f.m.start(ctx))

	require.NoError(t, f.m.stop(ctx))

	st, err := f.snapshot.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStopped, st.MonitoringStatus)
}

func TestMonitor_UnwritableSnapshotIsPersistenceError(t *testing.T) {
	f := newMonitorFixture(t, nil, nil)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	f.m.persister = handoff.NewPersister(handoff.PersisterConfig{
		Snapshot: handoff.NewSnapshotFile(filepath.Join(blocker, "monitor_state.json")),
		Now:      f.clock.now,
		Logger:   quiet(),
	})

	err := f.m.start(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
}
