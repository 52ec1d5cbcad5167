package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/ledger"
	"github.com/alanyoungcy/arbwatch/internal/server/handler"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixedState struct{ st domain.ReportState }

func (f fixedState) State() domain.ReportState { return f.st }

type memHistory struct {
	opps []domain.Opportunity
	err  error
}

func (m *memHistory) Insert(_ context.Context, opp domain.Opportunity) error {
	m.opps = append(m.opps, opp)
	return nil
}

func (m *memHistory) ListSince(_ context.Context, since time.Time) ([]domain.Opportunity, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Opportunity
	for _, o := range m.opps {
		if !o.Timestamp.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }
func (denyAll) Wait(context.Context, string, int, time.Duration) error         { return nil }

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func testState() fixedState {
	return fixedState{st: domain.ReportState{
		LastUpdate:              t0,
		MonitoringStatus:        domain.StatusRunning,
		TotalOpportunitiesFound: 7,
		Opportunities: []domain.Opportunity{
			{Symbol: "BBCA", Timestamp: t0.Add(-2 * time.Minute)},
			{Symbol: "UNVR", Timestamp: t0.Add(-time.Minute)},
			{Symbol: "TLKM", Timestamp: t0},
		},
	}}
}

type opts struct {
	cfg     Config
	checks  map[string]handler.Checker
	history domain.OpportunityStore
	ledger  handler.LedgerView
	limiter domain.RateLimiter
}

func newTestServer(o opts) http.Handler {
	st := testState()
	h := Handlers{
		Health:        handler.NewHealthHandler(o.checks, quiet()),
		Status:        handler.NewStatusHandler("monitor", st),
		Opportunities: handler.NewOpportunityHandler(st, o.history, quiet()),
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, "arbwatch_cycles_total 1\n") }),
	}
	if o.ledger != nil {
		h.Ledger = handler.NewLedgerHandler(o.ledger)
	}
	return NewServer(o.cfg, h, o.limiter, quiet()).Handler()
}

func get(t *testing.T, h http.Handler, path string, hdr map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		h := newTestServer(opts{checks: map[string]handler.Checker{
			"redis": func(context.Context) error { return nil },
		}})

		rec, body := get(t, h, "/api/health", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("degraded", func(t *testing.T) {
		h := newTestServer(opts{checks: map[string]handler.Checker{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		}})

		rec, body := get(t, h, "/api/health", nil)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "degraded", body["status"])
		deps := body["dependencies"].(map[string]any)
		assert.Equal(t, "ok", deps["redis"])
		assert.Equal(t, "connection refused", deps["postgres"])
	})
}

func TestStatus(t *testing.T) {
	rec, body := get(t, newTestServer(opts{}), "/api/status", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "monitor", body["mode"])
	assert.Equal(t, "running", body["monitoring_status"])
	assert.Equal(t, 7.0, body["total_opportunities_found"])
	assert.Equal(t, 3.0, body["recent_opportunities"])
	assert.Equal(t, "2026-03-02T10:00:00Z", body["last_update"])
}

func TestOpportunities_Recent(t *testing.T) {
	rec, body := get(t, newTestServer(opts{}), "/api/opportunities?limit=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	opps := body["opportunities"].([]any)
	require.Len(t, opps, 2)
	assert.Equal(t, "TLKM", opps[0].(map[string]any)["symbol"], "newest first")
	assert.Equal(t, "UNVR", opps[1].(map[string]any)["symbol"])
}

func TestOpportunities_Since(t *testing.T) {
	hist := &memHistory{opps: []domain.Opportunity{
		{Symbol: "OLD", Timestamp: t0.Add(-48 * time.Hour)},
		{Symbol: "NEW", Timestamp: t0},
	}}

	t.Run("history disabled", func(t *testing.T) {
		rec, _ := get(t, newTestServer(opts{}), "/api/opportunities?since=2026-03-01T00:00:00Z", nil)
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		rec, _ := get(t, newTestServer(opts{history: hist}), "/api/opportunities?since=yesterday", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("filters by time", func(t *testing.T) {
		rec, body := get(t, newTestServer(opts{history: hist}), "/api/opportunities?since=2026-03-01T00:00:00Z", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		opps := body["opportunities"].([]any)
		require.Len(t, opps, 1)
		assert.Equal(t, "NEW", opps[0].(map[string]any)["symbol"])
	})

	t.Run("store failure", func(t *testing.T) {
		rec, _ := get(t, newTestServer(opts{history: &memHistory{err: errors.New("boom")}}), "/api/opportunities?since=2026-03-01T00:00:00Z", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestLedgerRoute(t *testing.T) {
	rec, _ := get(t, newTestServer(opts{}), "/api/ledger", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "not registered without a ledger")

	l, err := ledger.Open(filepath.Join(t.TempDir(), "config.json"), quiet())
	require.NoError(t, err)

	rec, body := get(t, newTestServer(opts{ledger: l}), "/api/ledger", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	state := body["state"].(map[string]any)
	assert.Equal(t, 50.0, state["current_capital"])
	assert.Equal(t, 0.0, body["win_rate"])
	assert.Empty(t, body["top_stocks"])
}

func TestAuth(t *testing.T) {
	h := newTestServer(opts{cfg: Config{APIKey: "s3cret"}})

	rec, _ := get(t, h, "/api/status", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = get(t, h, "/api/status", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = get(t, h, "/api/status", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = get(t, h, "/api/status", map[string]string{"X-API-Key": "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = get(t, h, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health stays open")

	rec, _ = get(t, h, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "metrics stay open")
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(opts{cfg: Config{RateLimit: 10}, limiter: denyAll{}})

	rec, body := get(t, h, "/api/status", nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", body["error"])
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	h := newTestServer(opts{cfg: Config{CORSOrigins: []string{"https://dash.example"}}})

	rec, _ := get(t, h, "/api/status", map[string]string{"Origin": "https://dash.example"})
	assert.Equal(t, "https://dash.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, _ = get(t, h, "/api/status", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	pre := httptest.NewRecorder()
	h.ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
}

func TestMetricsRoute(t *testing.T) {
	rec, _ := get(t, newTestServer(opts{}), "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arbwatch_cycles_total")
}
