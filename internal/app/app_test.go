package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/config"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/handoff"
	"github.com/alanyoungcy/arbwatch/internal/notify"
)

func senderNames(senders []notify.Sender) []string {
	out := make([]string, 0, len(senders))
	for _, s := range senders {
		out = append(out, s.Name())
	}
	return out
}

func TestSenders(t *testing.T) {
	full := config.NotifyConfig{
		TelegramToken:     "123:abc",
		TelegramChatID:    "42",
		DiscordWebhookURL: "https://discord.example/webhook",
	}

	tests := []struct {
		name   string
		cfg    config.NotifyConfig
		dryRun bool
		want   []string
	}{
		{"nothing configured falls back to console", config.NotifyConfig{}, false, []string{"console"}},
		{"configured channels", full, false, []string{"telegram", "discord"}},
		{"console alongside channels", config.NotifyConfig{DiscordWebhookURL: full.DiscordWebhookURL, Console: true}, false, []string{"discord", "console"}},
		{"dry run only prints", full, true, []string{"console"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, senderNames(Senders(tt.cfg, tt.dryRun, io.Discard)))
		})
	}
}

func TestWireHandoff_Transports(t *testing.T) {
	cfg := config.Defaults()
	cfg.Handoff.Dir = t.TempDir()

	deps := &Dependencies{}
	cfg.Handoff.Transport = "snapshot"
	require.NoError(t, wireHandoff(&cfg, nil, deps, quiet()))
	assert.Nil(t, deps.EventLog)
	assert.Equal(t, filepath.Join(cfg.Handoff.Dir, "monitor_state.json"), deps.Snapshot.Path())

	cfg.Handoff.Transport = "log"
	require.NoError(t, wireHandoff(&cfg, nil, deps, quiet()))
	assert.IsType(t, &handoff.FileLog{}, deps.EventLog)

	cfg.Handoff.Transport = "redis"
	assert.Error(t, wireHandoff(&cfg, nil, deps, quiet()), "redis transport without a client")
}

func notifierConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Handoff.Dir = t.TempDir()
	return cfg
}

func publish(t *testing.T, deps *Dependencies, symbols ...string) {
	t.Helper()
	ctx := context.Background()
	p := handoff.NewPersister(handoff.PersisterConfig{
		Snapshot: deps.Snapshot,
		Log:      deps.EventLog,
		Now:      func() time.Time { return t0 },
		Logger:   quiet(),
	})
	require.NoError(t, p.Start(ctx, "🟢 MONITORING PASIF START", t0))
	for i, s := range symbols {
		require.NoError(t, p.Record(ctx, domain.Opportunity{
			ID:        fmt.Sprintf("opp-%d", i),
			Symbol:    s,
			Market1:   "IDX (IDR)",
			Market2:   "NASDAQ/NYSE (USD)",
			SpreadPct: 0.8,
			Timestamp: t0,
		}))
	}
	require.NoError(t, p.Save(ctx))
}

func TestNotifyOnce_DeliversThenIsIdempotent(t *testing.T) {
	cfg := notifierConfig(t)
	var out bytes.Buffer
	deps, cleanup, err := WireNotifier(context.Background(), &cfg, true, &out, quiet())
	require.NoError(t, err)
	defer cleanup()
	publish(t, deps, "BBCA", "TLKM")

	res, err := NotifyOnce(context.Background(), &cfg, deps, quiet())

	require.NoError(t, err)
	assert.True(t, res.Found)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, notify.EventStartup, res.Messages[0].Kind)
	assert.Equal(t, notify.EventOpportunity, res.Messages[1].Kind)
	assert.Contains(t, out.String(), "MONITORING PASIF START")
	assert.Contains(t, out.String(), "TLKM")
	lock := handoff.NewPIDLock(filepath.Join(cfg.Handoff.Dir, cfg.Handoff.PIDFile))
	require.NoError(t, lock.Acquire(), "lock released after the pass")
	require.NoError(t, lock.Release())

	res, err = NotifyOnce(context.Background(), &cfg, deps, quiet())
	require.NoError(t, err)
	assert.Empty(t, res.Messages)
}

func TestNotifyOnce_MissingSnapshot(t *testing.T) {
	cfg := notifierConfig(t)
	deps, cleanup, err := WireNotifier(context.Background(), &cfg, true, io.Discard, quiet())
	require.NoError(t, err)
	defer cleanup()

	res, err := NotifyOnce(context.Background(), &cfg, deps, quiet())

	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestNotifyOnce_LockHeld(t *testing.T) {
	cfg := notifierConfig(t)
	deps, cleanup, err := WireNotifier(context.Background(), &cfg, true, io.Discard, quiet())
	require.NoError(t, err)
	defer cleanup()
	running := handoff.NewPIDLock(filepath.Join(cfg.Handoff.Dir, cfg.Handoff.PIDFile))
	require.NoError(t, running.Acquire())
	defer running.Release()

	_, err = NotifyOnce(context.Background(), &cfg, deps, quiet())

	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestApp_RunRejectsUnknownMode(t *testing.T) {
	cfg := notifierConfig(t)
	cfg.Mode = "trade"
	a := New(&cfg, quiet())
	defer a.Close()

	err := a.Run(context.Background())

	assert.ErrorContains(t, err, `unsupported mode "trade"`)
}

func TestApp_RunMonitorUntilCancelled(t *testing.T) {
	fxSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"base":"IDR","rates":{"USD":0.000063}}`)
	}))
	defer fxSrv.Close()

	cfg := notifierConfig(t)
	cfg.Source.Kind = "static"
	cfg.FX.BaseURL = fxSrv.URL
	snap := handoff.NewSnapshotFile(filepath.Join(cfg.Handoff.Dir, cfg.Handoff.SnapshotFile))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(&cfg, quiet())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		st, err := snap.Load()
		return err == nil && st.TotalOpportunitiesFound > 0
	}, 5*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
	a.Close()

	st, err := snap.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStopped, st.MonitoringStatus)
	assert.FileExists(t, filepath.Join(cfg.Handoff.Dir, cfg.Handoff.LogFile))
}

func TestNotifierPass_DryRunPrintsEachMessageOnce(t *testing.T) {
	cfg := notifierConfig(t)
	var out bytes.Buffer
	deps, cleanup, err := WireNotifier(context.Background(), &cfg, true, &out, quiet())
	require.NoError(t, err)
	defer cleanup()
	publish(t, deps, "ADRO")

	res, err := NotifyOnce(context.Background(), &cfg, deps, quiet())
	require.NoError(t, err)
	require.NoError(t, PrintResult(&out, res, deps))

	printed := out.String()
	assert.Equal(t, 1, strings.Count(printed, "MONITORING PASIF START"))
	assert.Equal(t, 1, strings.Count(printed, "ADRO"))
	assert.Contains(t, printed, "Messages to send: 2")
	assert.NotContains(t, printed, "MESSAGES TO SEND TO TELEGRAM")
}

func TestPrintResult_WithoutConsoleListsBodies(t *testing.T) {
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	cfg := notifierConfig(t)
	cfg.Notify.DiscordWebhookURL = hook.URL
	var out bytes.Buffer
	deps, cleanup, err := WireNotifier(context.Background(), &cfg, false, &out, quiet())
	require.NoError(t, err)
	defer cleanup()
	publish(t, deps, "ADRO")

	res, err := NotifyOnce(context.Background(), &cfg, deps, quiet())
	require.NoError(t, err)
	require.NoError(t, PrintResult(&out, res, deps))

	printed := out.String()
	assert.Contains(t, printed, "MESSAGES TO SEND TO TELEGRAM")
	assert.Equal(t, 1, strings.Count(printed, "ADRO"))
}
