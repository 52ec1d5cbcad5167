package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/handoff"
	"github.com/alanyoungcy/arbwatch/internal/ledger"
)

// setup writes a config pointing at a book with one open position.
func setup(t *testing.T) (configPath, bookPath string) {
	t.Helper()
	dir := t.TempDir()
	bookPath = filepath.Join(dir, "config.json")
	book := ledger.DefaultBook()
	book.State.OpenPositions = 1
	book.State.TradesExecuted = 1
	require.NoError(t, handoff.WriteJSON(bookPath, book))

	configPath = filepath.Join(dir, "arbwatch.toml")
	body := fmt.Sprintf("log_level = \"error\"\n\n[ledger]\npath = %q\n", bookPath)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))
	return configPath, bookPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "arbwatch dev\n", out)
}

func TestReportCommand(t *testing.T) {
	cfgPath, _ := setup(t)

	out, err := execute(t, "--config", cfgPath, "report")

	require.NoError(t, err)
	assert.Contains(t, out, "LAPORAN HARIAN ARBITRASE SAHAM")
	assert.Contains(t, out, "Trade Dieksekusi: 1")
}

func TestCloseCommand(t *testing.T) {
	t.Run("win", func(t *testing.T) {
		cfgPath, bookPath := setup(t)

		out, err := execute(t, "--config", cfgPath, "close", "goto", "0.35")

		require.NoError(t, err)
		assert.Contains(t, out, "Closed GOTO")
		l, err := ledger.Open(bookPath, nil)
		require.NoError(t, err)
		st := l.Book().State
		assert.Equal(t, 0, st.OpenPositions)
		assert.Equal(t, 1, st.Wins)
		assert.InDelta(t, 50.35, st.CurrentCapital, 1e-9)
		assert.InDelta(t, 0.35, l.Book().Performance.TopStocks["GOTO"], 1e-9)
	})

	t.Run("negative pnl is a loss", func(t *testing.T) {
		cfgPath, bookPath := setup(t)

		_, err := execute(t, "--config", cfgPath, "close", "TLKM", "--", "-0.20")

		require.NoError(t, err)
		l, err := ledger.Open(bookPath, nil)
		require.NoError(t, err)
		st := l.Book().State
		assert.Equal(t, 1, st.Losses)
		assert.InDelta(t, 0.20, st.TotalLoss, 1e-9)
		assert.InDelta(t, 49.80, st.CurrentCapital, 1e-9)
	})

	t.Run("nothing open", func(t *testing.T) {
		cfgPath, _ := setup(t)
		_, err := execute(t, "--config", cfgPath, "close", "BBCA", "1", "--loss")
		require.NoError(t, err)

		_, err = execute(t, "--config", cfgPath, "close", "BBCA", "1")

		assert.Error(t, err)
	})

	t.Run("bad amount", func(t *testing.T) {
		_, err := execute(t, "close", "BBCA", "lots")
		assert.ErrorContains(t, err, "invalid PNL")
	})
}
