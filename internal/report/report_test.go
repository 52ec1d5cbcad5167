package report

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

var base = time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time         { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func opp(symbol string, spread float64, ts time.Time) domain.Opportunity {
	return domain.Opportunity{
		Symbol:    symbol,
		Market1:   "IDX (IDR)",
		Market2:   "NASDAQ/NYSE (USD)",
		SpreadPct: spread,
		Timestamp: ts,
	}
}

func newReporter(c *clock) *Reporter {
	cfg := DefaultReporterConfig()
	cfg.Now = c.now
	return NewReporter(cfg)
}

func TestReporter_DedupWindow(t *testing.T) {
	c := &clock{t: base}
	r := newReporter(c)
	o := opp("TLKM", 0.8, base)

	assert.True(t, r.ShouldReport(o), "first sighting is reported")

	c.advance(10 * time.Minute)
	assert.False(t, r.ShouldReport(o), "repeat inside 30 minutes is suppressed")

	c.advance(21 * time.Minute)
	assert.True(t, r.ShouldReport(o), "repeat after 31 minutes is reported again")

	assert.Len(t, r.History(), 2)
}

func TestReporter_WindowBoundaryReportsAgain(t *testing.T) {
	c := &clock{t: base}
	r := newReporter(c)
	o := opp("TLKM", 0.8, base)

	require.True(t, r.ShouldReport(o))
	c.advance(30 * time.Minute)
	assert.True(t, r.ShouldReport(o))
}

func TestReporter_KeyIsDirectional(t *testing.T) {
	c := &clock{t: base}
	r := newReporter(c)
	forward := opp("UNVR", 1.2, base)
	reverse := forward
	reverse.Market1, reverse.Market2 = forward.Market2, forward.Market1

	assert.True(t, r.ShouldReport(forward))
	assert.True(t, r.ShouldReport(reverse))
	assert.False(t, r.ShouldReport(forward))
}

func TestReporter_SpreadThreshold(t *testing.T) {
	tests := []struct {
		name   string
		spread float64
		free   bool
		want   bool
	}{
		{name: "below threshold", spread: 0.29, want: false},
		{name: "at threshold", spread: 0.3, want: true},
		{name: "below threshold but free money", spread: 0.1, free: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReporter(&clock{t: base})
			o := opp("BBCA", tt.spread, base)
			o.IsFreeMoney = tt.free

			assert.Equal(t, tt.want, r.ShouldReport(o))
			if !tt.want {
				assert.Empty(t, r.History(), "rejected opportunities are not recorded")
			}
		})
	}
}

func TestReporter_ConcurrentSameKeyAcceptsOnce(t *testing.T) {
	r := newReporter(&clock{t: base})
	o := opp("GOTO", 2.0, base)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range make([]struct{}, 50) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.ShouldReport(o) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Len(t, r.History(), 1)
}

func TestReporter_PreloadRestoresDedupKeys(t *testing.T) {
	c := &clock{t: base.Add(10 * time.Minute)}
	r := newReporter(c)
	o := opp("ADRO", 0.9, base)

	r.Preload([]domain.Opportunity{o})

	assert.False(t, r.ShouldReport(o), "preloaded key still inside window")
	assert.Len(t, r.History(), 1)
}

func TestReporter_PruneAndCleanup(t *testing.T) {
	c := &clock{t: base}
	r := newReporter(c)
	require.True(t, r.ShouldReport(opp("TLKM", 0.8, base)))
	require.True(t, r.ShouldReport(opp("UNVR", 0.8, base.Add(2*time.Hour))))

	removed := r.Prune(base.Add(time.Hour))

	assert.Equal(t, 1, removed)
	h := r.History()
	require.Len(t, h, 1)
	assert.Equal(t, "UNVR", h[0].Symbol)

	c.advance(time.Hour)
	r.Cleanup()
	assert.True(t, r.ShouldReport(opp("TLKM", 0.8, c.t)), "expired key is forgotten")
}

func TestSummarize(t *testing.T) {
	now := base.Add(6 * time.Hour)
	history := []domain.Opportunity{
		opp("OLD", 9.0, now.Add(-6*time.Hour-time.Second)),
		opp("TLKM", 0.5, now.Add(-6*time.Hour)),
		opp("UNVR", 1.4, now.Add(-time.Hour)),
		opp("TLKM", 0.7, now.Add(-30*time.Minute)),
	}
	history[2].IsFreeMoney = true

	s := Summarize(history, now, 6*time.Hour)

	assert.Equal(t, 3, s.Count, "window start is inclusive and older entries are dropped")
	assert.Equal(t, 1, s.FreeMoney)
	assert.InDelta(t, 1.4, s.MaxSpreadPct, 1e-9)
	assert.Equal(t, []SymbolCount{{"TLKM", 2}, {"UNVR", 1}}, s.TopSymbols)
	assert.Equal(t, base, s.Start)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, base, 6*time.Hour)

	assert.Zero(t, s.Count)
	assert.Zero(t, s.MaxSpreadPct)
	assert.Empty(t, s.TopSymbols)
}

func TestSummarize_TopFiveKeepsEncounterOrderOnTies(t *testing.T) {
	now := base.Add(time.Hour)
	var history []domain.Opportunity
	for i, sym := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		history = append(history, opp(sym, 0.5, base.Add(time.Duration(i)*time.Minute)))
	}
	history = append(history, opp("F", 0.5, base.Add(20*time.Minute)))

	s := Summarize(history, now, 6*time.Hour)

	require.Len(t, s.TopSymbols, 5)
	got := make([]string, 0, 5)
	for _, sc := range s.TopSymbols {
		got = append(got, sc.Symbol)
	}
	assert.Equal(t, []string{"F", "A", "B", "C", "D"}, got)
}

func TestISOTimestamp(t *testing.T) {
	assert.Equal(t, "2026-03-02T04:30:00+00:00", ISOTimestamp(time.Date(2026, 3, 2, 4, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2026-03-02T04:30:00.123456+00:00",
		ISOTimestamp(time.Date(2026, 3, 2, 4, 30, 0, 123456789, time.UTC)))

	jakarta := time.FixedZone("WIB", 7*3600)
	assert.Equal(t, "2026-03-02T04:30:00+00:00", ISOTimestamp(time.Date(2026, 3, 2, 11, 30, 0, 0, jakarta)))
}

func TestFormatOpportunity(t *testing.T) {
	o := domain.Opportunity{
		Symbol:             "TLKM",
		Market1:            "IDX (IDR)",
		Price1Orig:         3850,
		Price1USD:          0.2426,
		Bid1:               3840,
		Ask1:               3860,
		Market2:            "NASDAQ/NYSE (USD)",
		Price2Orig:         0.2441,
		Price2USD:          0.2441,
		SpreadPct:          0.637,
		PotentialProfitUSD: -4.8903,
		EstimatedFees:      5.05,
		NetProfit:          -4.8903,
		Timestamp:          time.Date(2026, 3, 2, 4, 30, 0, 123456000, time.UTC),
	}

	want := strings.Join([]string{
		"⚡ PELUANG ARBITRASE DETECTED",
		Rule(28),
		"📊 TLKM",
		Rule(28),
		"",
		"Market 1: IDX (IDR)",
		"  • Harga: $3850.0000 (0.2426 USD)",
		"    • Bid: $3840.0000",
		"    • Ask: $3860.0000",
		"",
		"Market 2: NASDAQ/NYSE (USD)",
		"  • Harga: $0.2441 (0.2441 USD)",
		"  ",
		"  ",
		"",
		"📈 Spread: 0.64%",
		"💰 Profit Potensial: $-4.8903",
		"💸 Estimasi Fee: $5.0500",
		"📊 Net Profit: $-4.8903",
		"",
		"📌 Spread terdeteksi",
		"⏰ Waktu: 2026-03-02T04:30:00.123456+00:00",
		"",
		"⚠️  MONITORING ONLY - Tidak ada eksekusi otomatis",
	}, "\n")

	assert.Equal(t, want, FormatOpportunity(o))
}

func TestFormatOpportunity_FreeMoney(t *testing.T) {
	o := opp("UNVR", 3.1, base)
	o.IsFreeMoney = true

	msg := FormatOpportunity(o)

	assert.True(t, strings.HasPrefix(msg, "🟢 PELUANG ARBITRASE DETECTED\n"))
	assert.Contains(t, msg, "\n✅ FREE MONEY PELUANG!\n")
	assert.NotContains(t, msg, "Spread terdeteksi")
}

func TestFormatSummary(t *testing.T) {
	s := Summary{
		Start:        base,
		End:          base.Add(6 * time.Hour),
		Window:       6 * time.Hour,
		Count:        3,
		FreeMoney:    1,
		MaxSpreadPct: 1.234,
		TopSymbols:   []SymbolCount{{"TLKM", 2}, {"UNVR", 1}},
	}

	want := strings.Join([]string{
		"📊 LAPORAN 6 JAM - MONITORING PASIF",
		Rule(40),
		"⏰ Periode: 2026-03-02 04:00 → 2026-03-02 10:00 UTC",
		"",
		"📈 STATISTIK:",
		Rule(40),
		"• Total peluang terdeteksi: 3",
		"• Peluang \"free money\": 1",
		"• Spread tertinggi: 1.23%",
		"",
		"🏆 TOP SAHAM (peluang terbanyak):",
		Rule(40),
		"• TLKM: 2 peluang",
		"• UNVR: 1 peluang",
		"",
		"⚠️  STATUS: MONITORING SAJA - 0% RISIKO",
		"💰 Modal: $50.00 (aman, tidak dipakai)",
		"📝 Tidak ada eksekusi trade otomatis",
		"",
		"⏰ Waktu: 2026-03-02 10:00:00 UTC",
	}, "\n")

	assert.Equal(t, want, FormatSummary(s, 50))
}

func TestFormatSummary_NoSymbols(t *testing.T) {
	s := Summary{Start: base, End: base.Add(6 * time.Hour), Window: 6 * time.Hour}

	msg := FormatSummary(s, 50)

	assert.Contains(t, msg, fmt.Sprintf("%s\n\n⚠️  STATUS", Rule(40)))
	assert.Contains(t, msg, "• Spread tertinggi: 0.00%")
}

func TestFormatStartup(t *testing.T) {
	msg := FormatStartup(time.Date(2026, 3, 2, 1, 2, 3, 0, time.UTC), 6*time.Hour)

	want := strings.Join([]string{
		"🟢 MONITORING PASIF START",
		Rule(28),
		"",
		"Sistem monitoring 24/7 telah dimulai:",
		"",
		"✅ Monitoring: IDX, NASDAQ, NYSE",
		"✅ Tracking: Bid/Ask, Mid-price, Spread",
		"✅ Laporan: Real-time jika peluang muncul",
		"✅ Summary: Setiap 6 jam",
		"",
		"🔒 PENTING: HANYA MONITORING - Tidak ada eksekusi trade",
		"💰 Modal $100% aman (tidak dipakai)",
		"",
		"⏰ 2026-03-02 01:02:03 UTC",
	}, "\n")
	assert.Equal(t, want, msg)
}
