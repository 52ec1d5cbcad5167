package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

const (
	warnSign  = "\u26a0\ufe0f"
	minuteFmt = "2006-01-02 15:04"
	secondFmt = "2006-01-02 15:04:05"
)

// Rule renders a horizontal divider of n box-drawing characters.
func Rule(n int) string {
	return strings.Repeat("━", n)
}

// ISOTimestamp renders t in UTC as 2006-01-02T15:04:05.000000+00:00, dropping
// the fractional part when it is zero. This is the timestamp format the
// notification consumers have always received.
func ISOTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/1000 == 0 {
		return t.Format("2006-01-02T15:04:05-07:00")
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}

// FormatOpportunity renders the alert for a single opportunity.
func FormatOpportunity(opp domain.Opportunity) string {
	emoji, banner := "⚡", "📌 Spread terdeteksi"
	if opp.IsFreeMoney {
		emoji, banner = "🟢", "✅ FREE MONEY PELUANG!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s PELUANG ARBITRASE DETECTED\n", emoji)
	b.WriteString(Rule(28) + "\n")
	fmt.Fprintf(&b, "📊 %s\n", opp.Symbol)
	b.WriteString(Rule(28) + "\n\n")

	writeLeg(&b, 1, opp.Market1, opp.Price1Orig, opp.Price1USD, opp.Bid1, opp.Ask1)
	b.WriteString("\n")
	writeLeg(&b, 2, opp.Market2, opp.Price2Orig, opp.Price2USD, opp.Bid2, opp.Ask2)
	b.WriteString("\n")

	fmt.Fprintf(&b, "📈 Spread: %.2f%%\n", opp.SpreadPct)
	fmt.Fprintf(&b, "💰 Profit Potensial: $%.4f\n", opp.PotentialProfitUSD)
	fmt.Fprintf(&b, "💸 Estimasi Fee: $%.4f\n", opp.EstimatedFees)
	fmt.Fprintf(&b, "📊 Net Profit: $%.4f\n\n", opp.NetProfit)

	b.WriteString(banner + "\n")
	fmt.Fprintf(&b, "⏰ Waktu: %s\n\n", ISOTimestamp(opp.Timestamp))
	b.WriteString(warnSign + "  MONITORING ONLY - Tidak ada eksekusi otomatis")
	return b.String()
}

// writeLeg writes one market block. Missing bid or ask leaves an indented
// blank line in place so the block keeps a fixed shape.
func writeLeg(b *strings.Builder, n int, market string, orig, usd, bid, ask float64) {
	fmt.Fprintf(b, "Market %d: %s\n", n, market)
	fmt.Fprintf(b, "  • Harga: $%.4f (%.4f USD)\n", orig, usd)
	b.WriteString("  " + optionalLine("Bid", bid) + "\n")
	b.WriteString("  " + optionalLine("Ask", ask) + "\n")
}

func optionalLine(label string, v float64) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("  • %s: $%.4f", label, v)
}

// FormatSummary renders the periodic digest. capitalUSD is the idle capital
// figure quoted in the footer.
func FormatSummary(s Summary, capitalUSD float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 LAPORAN %d JAM - MONITORING PASIF\n", windowHours(s.Window))
	b.WriteString(Rule(40) + "\n")
	fmt.Fprintf(&b, "⏰ Periode: %s → %s UTC\n\n",
		s.Start.UTC().Format(minuteFmt), s.End.UTC().Format(minuteFmt))

	b.WriteString("📈 STATISTIK:\n")
	b.WriteString(Rule(40) + "\n")
	fmt.Fprintf(&b, "• Total peluang terdeteksi: %d\n", s.Count)
	fmt.Fprintf(&b, "• Peluang \"free money\": %d\n", s.FreeMoney)
	fmt.Fprintf(&b, "• Spread tertinggi: %.2f%%\n\n", s.MaxSpreadPct)

	b.WriteString("🏆 TOP SAHAM (peluang terbanyak):\n")
	b.WriteString(Rule(40))
	for _, sc := range s.TopSymbols {
		fmt.Fprintf(&b, "\n• %s: %d peluang", sc.Symbol, sc.Count)
	}

	b.WriteString("\n\n")
	b.WriteString(warnSign + "  STATUS: MONITORING SAJA - 0% RISIKO\n")
	fmt.Fprintf(&b, "💰 Modal: $%.2f (aman, tidak dipakai)\n", capitalUSD)
	b.WriteString("📝 Tidak ada eksekusi trade otomatis\n\n")
	fmt.Fprintf(&b, "⏰ Waktu: %s UTC", s.End.UTC().Format(secondFmt))
	return b.String()
}

// FormatStartup renders the message published once when the detector starts.
func FormatStartup(now time.Time, summaryInterval time.Duration) string {
	var b strings.Builder
	b.WriteString("🟢 MONITORING PASIF START\n")
	b.WriteString(Rule(28) + "\n\n")
	b.WriteString("Sistem monitoring 24/7 telah dimulai:\n\n")
	b.WriteString("✅ Monitoring: IDX, NASDAQ, NYSE\n")
	b.WriteString("✅ Tracking: Bid/Ask, Mid-price, Spread\n")
	b.WriteString("✅ Laporan: Real-time jika peluang muncul\n")
	fmt.Fprintf(&b, "✅ Summary: Setiap %d jam\n\n", windowHours(summaryInterval))
	b.WriteString("🔒 PENTING: HANYA MONITORING - Tidak ada eksekusi trade\n")
	b.WriteString("💰 Modal $100% aman (tidak dipakai)\n\n")
	fmt.Fprintf(&b, "⏰ %s UTC", now.UTC().Format(secondFmt))
	return b.String()
}

func windowHours(d time.Duration) int {
	return int(d / time.Hour)
}
