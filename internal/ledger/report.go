package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/report"
)

const topStockLimit = 5

func formatDailyReport(b Book, now time.Time) string {
	st := b.State
	rm := b.RiskManagement

	lines := make([]string, 0, len(b.Performance.TopStocks))
	for _, sp := range topStocks(b.Performance.TopStocks, topStockLimit) {
		lines = append(lines, fmt.Sprintf("  • %s: $%.2f", sp.Symbol, sp.Profit))
	}
	top := "  • Belum ada data"
	if len(lines) > 0 {
		top = strings.Join(lines, "\n")
	}

	var s strings.Builder
	s.WriteString("📊 LAPORAN HARIAN ARBITRASE SAHAM\n")
	s.WriteString(report.Rule(36) + "\n\n")
	fmt.Fprintf(&s, "🔍 Peluang Arbitrase Ditemukan: %d\n", st.OpportunitiesFound)
	fmt.Fprintf(&s, "💰 Modal Awal: $%.2f\n", b.initialCapital())
	fmt.Fprintf(&s, "💵 Sisa Modal: $%.2f\n", st.CurrentCapital)
	fmt.Fprintf(&s, "📈 Total Profit: $%.2f\n", st.TotalProfit)
	fmt.Fprintf(&s, "📉 Total Loss: $%.2f\n", st.TotalLoss)
	fmt.Fprintf(&s, "🔄 Trade Dieksekusi: %d\n", st.TradesExecuted)
	fmt.Fprintf(&s, "✅ Menang: %d\n", st.Wins)
	fmt.Fprintf(&s, "❌ Kalah: %d\n", st.Losses)
	fmt.Fprintf(&s, "📊 Win Rate: %.1f%%\n\n", winRate(st))
	s.WriteString("🏆 Top Saham (Profit Tertinggi):\n")
	s.WriteString(top + "\n\n")
	fmt.Fprintf(&s, "⏰ Waktu: %s UTC\n\n", now.UTC().Format("2006-01-02 15:04:05"))
	s.WriteString(report.Rule(36) + "\n")
	s.WriteString("Mode: CONSERVATIF (Data-Driven Analysis)\n")
	fmt.Fprintf(&s, "Risk-Reward Ratio Minimal: %s:1\n", pyFloat(rm.MinRiskRewardRatio))
	fmt.Fprintf(&s, "Max Loss Per Trade: $%s\n", pyFloat(rm.MaxLossPerTrade))
	fmt.Fprintf(&s, "Stop Total Loss: $%s\n", pyFloat(rm.MaxLossTotal))
	return s.String()
}

// pyFloat renders a threshold the way the book's readers are used to seeing
// it: the shortest round-trip form, with integral values keeping one
// decimal ("2.0", "2.5", "0.35").
func pyFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
