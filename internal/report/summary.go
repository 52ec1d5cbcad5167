package report

import (
	"sort"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// topSymbolLimit caps how many symbols a summary ranks.
const topSymbolLimit = 5

// SymbolCount is one row of the summary's most-frequent symbols.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// Summary aggregates the opportunities reported inside a trailing window.
type Summary struct {
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Window       time.Duration `json:"window"`
	Count        int           `json:"count"`
	FreeMoney    int           `json:"free_money"`
	MaxSpreadPct float64       `json:"max_spread_pct"`
	TopSymbols   []SymbolCount `json:"top_symbols"`
}

// Summarize aggregates history over [now-window, now]. Entries exactly at the
// window start are included. MaxSpreadPct is 0 for an empty window, and ties
// in the symbol ranking keep the order in which symbols were first seen.
func Summarize(history []domain.Opportunity, now time.Time, window time.Duration) Summary {
	start := now.Add(-window)
	s := Summary{Start: start, End: now, Window: window}

	counts := make(map[string]int)
	var order []string
	for _, opp := range history {
		if opp.Timestamp.Before(start) {
			continue
		}
		s.Count++
		if opp.IsFreeMoney {
			s.FreeMoney++
		}
		if opp.SpreadPct > s.MaxSpreadPct {
			s.MaxSpreadPct = opp.SpreadPct
		}
		if _, ok := counts[opp.Symbol]; !ok {
			order = append(order, opp.Symbol)
		}
		counts[opp.Symbol]++
	}

	ranked := make([]SymbolCount, 0, len(order))
	for _, sym := range order {
		ranked = append(ranked, SymbolCount{Symbol: sym, Count: counts[sym]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > topSymbolLimit {
		ranked = ranked[:topSymbolLimit]
	}
	s.TopSymbols = ranked
	return s
}
