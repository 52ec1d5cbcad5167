package handler

import (
	"net/http"

	"github.com/alanyoungcy/arbwatch/internal/ledger"
)

// LedgerView is the read side of the simulated trading book.
type LedgerView interface {
	Book() ledger.Book
	WinRate() float64
	TopStocks(n int) []ledger.SymbolProfit
}

// LedgerHandler serves the simulated book.
type LedgerHandler struct {
	ledger LedgerView
}

func NewLedgerHandler(l LedgerView) *LedgerHandler {
	return &LedgerHandler{ledger: l}
}

// GetLedger responds with the book state, win rate and top symbols.
// GET /api/ledger
func (h *LedgerHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	b := h.ledger.Book()
	top := h.ledger.TopStocks(5)
	rows := make([]map[string]any, 0, len(top))
	for _, sp := range top {
		rows = append(rows, map[string]any{"symbol": sp.Symbol, "profit": sp.Profit})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":           b.State,
		"risk_management": b.RiskManagement,
		"win_rate":        h.ledger.WinRate(),
		"top_stocks":      rows,
	})
}
