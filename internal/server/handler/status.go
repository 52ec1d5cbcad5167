package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// StateSource exposes the detector's current snapshot.
type StateSource interface {
	State() domain.ReportState
}

// StatusHandler serves the monitor status.
type StatusHandler struct {
	mode  string
	state StateSource
}

// NewStatusHandler creates a StatusHandler for the given run mode.
func NewStatusHandler(mode string, state StateSource) *StatusHandler {
	return &StatusHandler{mode: mode, state: state}
}

// GetStatus responds with the run mode and the snapshot counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.state.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":                      h.mode,
		"monitoring_status":         st.MonitoringStatus,
		"last_update":               st.LastUpdate.UTC().Format(time.RFC3339),
		"last_summary_time":         st.LastSummaryTime,
		"total_opportunities_found": st.TotalOpportunitiesFound,
		"recent_opportunities":      len(st.Opportunities),
	})
}
