package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

const maxOpportunities = 500

// OpportunityHandler serves reported opportunities.
type OpportunityHandler struct {
	state   StateSource
	history domain.OpportunityStore // optional; nil disables ?since=
	logger  *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler. history may be nil.
func NewOpportunityHandler(state StateSource, history domain.OpportunityStore, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{state: state, history: history, logger: logger}
}

// ListOpportunities returns the snapshot's recent opportunities newest
// first. With ?since=RFC3339 it queries the history store instead.
// GET /api/opportunities
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, maxOpportunities)

	if v := r.URL.Query().Get("since"); v != "" {
		h.listSince(w, r, v, limit)
		return
	}

	opps := slices.Clone(h.state.State().Opportunities)
	slices.Reverse(opps)
	if len(opps) > limit {
		opps = opps[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": nonNil(opps)})
}

func (h *OpportunityHandler) listSince(w http.ResponseWriter, r *http.Request, raw string, limit int) {
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "opportunity history is not enabled")
		return
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
		return
	}

	opps, err := h.history.ListSince(r.Context(), since)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list opportunities failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if len(opps) > limit {
		opps = opps[len(opps)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": nonNil(opps)})
}

func nonNil(opps []domain.Opportunity) []domain.Opportunity {
	if opps == nil {
		return []domain.Opportunity{}
	}
	return opps
}
