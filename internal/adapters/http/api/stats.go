package api

import (
	"net/http"
	"time"
)

// StatsProvider reports runtime statistics.
type StatsProvider interface {
	Stats() map[string]any
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
	today    func() time.Time
}

// NewStatsHandler creates a stats handler. today may be nil.
func NewStatsHandler(provider StatsProvider, today func() time.Time) *StatsHandler {
	return &StatsHandler{provider: provider, today: today}
}

// HandleStats writes the provider's statistics plus the current roster date.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	out := h.provider.Stats()
	if out == nil {
		out = map[string]any{}
	}
	if h.today != nil {
		out["today"] = h.today().Format(time.DateOnly)
	}
	writeJSON(w, http.StatusOK, out)
}
