package api

import (
	"context"
	"net/http"

	service "github.com/okian/devpulse/internal/app"
)

// AggregateDependencies defines the interface for full aggregation reads.
type AggregateDependencies interface {
	CachedAggregate(ctx context.Context, days int) (*service.Aggregate, bool, error)
}

// AggregateHandler handles aggregate requests.
type AggregateHandler struct {
	deps        AggregateDependencies
	defaultDays int
}

// NewAggregateHandler creates a new aggregate handler.
func NewAggregateHandler(deps AggregateDependencies, defaultDays int) *AggregateHandler {
	return &AggregateHandler{deps: deps, defaultDays: defaultDays}
}

type aggregateResponse struct {
	*service.Aggregate
	Cached bool `json:"cached"`
}

// HandleGetAggregate handles GET /aggregate?days=N requests.
func (h *AggregateHandler) HandleGetAggregate(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_aggregate"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	days, err := parseDays(r, h.defaultDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	agg, hit, err := h.deps.CachedAggregate(r.Context(), days)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, aggregateResponse{Aggregate: agg, Cached: hit})
}
