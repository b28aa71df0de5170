package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	CachedAggregate(ctx context.Context, days int) (*service.Aggregate, bool, error)
	Score(ctx context.Context, days int) ([]model.ScoreEntry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps        LeaderboardDependencies
	defaultDays int
	maxLimit    int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, defaultDays, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:        deps,
		defaultDays: defaultDays,
		maxLimit:    maxLimit,
	}
}

type leaderboardResponse struct {
	WindowDays  int                `json:"window_days"`
	GeneratedAt time.Time          `json:"generated_at"`
	Cached      bool               `json:"cached"`
	Degraded    bool               `json:"degraded"`
	Entries     []model.ScoreEntry `json:"entries"`
}

// HandleGetLeaderboard handles GET /leaderboard?days=N&limit=M&fresh=bool.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	days, err := parseDays(r, h.defaultDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	limit := h.maxLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	fresh, err := parseBool(r, "fresh")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}

	resp := leaderboardResponse{WindowDays: days}
	if fresh {
		entries, err := h.deps.Score(r.Context(), days)
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		resp.GeneratedAt = time.Now().UTC()
		resp.Entries = entries
	} else {
		agg, hit, err := h.deps.CachedAggregate(r.Context(), days)
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		resp.GeneratedAt = agg.GeneratedAt
		resp.Cached = hit
		resp.Degraded = agg.Degraded
		resp.Entries = agg.Leaderboard
	}
	if len(resp.Entries) > limit {
		resp.Entries = resp.Entries[:limit]
	}
	if resp.Entries == nil {
		resp.Entries = []model.ScoreEntry{}
	}
	writeJSON(w, http.StatusOK, resp)
}
