package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/domain/model"
)

// SupportDependencies defines the interface for support roster reads.
type SupportDependencies interface {
	SupportRoster(ctx context.Context, today time.Time) (*service.Roster, error)
	Today() time.Time
}

// SupportHandler handles support roster requests.
type SupportHandler struct {
	deps SupportDependencies
}

// NewSupportHandler creates a new support handler.
func NewSupportHandler(deps SupportDependencies) *SupportHandler {
	return &SupportHandler{deps: deps}
}

// HandleGetSupport handles GET /support?date=YYYY-MM-DD; the date defaults to today.
func (h *SupportHandler) HandleGetSupport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_support"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	day := h.deps.Today()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, ok := model.ParseDate(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		day = parsed
	}
	roster, err := h.deps.SupportRoster(r.Context(), day)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}
