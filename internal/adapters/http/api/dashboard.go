package api

import (
	"bytes"
	"context"
	"net/http"
	"sort"
	"strconv"

	service "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/model"
)

// DashboardDependencies defines the interface the dashboard renders from.
type DashboardDependencies interface {
	CachedAggregate(ctx context.Context, days int) (*service.Aggregate, bool, error)
	Directory() *directory.Snapshot
}

// dashboardHandler renders the HTML dashboard.
type dashboardHandler struct {
	deps        DashboardDependencies
	defaultDays int
}

func newDashboardHandler(deps DashboardDependencies, defaultDays int) *dashboardHandler {
	return &dashboardHandler{deps: deps, defaultDays: defaultDays}
}

type platformCount struct {
	Label string
	Count int
}

type dashboardView struct {
	Days       int
	Windows    []int
	Categories []string
	Aggregate  *service.Aggregate
	Platforms  []platformCount
}

// HandleDashboard handles GET /dashboard?days=N requests.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_dashboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	days, err := parseDays(r, h.defaultDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	agg, _, err := h.deps.CachedAggregate(r.Context(), days)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}

	view := dashboardView{
		Days:       days,
		Windows:    []int{7, 14, 30, 90},
		Categories: model.Categories,
		Aggregate:  agg,
		Platforms:  platformCounts(agg.OpenByPlatform, h.deps.Directory()),
	}
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// platformCounts labels counts with the directory's platform labels, most
// open first.
func platformCounts(counts map[string]int, snap *directory.Snapshot) []platformCount {
	labels := map[string]string{}
	if snap != nil {
		for _, p := range snap.Platforms() {
			labels[p.Slug] = p.Label
		}
	}
	out := make([]platformCount, 0, len(counts))
	for slug, n := range counts {
		label := labels[slug]
		if label == "" {
			label = slug
		}
		out = append(out, platformCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
