package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/devpulse/internal/app"
)

// PersonDependencies defines the interface for per-person reads.
type PersonDependencies interface {
	Person(ctx context.Context, slug string, days int) (*service.PersonView, error)
}

// PersonHandler serves one person's slice of the aggregate.
type PersonHandler struct {
	deps        PersonDependencies
	defaultDays int
}

// NewPersonHandler creates a new person handler.
func NewPersonHandler(deps PersonDependencies, defaultDays int) *PersonHandler {
	return &PersonHandler{deps: deps, defaultDays: defaultDays}
}

// HandleGetPerson handles GET /person/{slug}?days=N requests.
func (h *PersonHandler) HandleGetPerson(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_person"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	slug := strings.TrimPrefix(r.URL.Path, "/person/")
	if slug == "" || strings.Contains(slug, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	days, err := parseDays(r, h.defaultDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
		return
	}
	view, err := h.deps.Person(r.Context(), slug, days)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
