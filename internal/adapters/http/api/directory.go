package api

import (
	"context"
	"net/http"

	"github.com/okian/devpulse/internal/directory"
)

// DirectoryDependencies defines the interface for directory reloads.
type DirectoryDependencies interface {
	ReloadDirectory(ctx context.Context) (*directory.Snapshot, error)
}

// DirectoryHandler handles directory reload requests.
type DirectoryHandler struct {
	deps DirectoryDependencies
}

// NewDirectoryHandler creates a new directory handler.
func NewDirectoryHandler(deps DirectoryDependencies) *DirectoryHandler {
	return &DirectoryHandler{deps: deps}
}

type reloadResponse struct {
	People    int    `json:"people"`
	Platforms int    `json:"platforms"`
	Source    string `json:"source,omitempty"`
}

// HandleReload handles POST /directory/reload. On failure the previous
// directory stays active.
func (h *DirectoryHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	const op = "api.reload_directory"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.ReloadDirectory(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		People:    snap.Len(),
		Platforms: len(snap.Platforms()),
		Source:    snap.Source(),
	})
}
