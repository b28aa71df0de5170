package api

import (
	"net/http"
	"strings"
)

// NotifyHandler triggers chat notifications.
type NotifyHandler struct {
	notifier Notifier
}

// NewNotifyHandler creates a new notify handler. A nil notifier answers 503.
func NewNotifyHandler(n Notifier) *NotifyHandler {
	return &NotifyHandler{notifier: n}
}

// HandlePostNotify handles POST /notify/{job}. Repeated triggers of a job on
// the same day answer with status "duplicate" and post nothing.
func (h *NotifyHandler) HandlePostNotify(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_notify"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	job := strings.TrimPrefix(r.URL.Path, "/notify/")
	if job == "" || strings.Contains(job, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if h.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, ErrUnavailable))
		return
	}
	delivery, err := h.notifier.Notify(r.Context(), job)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}
