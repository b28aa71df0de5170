// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/model"
	"github.com/okian/devpulse/internal/notify"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider

	CachedAggregate(ctx context.Context, days int) (*service.Aggregate, bool, error)
	Person(ctx context.Context, slug string, days int) (*service.PersonView, error)
	Score(ctx context.Context, days int) ([]model.ScoreEntry, error)
	SupportRoster(ctx context.Context, today time.Time) (*service.Roster, error)
	ReloadDirectory(ctx context.Context) (*directory.Snapshot, error)
	Directory() *directory.Snapshot
	Today() time.Time
}

// Notifier delivers chat notifications.
type Notifier interface {
	Notify(ctx context.Context, job string) (notify.Delivery, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	aggregateHandler   *AggregateHandler
	personHandler      *PersonHandler
	supportHandler     *SupportHandler
	notifyHandler      *NotifyHandler
	directoryHandler   *DirectoryHandler
	dashboardHandler   *dashboardHandler
}

// Option applies a configuration option to the Server.
type Option func(*settings)

type settings struct {
	defaultDays int
	maxLimit    int
	notifier    Notifier
}

// WithDefaultDays sets the window used when a request names none.
func WithDefaultDays(days int) Option {
	return func(s *settings) {
		if days > 0 {
			s.defaultDays = days
		}
	}
}

// WithMaxLimit caps the leaderboard limit parameter.
func WithMaxLimit(limit int) Option {
	return func(s *settings) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithNotifier enables POST /notify/{job}.
func WithNotifier(n Notifier) Option {
	return func(s *settings) {
		s.notifier = n
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := settings{defaultDays: 30, maxLimit: 100}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps, deps.Today),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.defaultDays, cfg.maxLimit),
		aggregateHandler:   NewAggregateHandler(deps, cfg.defaultDays),
		personHandler:      NewPersonHandler(deps, cfg.defaultDays),
		supportHandler:     NewSupportHandler(deps),
		notifyHandler:      NewNotifyHandler(cfg.notifier),
		directoryHandler:   NewDirectoryHandler(deps),
		dashboardHandler:   newDashboardHandler(deps, cfg.defaultDays),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/aggregate", MetricsMiddleware(s.aggregateHandler.HandleGetAggregate, "aggregate"))
	mux.HandleFunc("/person/", MetricsMiddleware(s.personHandler.HandleGetPerson, "person"))
	mux.HandleFunc("/support", MetricsMiddleware(s.supportHandler.HandleGetSupport, "support"))
	mux.HandleFunc("/notify/", MetricsMiddleware(s.notifyHandler.HandlePostNotify, "notify"))
	mux.HandleFunc("/directory/reload", MetricsMiddleware(s.directoryHandler.HandleReload, "directory_reload"))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and notifier errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidWindow), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, notify.ErrUnknownJob), errors.Is(err, service.ErrUnknownPerson),
		errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrNoDirectory),
		errors.Is(err, service.ErrNoDirectorySource), errors.Is(err, notify.ErrMissingWebhook),
		errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	case errors.Is(err, notify.ErrDelivery):
		writeError(w, http.StatusBadGateway, "upstream_error", WrapKind(op, ErrUpstream, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// parseDays reads ?days, falling back to def when absent.
func parseDays(r *http.Request, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: days must be an integer", ErrBadRequest)
	}
	return n, nil
}

// parseBool reads a boolean query flag; absent means false.
func parseBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrBadRequest, name)
	}
	return v, nil
}
