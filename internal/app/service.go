// Package service wires the directory, the upstream fan-out, the result
// cache and the domain components into the operations the HTTP API, the
// notifier and the CLI consume.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/devpulse/internal/adapters/cache"
	"github.com/okian/devpulse/internal/adapters/fanout"
	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/identity"
	"github.com/okian/devpulse/internal/domain/model"
	"github.com/okian/devpulse/internal/domain/scoring"
	"github.com/okian/devpulse/internal/domain/support"
	"github.com/okian/devpulse/internal/domain/timing"
	"github.com/okian/devpulse/pkg/logger"
	"github.com/okian/devpulse/pkg/metrics"
)

// Upstream call names.
const (
	SourceOpenItems     = "open_items"
	SourceProjects      = "projects"
	SourcePRsByAuthor   = "prs_by_author"
	SourcePRsByReviewer = "prs_by_reviewer"
	SourceOnboarding    = "onboarding_items"
	sourceCompleted     = "completed:"
	sourceCreated       = "created:"
)

// dirState pairs a directory snapshot with the identity index built from it.
type dirState struct {
	snapshot *directory.Snapshot
	index    *identity.Index
	loadedAt time.Time
}

// Service implements the aggregation operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	tracker       Tracker
	source        SourceControl
	pool          *fanout.Pool
	cache         *cache.Cache[*Aggregate]
	engine        *scoring.Engine
	support       *support.Resolver
	loadDirectory func(ctx context.Context) (*directory.Snapshot, error)
	initial       *directory.Snapshot
	state         atomic.Pointer[dirState]

	// Configuration
	workerCount          int
	queueSize            int
	upstreamTimeout      time.Duration
	cacheTTL             time.Duration
	maxWindowDays        int
	workLabels           []string
	openLabel            string
	openMaxPriority      int
	completedMaxPriority int
	staleDays            int
	location             *time.Location
	now                  func() time.Time

	// State
	started bool
	runs    atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		engine:               scoring.New(),
		support:              support.New(),
		workerCount:          runtime.NumCPU() * 2,
		queueSize:            256,
		upstreamTimeout:      10 * time.Second,
		cacheTTL:             cache.DefaultTTL,
		maxWindowDays:        365,
		workLabels:           []string{"Bug", "New Feature", "Technical Change"},
		openLabel:            "Bug",
		openMaxPriority:      2,
		completedMaxPriority: 5,
		staleDays:            30,
		location:             time.UTC,
		now:                  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	// cacheTTL is always positive here, so New cannot fail.
	s.cache, _ = cache.New[*Aggregate](s.cacheTTL, cache.WithClock[*Aggregate](s.now))
	s.pool = s.newPool()
	if s.initial != nil {
		s.swapDirectory(s.initial)
	}
	return s
}

func (s *Service) newPool() *fanout.Pool {
	return fanout.New(
		fanout.WithWorkers(s.workerCount),
		fanout.WithQueueSize(s.queueSize),
		fanout.WithLogger(s.logger.Named("fanout")),
	)
}

// Start launches the upstream worker pool. A directory loader, if
// configured and no snapshot was installed, is run once.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting aggregation service...")

	if s.state.Load() == nil && s.loadDirectory != nil {
		snap, err := s.loadDirectory(ctx)
		if err != nil {
			metrics.RecordDirectoryReload(false)
			return fmt.Errorf("initial directory load: %w", err)
		}
		metrics.RecordDirectoryReload(true)
		s.swapDirectory(snap)
	}

	s.pool.Start(ctx)
	s.started = true
	s.logger.Info(ctx, "aggregation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("upstreamTimeout", s.upstreamTimeout),
		logger.Duration("cacheTTL", s.cacheTTL),
	)
	return nil
}

// Stop shuts the worker pool down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping aggregation service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	// A stopped pool rejects every call; keep a fresh one for the next Start.
	s.pool = s.newPool()
	s.started = false
	s.logger.Info(ctx, "aggregation service stopped")
}

// ready returns the running pool and the directory state, or the reason the
// service cannot serve yet.
func (s *Service) ready() (*fanout.Pool, *dirState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	st := s.state.Load()
	if st == nil {
		return nil, nil, ErrNoDirectory
	}
	return s.pool, st, nil
}

// ValidateWindow checks 1 <= days <= the configured maximum.
func (s *Service) ValidateWindow(days int) error {
	if days < 1 || days > s.maxWindowDays {
		return fmt.Errorf("%w: days must be between 1 and %d, got %d", ErrInvalidWindow, s.maxWindowDays, days)
	}
	return nil
}

// MaxWindowDays returns the largest accepted window.
func (s *Service) MaxWindowDays() int { return s.maxWindowDays }

// Directory returns the active directory snapshot, or nil.
func (s *Service) Directory() *directory.Snapshot {
	if st := s.state.Load(); st != nil {
		return st.snapshot
	}
	return nil
}

// SetDirectory installs snap and drops cached results computed against the
// previous directory.
func (s *Service) SetDirectory(snap *directory.Snapshot) {
	if snap == nil {
		return
	}
	s.swapDirectory(snap)
	s.cache.Purge()
}

func (s *Service) swapDirectory(snap *directory.Snapshot) {
	s.state.Store(&dirState{
		snapshot: snap,
		index:    identity.FromSnapshot(snap),
		loadedAt: s.now(),
	})
	metrics.UpdateDirectoryPeople(snap.Len())
}

// ReloadDirectory loads a fresh snapshot. On failure the previous one stays.
func (s *Service) ReloadDirectory(ctx context.Context) (*directory.Snapshot, error) {
	if s.loadDirectory == nil {
		return nil, ErrNoDirectorySource
	}
	snap, err := s.loadDirectory(ctx)
	if err != nil {
		metrics.RecordDirectoryReload(false)
		s.logger.Error(ctx, "directory reload failed, keeping previous snapshot", logger.Error(err))
		return nil, fmt.Errorf("reload directory: %w", err)
	}
	metrics.RecordDirectoryReload(true)
	s.SetDirectory(snap)
	s.logger.Info(ctx, "directory reloaded", logger.Int("people", snap.Len()))
	return snap, nil
}

// CachedAggregate serves Aggregate through the epoch cache. hit reports
// whether the result was computed by an earlier or concurrent request.
func (s *Service) CachedAggregate(ctx context.Context, days int) (*Aggregate, bool, error) {
	if err := s.ValidateWindow(days); err != nil {
		return nil, false, err
	}
	if _, _, err := s.ready(); err != nil {
		return nil, false, err
	}
	return s.cache.Get(ctx, days, func(ctx context.Context) (*Aggregate, error) {
		return s.Aggregate(ctx, days)
	})
}

type scoringInputs struct {
	completed  []model.WorkItem
	projects   []model.Project
	byAuthor   map[string][]model.PullRequest
	byReviewer map[string][]model.PullRequest
}

func (s *Service) scoringCalls(days int) []fanout.Call {
	calls := make([]fanout.Call, 0, len(s.workLabels)+3)
	for _, label := range s.workLabels {
		label := label
		calls = append(calls, fanout.Call{
			Name:    sourceCompleted + label,
			Default: []model.WorkItem(nil),
			Fetch: func(ctx context.Context) (any, error) {
				return s.tracker.CompletedWorkItems(ctx, s.completedMaxPriority, label, days)
			},
		})
	}
	calls = append(calls,
		fanout.Call{
			Name:    SourceProjects,
			Default: []model.Project(nil),
			Fetch: func(ctx context.Context) (any, error) {
				return s.tracker.Projects(ctx)
			},
		},
		fanout.Call{
			Name:    SourcePRsByAuthor,
			Default: map[string][]model.PullRequest{},
			Fetch: func(ctx context.Context) (any, error) {
				return s.source.MergedPullRequestsByAuthor(ctx, days)
			},
		},
		fanout.Call{
			Name:    SourcePRsByReviewer,
			Default: map[string][]model.PullRequest{},
			Fetch: func(ctx context.Context) (any, error) {
				return s.source.MergedPullRequestsByReviewer(ctx, days)
			},
		},
	)
	return calls
}

func (s *Service) readScoringInputs(results []fanout.Result) scoringInputs {
	var in scoringInputs
	lists := make([][]model.WorkItem, 0, len(s.workLabels))
	for _, r := range results[:len(s.workLabels)] {
		lists = append(lists, fanout.Value[[]model.WorkItem](r))
	}
	in.completed = mergeItems(lists...)
	rest := results[len(s.workLabels):]
	in.projects = fanout.Value[[]model.Project](rest[0])
	in.byAuthor = fanout.Value[map[string][]model.PullRequest](rest[1])
	in.byReviewer = fanout.Value[map[string][]model.PullRequest](rest[2])
	return in
}

// Aggregate fetches every source for the window and computes the leaderboard,
// the open queue and time metrics. Unavailable sources degrade to empty data.
func (s *Service) Aggregate(ctx context.Context, days int) (*Aggregate, error) {
	if err := s.ValidateWindow(days); err != nil {
		return nil, err
	}
	pool, st, err := s.ready()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	now := s.now()
	runID := uuid.NewString()
	ctx = logger.ContextWith(ctx, logger.String("run_id", runID))
	log := s.logger.With(logger.Int("days", days))

	calls := s.scoringCalls(days)
	calls = append(calls, fanout.Call{
		Name:    SourceOpenItems,
		Default: []model.WorkItem(nil),
		Fetch: func(ctx context.Context) (any, error) {
			return s.tracker.OpenWorkItems(ctx, s.openMaxPriority, s.openLabel)
		},
	})
	for _, label := range s.workLabels {
		label := label
		calls = append(calls, fanout.Call{
			Name:    sourceCreated + label,
			Default: []model.WorkItem(nil),
			Fetch: func(ctx context.Context) (any, error) {
				return s.tracker.CreatedWorkItems(ctx, s.completedMaxPriority, label, days)
			},
		})
	}

	results := pool.Collect(ctx, calls, s.upstreamTimeout)
	scored := len(s.workLabels) + 3
	in := s.readScoringInputs(results[:scored])
	open := fanout.Value[[]model.WorkItem](results[scored])
	createdLists := make([][]model.WorkItem, 0, len(s.workLabels))
	for _, r := range results[scored+1:] {
		createdLists = append(createdLists, fanout.Value[[]model.WorkItem](r))
	}
	created := mergeItems(createdLists...)

	platforms := st.snapshot.Platforms()
	assignPlatforms(open, platforms, s.openLabel)
	assignPlatforms(in.completed, platforms, "")

	leaderboard := s.engine.Score(scoring.Input{
		Directory: st.index,
		WorkItems: in.completed,
		PullRequests: scoring.PullRequests{
			ByAuthor:   in.byAuthor,
			ByReviewer: in.byReviewer,
		},
		Projects:   in.projects,
		WindowDays: days,
		Now:        now,
	})

	sources, degraded := statuses(results)
	agg := &Aggregate{
		RunID:          runID,
		WindowDays:     days,
		Epoch:          s.cache.KeyFor(days).Epoch,
		GeneratedAt:    now,
		Leaderboard:    leaderboard,
		OpenItems:      open,
		CompletedCount: len(in.completed),
		CreatedCount:   len(created),
		Timing:         timing.Summarize(in.completed),
		OpenByPlatform: timing.ByPlatform(open),
		OpenByProject:  timing.ByProject(open),
		StaleByAssignee: timing.StaleByAssignee(open, now, s.staleDays, func(raw string) string {
			return st.index.Key(raw).Key
		}),
		Sources:  sources,
		Degraded: degraded,
	}

	s.runs.Add(1)
	elapsed := time.Since(start)
	metrics.RecordAggregation(float64(elapsed.Milliseconds()), degraded)
	metrics.UpdateLeaderboardEntries(len(leaderboard))
	log.Info(ctx, "aggregation finished",
		logger.Int("entries", len(leaderboard)),
		logger.Int("open_items", len(open)),
		logger.Bool("degraded", degraded),
		logger.Duration("elapsed", elapsed),
	)
	return agg, nil
}

// Score recomputes the leaderboard for the window without the cache.
func (s *Service) Score(ctx context.Context, days int) ([]model.ScoreEntry, error) {
	if err := s.ValidateWindow(days); err != nil {
		return nil, err
	}
	pool, st, err := s.ready()
	if err != nil {
		return nil, err
	}
	results := pool.Collect(ctx, s.scoringCalls(days), s.upstreamTimeout)
	in := s.readScoringInputs(results)
	leaderboard := s.engine.Score(scoring.Input{
		Directory: st.index,
		WorkItems: in.completed,
		PullRequests: scoring.PullRequests{
			ByAuthor:   in.byAuthor,
			ByReviewer: in.byReviewer,
		},
		Projects:   in.projects,
		WindowDays: days,
		Now:        s.now(),
	})
	return leaderboard, nil
}

// Person returns the cached aggregate narrowed to one directory slug: the
// person's leaderboard entry, the open items assigned to them and their stale
// items. Entry is nil when the person scored nothing in the window.
func (s *Service) Person(ctx context.Context, slug string, days int) (*PersonView, error) {
	_, st, err := s.ready()
	if err != nil {
		return nil, err
	}
	p, ok := st.index.Person(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPerson, slug)
	}
	agg, hit, err := s.CachedAggregate(ctx, days)
	if err != nil {
		return nil, err
	}
	view := &PersonView{
		Person:     p,
		WindowDays: agg.WindowDays,
		Open:       []model.WorkItem{},
		Stale:      agg.StaleByAssignee[slug],
		Cached:     hit,
	}
	for i := range agg.Leaderboard {
		if agg.Leaderboard[i].Identity == slug {
			entry := agg.Leaderboard[i]
			view.Entry = &entry
			break
		}
	}
	for _, it := range agg.OpenItems {
		if it.Assignee != "" && st.index.Key(it.Assignee).Key == slug {
			view.Open = append(view.Open, it)
		}
	}
	if view.Stale == nil {
		view.Stale = []timing.StaleItem{}
	}
	return view, nil
}

// Today returns the current date in the configured timezone.
func (s *Service) Today() time.Time {
	return s.now().In(s.location)
}

// SupportRoster resolves who is available for support on today.
func (s *Service) SupportRoster(ctx context.Context, today time.Time) (*Roster, error) {
	pool, st, err := s.ready()
	if err != nil {
		return nil, err
	}

	first := pool.Collect(ctx, []fanout.Call{{
		Name:    SourceProjects,
		Default: []model.Project(nil),
		Fetch: func(ctx context.Context) (any, error) {
			return s.tracker.Projects(ctx)
		},
	}}, s.upstreamTimeout)
	projects := fanout.Value[[]model.Project](first[0])

	results := first
	var onboardingItems []model.WorkItem
	if names := s.support.OnboardingProjects(projects); len(names) > 0 {
		second := pool.Collect(ctx, []fanout.Call{{
			Name:    SourceOnboarding,
			Default: []model.WorkItem(nil),
			Fetch: func(ctx context.Context) (any, error) {
				return s.tracker.OpenWorkItemsInProjects(ctx, names)
			},
		}}, s.upstreamTimeout)
		onboardingItems = fanout.Value[[]model.WorkItem](second[0])
		results = append(results, second...)
	}

	people := st.snapshot.People()
	slugs := s.support.Roster(people, st.index, projects, onboardingItems, today)
	roster := &Roster{Date: today.Format("2006-01-02")}
	for _, slug := range slugs {
		if p, ok := st.snapshot.Person(slug); ok {
			roster.People = append(roster.People, p)
		}
	}
	roster.Sources, roster.Degraded = statuses(results)
	metrics.UpdateSupportRosterSize(len(roster.People))
	s.logger.Info(ctx, "support roster resolved",
		logger.String("date", roster.Date),
		logger.Strings("people", slugs),
		logger.Bool("degraded", roster.Degraded),
	)
	return roster, nil
}

// Stats returns runtime statistics.
func (s *Service) Stats() map[string]any {
	s.mu.RLock()
	started := s.started
	pool := s.pool
	s.mu.RUnlock()

	stats := map[string]any{
		"started":          started,
		"aggregations":     s.runs.Load(),
		"cache_entries":    s.cache.Len(),
		"cache_ttl":        s.cacheTTL.String(),
		"upstream_timeout": s.upstreamTimeout.String(),
		"max_window_days":  s.maxWindowDays,
	}
	for k, v := range pool.Stats() {
		stats[k] = v
	}
	if st := s.state.Load(); st != nil {
		stats["directory_people"] = st.snapshot.Len()
		stats["directory_aliases"] = st.index.Len()
		stats["directory_loaded_at"] = st.loadedAt
		stats["directory_source"] = st.snapshot.Source()
	}
	return stats
}
