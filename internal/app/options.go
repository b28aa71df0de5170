package service

import (
	"context"
	"time"

	"github.com/okian/devpulse/internal/adapters/upstream/snapshot"
	"github.com/okian/devpulse/internal/config"
	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/credit"
	"github.com/okian/devpulse/internal/domain/scoring"
	"github.com/okian/devpulse/internal/domain/support"
	"github.com/okian/devpulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTracker sets the issue-tracker client.
func WithTracker(t Tracker) Option {
	return func(s *Service) {
		s.tracker = t
	}
}

// WithSourceControl sets the source-control client.
func WithSourceControl(sc SourceControl) Option {
	return func(s *Service) {
		s.source = sc
	}
}

// WithDirectory installs an initial directory snapshot.
func WithDirectory(snap *directory.Snapshot) Option {
	return func(s *Service) {
		if snap != nil {
			s.initial = snap
		}
	}
}

// WithDirectoryLoader sets how ReloadDirectory obtains a fresh snapshot.
func WithDirectoryLoader(load func(ctx context.Context) (*directory.Snapshot, error)) Option {
	return func(s *Service) {
		s.loadDirectory = load
	}
}

// WithWorkerCount sets the number of concurrent upstream calls.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the upstream call queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithUpstreamTimeout sets the per-call upstream deadline.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.upstreamTimeout = d
		}
	}
}

// WithCacheTTL sets the aggregate cache epoch length.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cacheTTL = d
		}
	}
}

// WithMaxWindowDays caps accepted windows.
func WithMaxWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.maxWindowDays = days
		}
	}
}

// WithScoringEngine sets the scoring engine.
func WithScoringEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithSupportResolver sets the support roster resolver.
func WithSupportResolver(r *support.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.support = r
		}
	}
}

// WithWorkLabels sets the labels queried for completed and created items.
func WithWorkLabels(labels ...string) Option {
	return func(s *Service) {
		if len(labels) > 0 {
			s.workLabels = append([]string(nil), labels...)
		}
	}
}

// WithOpenQuery sets the label and priority bound of the open queue.
func WithOpenQuery(label string, maxPriority int) Option {
	return func(s *Service) {
		s.openLabel = label
		if maxPriority > 0 {
			s.openMaxPriority = maxPriority
		}
	}
}

// WithCompletedMaxPriority bounds the priorities of completed items fetched.
func WithCompletedMaxPriority(maxPriority int) Option {
	return func(s *Service) {
		if maxPriority > 0 {
			s.completedMaxPriority = maxPriority
		}
	}
}

// WithStaleDays sets how many days an open item may go without an update
// before it is listed as stale.
func WithStaleDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.staleDays = days
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the timezone used to derive "today".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// ConfigOptions maps process configuration onto service options.
func ConfigOptions(cfg *config.Config) []Option {
	calc := credit.New(
		credit.WithLeadPointsPerWeek(cfg.CycleLeadPointsPerWeek),
		credit.WithMemberPointsPerWeek(cfg.CycleMemberPointsPerWeek),
	)
	engine := scoring.New(
		scoring.WithPriorityPoints(cfg.PriorityPoints),
		scoring.WithTeams(cfg.Team),
		scoring.WithExcludeProjectItems(cfg.ExcludeProjectItems),
		scoring.WithCreditCalculator(calc),
	)
	resolver := support.New(
		support.WithInitiative(cfg.CycleInitiative),
		support.WithOnboardingInitiative(cfg.OnboardingInitiative),
		support.WithOverdueGrace(time.Duration(cfg.SupportOverdueGraceDays)*24*time.Hour),
	)
	path := cfg.DirectoryPath
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithUpstreamTimeout(cfg.UpstreamTimeout()),
		WithCacheTTL(cfg.CacheTTL()),
		WithMaxWindowDays(cfg.MaxWindowDays),
		WithScoringEngine(engine),
		WithSupportResolver(resolver),
		WithWorkLabels(cfg.WorkLabels...),
		WithOpenQuery(cfg.OpenLabel, cfg.OpenMaxPriority),
		WithCompletedMaxPriority(cfg.CompletedMaxPriority),
		WithStaleDays(cfg.StaleDays),
		WithLocation(cfg.Location()),
		WithDirectoryLoader(func(context.Context) (*directory.Snapshot, error) {
			return directory.Load(path)
		}),
	}
}

// NewFromConfig builds a Service reading tracker and source-control data from
// the configured snapshot file. opts are applied after the configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) *Service {
	src := snapshot.New(cfg.SnapshotPath)
	all := append(ConfigOptions(cfg), WithTracker(src), WithSourceControl(src))
	return New(append(all, opts...)...)
}
