// Package notify posts the leaderboard and the support roster to a chat
// webhook. Each job is delivered at most once per day.
package notify

import (
	"context"
	"fmt"
	"slices"
	"time"

	service "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/config"
	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/dedupe"
	"github.com/okian/devpulse/internal/domain/scoring"
	"github.com/okian/devpulse/pkg/logger"
	"github.com/okian/devpulse/pkg/metrics"
	"github.com/okian/devpulse/pkg/retry"
)

// Jobs the notifier knows how to deliver.
const (
	JobLeaderboard = "leaderboard"
	JobSupport     = "support"
)

// Jobs lists every job name.
var Jobs = []string{JobLeaderboard, JobSupport}

// Delivery statuses.
const (
	StatusSent      = "sent"
	StatusDuplicate = "duplicate"
)

// Source provides the data the notifier renders.
type Source interface {
	CachedAggregate(ctx context.Context, days int) (*service.Aggregate, bool, error)
	SupportRoster(ctx context.Context, today time.Time) (*service.Roster, error)
	Directory() *directory.Snapshot
	Today() time.Time
}

// Delivery describes one Notify call.
type Delivery struct {
	Job    string `json:"job"`
	Key    string `json:"key"`
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
}

// Notifier renders and delivers jobs.
type Notifier struct {
	source  Source
	poster  Poster
	policy  *retry.Policy
	deduper dedupe.Deduper
	days    int
	legend  string
	appURL  string
	logger  logger.Logger
}

// Option applies a configuration option to the Notifier.
type Option func(*Notifier)

// WithPoster sets the delivery target.
func WithPoster(p Poster) Option {
	return func(n *Notifier) {
		if p != nil {
			n.poster = p
		}
	}
}

// WithWebhookURL posts to url over HTTP.
func WithWebhookURL(url string) Option {
	return func(n *Notifier) {
		n.poster = NewWebhook(url, nil)
	}
}

// WithRetryPolicy sets how deliveries are retried.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(n *Notifier) {
		if p != nil {
			n.policy = p
		}
	}
}

// WithDeduper sets the store of delivered job keys.
func WithDeduper(d dedupe.Deduper) Option {
	return func(n *Notifier) {
		if d != nil {
			n.deduper = d
		}
	}
}

// WithLeaderboardDays sets the window of the posted leaderboard.
func WithLeaderboardDays(days int) Option {
	return func(n *Notifier) {
		if days > 0 {
			n.days = days
		}
	}
}

// WithLegend sets the scoring legend appended to the leaderboard.
func WithLegend(legend string) Option {
	return func(n *Notifier) {
		n.legend = legend
	}
}

// WithAppURL sets the dashboard base URL linked from the leaderboard.
func WithAppURL(url string) Option {
	return func(n *Notifier) {
		n.appURL = url
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(n *Notifier) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Notifier reading from source.
func New(source Source, opts ...Option) *Notifier {
	n := &Notifier{
		source: source,
		days:   7,
		legend: Legend(scoring.DefaultPriorityPoints(), 30, 15),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = logger.Get().Named("notify")
	}
	if n.poster == nil {
		n.poster = NewWebhook("", nil)
	}
	if n.policy == nil {
		n.policy = retry.New(retry.DefaultMaxAttempts, retry.DefaultDelay, retry.WithLogger(n.logger))
	}
	if n.deduper == nil {
		n.deduper = dedupe.New()
	}
	return n
}

// ConfigOptions maps process configuration onto notifier options.
func ConfigOptions(cfg *config.Config) []Option {
	points := scoring.New(scoring.WithPriorityPoints(cfg.PriorityPoints)).PriorityPoints()
	log := logger.Get().Named("notify")
	return []Option{
		WithWebhookURL(cfg.SlackWebhookURL),
		WithAppURL(cfg.AppURL),
		WithLeaderboardDays(cfg.LeaderboardNotifyDays),
		WithLegend(Legend(points, cfg.CycleLeadPointsPerWeek, cfg.CycleMemberPointsPerWeek)),
		WithDeduper(dedupe.New(dedupe.WithMaxSize(cfg.DedupeSize))),
		WithRetryPolicy(retry.New(cfg.NotifyMaxAttempts, cfg.NotifyRetryDelay(), retry.WithLogger(log))),
		WithLogger(log),
	}
}

// Render builds the message for job without delivering it.
func (n *Notifier) Render(ctx context.Context, job string) (string, error) {
	switch job {
	case JobLeaderboard:
		agg, _, err := n.source.CachedAggregate(ctx, n.days)
		if err != nil {
			return "", fmt.Errorf("leaderboard: %w", err)
		}
		podium := Podium(agg.Leaderboard, n.source.Directory())
		return FormatLeaderboard(podium, n.days, n.legend, n.appURL), nil
	case JobSupport:
		roster, err := n.source.SupportRoster(ctx, n.source.Today())
		if err != nil {
			return "", fmt.Errorf("support roster: %w", err)
		}
		mentions := make([]string, len(roster.People))
		for i, p := range roster.People {
			mentions[i] = p.Mention()
		}
		return FormatSupport(roster.Date, mentions), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
}

// Notify renders and posts job unless it was already delivered today. Each
// attempt of the retry policy renders afresh and posts. A failed delivery is
// forgotten so the job can be triggered again.
func (n *Notifier) Notify(ctx context.Context, job string) (Delivery, error) {
	d := Delivery{Job: job, Key: dedupe.Key(job, n.source.Today())}
	if !slices.Contains(Jobs, job) {
		return d, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}
	log := n.logger.With(logger.String("job", job), logger.String("key", d.Key))

	if n.deduper.SeenAndRecord(ctx, d.Key) {
		d.Status = StatusDuplicate
		metrics.RecordNotification(job, StatusDuplicate)
		log.Info(ctx, "notification already delivered, skipping")
		return d, nil
	}

	// Fetching the data and posting are retried together: a transient
	// upstream failure is as recoverable as a webhook hiccup.
	err := n.policy.Do(ctx, "notify:"+job, func(ctx context.Context) error {
		metrics.RecordNotificationAttempt(job)
		text, err := n.Render(ctx, job)
		if err != nil {
			return err
		}
		d.Text = text
		return n.poster.Post(ctx, text)
	})
	if err != nil {
		n.deduper.Unrecord(ctx, d.Key)
		metrics.RecordNotification(job, metrics.OutcomeError)
		log.Error(ctx, "notification failed", logger.Error(err))
		return d, err
	}

	d.Status = StatusSent
	metrics.RecordNotification(job, metrics.OutcomeOK)
	log.Info(ctx, "notification delivered")
	return d, nil
}
