// Package snapshot serves tracker and source-control data from a YAML file
// exported from the real services. The file is re-read on every call so an
// exporter can refresh it while the server runs.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/devpulse/internal/domain/model"
)

// ErrLoadSnapshot wraps read and decode failures.
var ErrLoadSnapshot = errors.New("load snapshot failed")

const day = 24 * time.Hour

// document is the on-disk layout.
type document struct {
	WorkItems    []model.WorkItem    `koanf:"work_items"`
	Projects     []model.Project     `koanf:"projects"`
	PullRequests []model.PullRequest `koanf:"pull_requests"`
}

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithClock overrides the time source used for day windows.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// Source implements the tracker and source-control contracts over a file.
type Source struct {
	path string
	now  func() time.Time
}

// New creates a Source reading path.
func New(path string, opts ...Option) *Source {
	s := &Source{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) load(ctx context.Context) (*document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := koanf.New("::")
	if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadSnapshot, s.path, err)
	}
	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadSnapshot, s.path, err)
	}
	return &doc, nil
}

func open(w model.WorkItem) bool {
	if w.CompletedAt != "" {
		return false
	}
	switch strings.ToLower(w.State) {
	case "completed", "done", "canceled", "cancelled":
		return false
	}
	return true
}

func matches(w model.WorkItem, maxPriority int, label string) bool {
	if w.Priority < 1 || (maxPriority > 0 && w.Priority > maxPriority) {
		return false
	}
	return label == "" || w.HasLabel(label)
}

func (s *Source) since(days int) time.Time {
	return s.now().Add(-time.Duration(days) * day)
}

func within(raw string, from, to time.Time) bool {
	ts, ok := model.ParseTime(raw)
	return ok && !ts.Before(from) && !ts.After(to)
}

// OpenWorkItems returns open items carrying label with priority 1..maxPriority.
func (s *Source) OpenWorkItems(ctx context.Context, maxPriority int, label string) ([]model.WorkItem, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.WorkItem
	for _, w := range doc.WorkItems {
		if open(w) && matches(w, maxPriority, label) {
			out = append(out, w)
		}
	}
	return out, nil
}

// CompletedWorkItems returns items carrying label completed in the last days.
func (s *Source) CompletedWorkItems(ctx context.Context, maxPriority int, label string, days int) ([]model.WorkItem, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	from := s.since(days)
	var out []model.WorkItem
	for _, w := range doc.WorkItems {
		if matches(w, maxPriority, label) && within(w.CompletedAt, from, now) {
			out = append(out, w)
		}
	}
	return out, nil
}

// CreatedWorkItems returns items carrying label created in the last days.
func (s *Source) CreatedWorkItems(ctx context.Context, maxPriority int, label string, days int) ([]model.WorkItem, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	from := s.since(days)
	var out []model.WorkItem
	for _, w := range doc.WorkItems {
		if matches(w, maxPriority, label) && within(w.CreatedAt, from, now) {
			out = append(out, w)
		}
	}
	return out, nil
}

// Projects returns every project.
func (s *Source) Projects(ctx context.Context) ([]model.Project, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Projects, nil
}

// OpenWorkItemsInProjects returns open items attached to one of names.
func (s *Source) OpenWorkItemsInProjects(ctx context.Context, names []string) ([]model.WorkItem, error) {
	if len(names) == 0 {
		return nil, nil
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	var out []model.WorkItem
	for _, w := range doc.WorkItems {
		if _, ok := wanted[w.Project]; ok && open(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *Source) merged(ctx context.Context, days int) ([]model.PullRequest, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	from := s.since(days)
	var out []model.PullRequest
	for _, pr := range doc.PullRequests {
		if within(pr.Timestamp(), from, now) {
			out = append(out, pr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp() > out[j].Timestamp() })
	return out, nil
}

// MergedPullRequestsByAuthor groups pull requests merged in the last days by author.
func (s *Source) MergedPullRequestsByAuthor(ctx context.Context, days int) (map[string][]model.PullRequest, error) {
	prs, err := s.merged(ctx, days)
	if err != nil {
		return nil, err
	}
	out := map[string][]model.PullRequest{}
	for _, pr := range prs {
		if pr.Author == "" {
			continue
		}
		out[pr.Author] = append(out[pr.Author], pr)
	}
	return out, nil
}

// MergedPullRequestsByReviewer groups pull requests merged in the last days
// under every login that approved them.
func (s *Source) MergedPullRequestsByReviewer(ctx context.Context, days int) (map[string][]model.PullRequest, error) {
	prs, err := s.merged(ctx, days)
	if err != nil {
		return nil, err
	}
	out := map[string][]model.PullRequest{}
	for _, pr := range prs {
		seen := map[string]struct{}{}
		for _, r := range pr.Reviews {
			if r.Reviewer == "" || !strings.EqualFold(r.State, model.ReviewApproved) {
				continue
			}
			if _, dup := seen[r.Reviewer]; dup {
				continue
			}
			seen[r.Reviewer] = struct{}{}
			out[r.Reviewer] = append(out[r.Reviewer], pr)
		}
	}
	return out, nil
}
