// Package scoring combines work items, pull requests, reviews and project
// credit into per-person contribution totals.
package scoring

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/devpulse/internal/domain/credit"
	"github.com/okian/devpulse/internal/domain/identity"
	"github.com/okian/devpulse/internal/domain/model"
)

const day = 24 * time.Hour

// DefaultPriorityPoints are the per-tier points of a completed work item.
func DefaultPriorityPoints() map[string]int {
	return map[string]int{
		model.CategoryUrgent: 20,
		model.CategoryHigh:   10,
		model.CategoryMedium: 5,
		model.CategoryLow:    1,
	}
}

// Tier maps a tracker priority to its category. ok is false outside 1..5.
func Tier(priority int) (string, bool) {
	switch priority {
	case 1:
		return model.CategoryUrgent, true
	case 2:
		return model.CategoryHigh, true
	case 3:
		return model.CategoryMedium, true
	case 4, 5:
		return model.CategoryLow, true
	default:
		return "", false
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPriorityPoints overrides tier points; tiers not named keep their default.
func WithPriorityPoints(points map[string]int) Option {
	return func(e *Engine) {
		for tier, p := range points {
			if _, known := e.priorityPoints[tier]; known && p >= 0 {
				e.priorityPoints[tier] = p
			}
		}
	}
}

// WithTeams keeps only entries whose person belongs to one of teams.
// No teams keeps everyone.
func WithTeams(teams ...string) Option {
	return func(e *Engine) {
		e.teams = nil
		for _, t := range teams {
			if t == "" {
				continue
			}
			if e.teams == nil {
				e.teams = make(map[string]struct{}, len(teams))
			}
			e.teams[t] = struct{}{}
		}
	}
}

// WithExcludeProjectItems drops completed items that belong to a project.
func WithExcludeProjectItems(exclude bool) Option {
	return func(e *Engine) {
		e.excludeProjectItems = exclude
	}
}

// WithCreditCalculator sets the calculator used for project credit.
func WithCreditCalculator(c *credit.Calculator) Option {
	return func(e *Engine) {
		if c != nil {
			e.credit = c
		}
	}
}

// PullRequests groups merged pull requests by the login that earned them.
type PullRequests struct {
	ByAuthor   map[string][]model.PullRequest
	ByReviewer map[string][]model.PullRequest
}

// Input is everything needed to score one window.
type Input struct {
	Directory    *identity.Index
	WorkItems    []model.WorkItem
	PullRequests PullRequests
	Projects     []model.Project
	WindowDays   int
	Now          time.Time
}

// Engine scores a window of activity. It is safe for concurrent use.
type Engine struct {
	priorityPoints      map[string]int
	teams               map[string]struct{}
	excludeProjectItems bool
	credit              *credit.Calculator
}

// New creates an Engine with default points and no team filter.
func New(opts ...Option) *Engine {
	e := &Engine{
		priorityPoints: DefaultPriorityPoints(),
		credit:         credit.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PriorityPoints returns a copy of the tier points in effect.
func (e *Engine) PriorityPoints() map[string]int {
	out := make(map[string]int, len(e.priorityPoints))
	for k, v := range e.priorityPoints {
		out[k] = v
	}
	return out
}

type tally struct {
	id        identity.Identity
	breakdown map[string]int
	counts    map[string]int
}

func (t *tally) add(category string, points, count int) {
	if count == 0 {
		return
	}
	t.breakdown[category] += points
	t.counts[category] += count
}

type board struct {
	idx     *identity.Index
	entries map[string]*tally
}

func (b *board) get(id identity.Identity) *tally {
	t, ok := b.entries[id.Key]
	if !ok {
		t = &tally{id: id, breakdown: map[string]int{}, counts: map[string]int{}}
		b.entries[id.Key] = t
	}
	return t
}

// Score computes the leaderboard for in. Records with missing or malformed
// timestamps are skipped. Entries are sorted by score descending, then
// display name and identity ascending.
func (e *Engine) Score(in Input) []model.ScoreEntry {
	idx := in.Directory
	if idx == nil {
		idx = identity.Build(nil)
	}
	b := &board{idx: idx, entries: map[string]*tally{}}

	if in.WindowDays > 0 {
		start := in.Now.Add(-time.Duration(in.WindowDays) * day)
		inWindow := func(raw string) bool {
			ts, ok := model.ParseTime(raw)
			return ok && !ts.Before(start) && !ts.After(in.Now)
		}
		e.scoreWorkItems(b, in.WorkItems, inWindow)
		e.scoreAuthors(b, in.PullRequests.ByAuthor, inWindow)
		e.scoreReviewers(b, in.PullRequests.ByReviewer, inWindow)
		e.scoreCycles(b, in.Projects, in.WindowDays, in.Now)
	}

	return e.rank(b)
}

func (e *Engine) scoreWorkItems(b *board, items []model.WorkItem, inWindow func(string) bool) {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Assignee) == "" {
			continue
		}
		if e.excludeProjectItems && item.Project != "" {
			continue
		}
		tier, ok := Tier(item.Priority)
		if !ok || !inWindow(item.CompletedAt) {
			continue
		}
		if item.ID != "" {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
		}
		id := b.idx.Key(item.Assignee)
		b.get(id).add(tier, e.priorityPoints[tier], 1)
	}
}

func (e *Engine) scoreAuthors(b *board, byAuthor map[string][]model.PullRequest, inWindow func(string) bool) {
	seen := map[string]struct{}{}
	for _, login := range sortedKeys(byAuthor) {
		for _, pr := range byAuthor[login] {
			author := login
			if author == "" {
				author = pr.Author
			}
			id := b.idx.Key(author)
			if id.Key == "" || !inWindow(pr.Timestamp()) {
				continue
			}
			key := id.Key + "|" + pr.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			b.get(id).add(model.CategoryPRs, 1, 1)
		}
	}
}

func (e *Engine) scoreReviewers(b *board, byReviewer map[string][]model.PullRequest, inWindow func(string) bool) {
	seen := map[string]struct{}{}
	for _, login := range sortedKeys(byReviewer) {
		id := b.idx.Key(login)
		if id.Key == "" {
			continue
		}
		for _, pr := range byReviewer[login] {
			if !inWindow(pr.Timestamp()) || !approvedBy(pr, login) {
				continue
			}
			key := id.Key + "|" + pr.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			b.get(id).add(model.CategoryReviews, 1, 1)
		}
	}
}

// approvedBy reports whether login approved pr. A pull request listed under
// a reviewer without any review from that login counts as approved, since
// the source already filtered on approvals.
func approvedBy(pr model.PullRequest, login string) bool {
	want := identity.Normalize(login)
	reviewed := false
	for _, r := range pr.Reviews {
		if identity.Normalize(r.Reviewer) != want {
			continue
		}
		if strings.EqualFold(r.State, model.ReviewApproved) {
			return true
		}
		reviewed = true
	}
	return !reviewed
}

// scoreCycles merges the calculator's cycle points. The count of a cycle
// category is the number of credited weeks, recovered from the weekly rate.
func (e *Engine) scoreCycles(b *board, projects []model.Project, windowDays int, now time.Time) {
	lead, member := e.credit.CycleCredits(projects, windowDays, now)
	e.mergeCycle(b, lead, model.CategoryCycleLead, e.credit.LeadPointsPerWeek())
	e.mergeCycle(b, member, model.CategoryCycleMember, e.credit.MemberPointsPerWeek())
}

func (e *Engine) mergeCycle(b *board, points map[string]int, category string, rate int) {
	if rate <= 0 {
		return
	}
	for _, name := range sortedKeys(points) {
		id := b.idx.KeyName(name)
		if id.Key == "" {
			continue
		}
		b.get(id).add(category, points[name], points[name]/rate)
	}
}

func (e *Engine) rank(b *board) []model.ScoreEntry {
	out := make([]model.ScoreEntry, 0, len(b.entries))
	for _, t := range b.entries {
		entry := model.ScoreEntry{
			Identity:    t.id.Key,
			Slug:        t.id.Slug,
			External:    t.id.External,
			DisplayName: t.id.Display,
			Breakdown:   t.breakdown,
			Counts:      t.counts,
		}
		if p, ok := b.idx.Person(t.id.Slug); ok {
			entry.Team = p.Team
		}
		if e.teams != nil {
			if _, keep := e.teams[entry.Team]; !keep {
				continue
			}
		}
		for _, pts := range t.breakdown {
			entry.Score += pts
		}
		out = append(out, entry)
	}
	Sort(out)
	return out
}

// Sort orders entries by score descending, then display name
// (case-insensitive) and identity ascending.
func Sort(entries []model.ScoreEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		an, bn := strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)
		if an != bn {
			return an < bn
		}
		return a.Identity < b.Identity
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
