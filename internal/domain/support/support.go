// Package support decides who is free to take support duty on a given day:
// everyone support-eligible who is not tied up in an active cycle project
// or in onboarding work.
package support

import (
	"sort"
	"time"

	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/identity"
	"github.com/okian/devpulse/internal/domain/model"
)

// Default initiative names.
const (
	DefaultInitiative           = "Cycle"
	DefaultOnboardingInitiative = "Onboarding Churches"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithInitiative names the initiative whose projects occupy people. With an
// empty name no project counts as a cycle project, so nobody is occupied by
// project work.
func WithInitiative(name string) Option {
	return func(r *Resolver) {
		r.initiative = name
	}
}

// WithOnboardingInitiative names the initiative whose open work occupies
// its assignees. An empty name disables the onboarding rule.
func WithOnboardingInitiative(name string) Option {
	return func(r *Resolver) {
		r.onboarding = name
	}
}

// WithOverdueGrace frees people from projects whose target passed more than
// grace ago. Zero keeps overdue projects occupying people indefinitely.
func WithOverdueGrace(grace time.Duration) Option {
	return func(r *Resolver) {
		if grace >= 0 {
			r.overdueGrace = grace
		}
	}
}

// Resolver computes the support roster.
type Resolver struct {
	initiative   string
	onboarding   string
	overdueGrace time.Duration
}

// New creates a Resolver with the default initiatives.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		initiative: DefaultInitiative,
		onboarding: DefaultOnboardingInitiative,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Active reports whether p occupies its people on today. Terminal projects
// and projects without a parseable start on or before today are inactive;
// a missing or unparseable target leaves the project running, and so does a
// passed target unless the overdue grace has elapsed.
func (r *Resolver) Active(p model.Project, today time.Time) bool {
	if p.Terminal() {
		return false
	}
	if r.initiative == "" || !p.InInitiative(r.initiative) {
		return false
	}
	day := model.Day(today)
	start, ok := model.ParseDate(p.StartDate)
	if !ok || start.After(day) {
		return false
	}
	target, ok := model.ParseDate(p.TargetDate)
	if !ok || !target.Before(day) {
		return true
	}
	if r.overdueGrace > 0 && day.Sub(target) > r.overdueGrace {
		return false
	}
	return true
}

// OnboardingProjects returns the names of projects in the onboarding initiative.
func (r *Resolver) OnboardingProjects(projects []model.Project) []string {
	if r.onboarding == "" {
		return nil
	}
	var names []string
	for _, p := range projects {
		if p.Name != "" && p.InInitiative(r.onboarding) {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Occupied returns the slugs of people tied up on today, either as lead or
// member of an active project or as a listed participant assigned open work
// in an onboarding project.
func (r *Resolver) Occupied(idx *identity.Index, projects []model.Project, onboardingItems []model.WorkItem, today time.Time) map[string]struct{} {
	busy := map[string]struct{}{}
	mark := func(name string) {
		if slug, ok := idx.ResolveName(name); ok {
			busy[slug] = struct{}{}
		}
	}

	participants := map[string]map[string]struct{}{}
	for _, p := range projects {
		if r.Active(p, today) {
			mark(p.Lead)
			for _, m := range p.Members {
				mark(m)
			}
		}
		if r.onboarding != "" && p.InInitiative(r.onboarding) {
			set := map[string]struct{}{}
			for _, name := range append([]string{p.Lead}, p.Members...) {
				if slug, ok := idx.ResolveName(name); ok {
					set[slug] = struct{}{}
				}
			}
			participants[p.Name] = set
		}
	}

	for _, item := range onboardingItems {
		set, ok := participants[item.Project]
		if !ok {
			continue
		}
		slug, ok := idx.Resolve(item.Assignee)
		if !ok {
			slug, ok = idx.ResolveName(item.Assignee)
		}
		if !ok {
			continue
		}
		if _, listed := set[slug]; listed {
			busy[slug] = struct{}{}
		}
	}
	return busy
}

// Roster returns the sorted slugs of support-eligible people who are not
// occupied on today.
func (r *Resolver) Roster(people []directory.Person, idx *identity.Index, projects []model.Project, onboardingItems []model.WorkItem, today time.Time) []string {
	busy := r.Occupied(idx, projects, onboardingItems, today)
	roster := make([]string, 0, len(people))
	for _, p := range people {
		if !p.SupportEligible {
			continue
		}
		if _, occupied := busy[p.Slug]; occupied {
			continue
		}
		roster = append(roster, p.Slug)
	}
	sort.Strings(roster)
	return roster
}
