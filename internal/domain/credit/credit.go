// Package credit awards recurring per-week points to the lead and members of
// completed projects whose active period overlaps the scoring window.
package credit

import (
	"time"

	"github.com/okian/devpulse/internal/domain/identity"
	"github.com/okian/devpulse/internal/domain/model"
)

// Default weekly points.
const (
	DefaultLeadPointsPerWeek   = 30
	DefaultMemberPointsPerWeek = 15
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithLeadPointsPerWeek sets the weekly points awarded to a project lead.
func WithLeadPointsPerWeek(points int) Option {
	return func(c *Calculator) {
		if points >= 0 {
			c.leadPoints = points
		}
	}
}

// WithMemberPointsPerWeek sets the weekly points awarded to each member.
func WithMemberPointsPerWeek(points int) Option {
	return func(c *Calculator) {
		if points >= 0 {
			c.memberPoints = points
		}
	}
}

// Calculator splits the window into week segments and credits overlap.
type Calculator struct {
	leadPoints   int
	memberPoints int
}

// New creates a Calculator with the default weekly points.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		leadPoints:   DefaultLeadPointsPerWeek,
		memberPoints: DefaultMemberPointsPerWeek,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LeadPointsPerWeek returns the configured lead rate.
func (c *Calculator) LeadPointsPerWeek() int { return c.leadPoints }

// MemberPointsPerWeek returns the configured member rate.
func (c *Calculator) MemberPointsPerWeek() int { return c.memberPoints }

// CycleCredits returns points keyed by the raw lead and member names found on
// the projects.
func (c *Calculator) CycleCredits(projects []model.Project, windowDays int, now time.Time) (lead, member map[string]int) {
	leadWeeks, memberWeeks := Weeks(projects, windowDays, now)
	lead = make(map[string]int, len(leadWeeks))
	for name, w := range leadWeeks {
		lead[name] = w * c.leadPoints
	}
	member = make(map[string]int, len(memberWeeks))
	for name, w := range memberWeeks {
		member[name] = w * c.memberPoints
	}
	return lead, member
}

// Segment is a half-open interval [Start, End).
type Segment struct {
	Start time.Time
	End   time.Time
}

// Segments cuts [now-windowDays, now] into seven-day pieces walking backward
// from now; the earliest piece may be shorter. Segments are returned newest first.
func Segments(windowDays int, now time.Time) []Segment {
	if windowDays <= 0 {
		return nil
	}
	start := now.Add(-time.Duration(windowDays) * day)
	segs := make([]Segment, 0, windowDays/7+1)
	for end := now; end.After(start); {
		segStart := end.Add(-week)
		if segStart.Before(start) {
			segStart = start
		}
		segs = append(segs, Segment{Start: segStart, End: end})
		end = segStart
	}
	return segs
}

// ActiveWindow returns the period during which a project counted as active:
// from its start date (clamped to the target, defaulting to it) until the
// day after its target, capped at now. ok is false when the target date is
// missing or unparseable.
func ActiveWindow(p model.Project, now time.Time) (Segment, bool) {
	target, ok := model.ParseDate(p.TargetDate)
	if !ok {
		return Segment{}, false
	}
	end := target.Add(day)
	if end.After(now) {
		end = now
	}
	start, ok := model.ParseDate(p.StartDate)
	if !ok || start.After(target) {
		start = target
	}
	return Segment{Start: start, End: end}, true
}

// Weeks counts, per raw lead and member name, the week segments of the
// window that strictly overlap the active period of a completed project.
// Members equal to the lead are credited only as lead, and a member listed
// more than once on a project (after normalization) is credited once.
func Weeks(projects []model.Project, windowDays int, now time.Time) (lead, member map[string]int) {
	lead = map[string]int{}
	member = map[string]int{}
	if windowDays <= 0 {
		return lead, member
	}
	segs := Segments(windowDays, now)
	windowStart := now.Add(-time.Duration(windowDays) * day)

	for _, p := range projects {
		if p.Status != model.ProjectCompleted || p.Lead == "" {
			continue
		}
		active, ok := ActiveWindow(p, now)
		if !ok {
			continue
		}
		if active.Start.Before(windowStart) {
			active.Start = windowStart
		}
		if !active.Start.Before(active.End) {
			continue
		}

		weeks := 0
		for _, s := range segs {
			if overlaps(s, active) {
				weeks++
			}
		}
		if weeks == 0 {
			continue
		}

		lead[p.Lead] += weeks
		seen := map[string]struct{}{identity.Normalize(p.Lead): {}}
		for _, m := range p.Members {
			key := identity.Normalize(m)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			member[m] += weeks
		}
	}
	return lead, member
}

// overlaps is strict: segments that only touch do not overlap.
func overlaps(a, b Segment) bool {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	return start.Before(end)
}
