// Package directory holds the roster of known people and platform teams.
//
// A Snapshot is immutable once built; callers swap snapshots at reload
// boundaries instead of mutating one in place.
package directory

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Person is a canonical individual known to the directory.
type Person struct {
	Slug            string `json:"slug"`
	Name            string `json:"name,omitempty"`
	TrackerUsername string `json:"tracker_username,omitempty"`
	SourceLogin     string `json:"source_login,omitempty"`
	ChatID          string `json:"chat_id,omitempty"`
	Team            string `json:"team,omitempty"`
	SupportEligible bool   `json:"support_eligible"`
}

// Username returns the tracker username, defaulting to the slug.
func (p Person) Username() string {
	if p.TrackerUsername != "" {
		return p.TrackerUsername
	}
	return p.Slug
}

var separators = regexp.MustCompile(`[._-]+`)

// DisplayAlias derives a human-readable name from the tracker username,
// e.g. "jane.doe" becomes "Jane Doe".
func (p Person) DisplayAlias() string {
	return titleCase(separators.ReplaceAllString(p.Username(), " "))
}

// DisplayName prefers the configured name over the derived alias.
func (p Person) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.DisplayAlias()
}

// Mention formats the person for chat messages.
func (p Person) Mention() string {
	if p.ChatID != "" {
		return "<@" + p.ChatID + ">"
	}
	return p.Slug
}

// titleCase upper-cases the first letter of every run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}

// Platform is a platform team whose labels classify work items.
type Platform struct {
	Slug  string `json:"slug"`
	Label string `json:"label,omitempty"`
}

// Snapshot is an immutable view of the directory.
type Snapshot struct {
	people    []Person
	bySlug    map[string]int
	platforms []Platform
	source    string
}

// NewSnapshot builds a snapshot. People are ordered by slug; later
// duplicates of a slug are dropped.
func NewSnapshot(people []Person, platforms []Platform) *Snapshot {
	sorted := make([]Person, 0, len(people))
	seen := make(map[string]struct{}, len(people))
	for _, p := range people {
		if p.Slug == "" {
			continue
		}
		if _, dup := seen[p.Slug]; dup {
			continue
		}
		seen[p.Slug] = struct{}{}
		sorted = append(sorted, p)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug })

	bySlug := make(map[string]int, len(sorted))
	for i, p := range sorted {
		bySlug[p.Slug] = i
	}

	plats := make([]Platform, 0, len(platforms))
	for _, pl := range platforms {
		if pl.Slug == "" {
			continue
		}
		plats = append(plats, pl)
	}

	return &Snapshot{people: sorted, bySlug: bySlug, platforms: plats}
}

// People returns a copy of the people, sorted by slug.
func (s *Snapshot) People() []Person {
	out := make([]Person, len(s.people))
	copy(out, s.people)
	return out
}

// Person looks up a person by slug.
func (s *Snapshot) Person(slug string) (Person, bool) {
	i, ok := s.bySlug[slug]
	if !ok {
		return Person{}, false
	}
	return s.people[i], true
}

// Platforms returns a copy of the platform teams.
func (s *Snapshot) Platforms() []Platform {
	out := make([]Platform, len(s.platforms))
	copy(out, s.platforms)
	return out
}

// Len returns the number of people.
func (s *Snapshot) Len() int { return len(s.people) }

// Source returns the file the snapshot was loaded from, if any.
func (s *Snapshot) Source() string { return s.source }
