// Package identity resolves the many names a person goes by across the
// tracker, source control, and chat into one canonical directory slug.
package identity

import (
	"strings"
	"unicode"

	"github.com/okian/devpulse/internal/directory"
)

// ExternalPrefix marks identities that did not resolve to a directory person.
const ExternalPrefix = "external:"

// Normalize lower-cases raw and drops every rune that is not a letter or digit,
// so "Jane.Doe", "jane-doe" and "<@JANEDOE>" collapse to "janedoe".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Identity is the outcome of resolving a set of candidate strings.
type Identity struct {
	// Key is the slug, or ExternalPrefix plus the normalized candidate.
	Key      string
	Slug     string
	External bool
	// Display is the least-processed candidate that produced the key.
	Display string
}

// Index maps normalized aliases to slugs. It is immutable after Build.
type Index struct {
	aliases    map[string]string
	firstNames map[string]string
	people     map[string]directory.Person
}

// Build indexes people in slug order. Each person contributes, in order,
// its slug, tracker username, source-control login, chat id (raw and as a
// mention), and the display alias derived from its username. The first
// registration of an alias wins.
func Build(people []directory.Person) *Index {
	idx := &Index{
		aliases:    make(map[string]string, len(people)*6),
		firstNames: make(map[string]string, len(people)),
		people:     make(map[string]directory.Person, len(people)),
	}
	for _, p := range people {
		if p.Slug == "" {
			continue
		}
		if _, dup := idx.people[p.Slug]; dup {
			continue
		}
		idx.people[p.Slug] = p

		candidates := []string{p.Slug, p.Username(), p.SourceLogin}
		if p.ChatID != "" {
			candidates = append(candidates, p.ChatID, "<@"+p.ChatID+">")
		}
		display := p.DisplayAlias()
		candidates = append(candidates, display)
		if p.Name != "" {
			candidates = append(candidates, p.Name)
		}
		for _, c := range candidates {
			idx.register(c, p.Slug)
		}

		for _, name := range []string{display, p.Name} {
			if first := firstToken(name); first != "" {
				key := Normalize(first)
				if _, taken := idx.firstNames[key]; !taken && key != "" {
					idx.firstNames[key] = p.Slug
				}
			}
		}
	}
	return idx
}

// FromSnapshot builds an index over a directory snapshot.
func FromSnapshot(s *directory.Snapshot) *Index {
	return Build(s.People())
}

func (idx *Index) register(alias, slug string) {
	key := Normalize(alias)
	if key == "" {
		return
	}
	if _, taken := idx.aliases[key]; taken {
		return
	}
	idx.aliases[key] = slug
}

// Resolve tries candidates in order and returns the first that maps to a slug.
func (idx *Index) Resolve(candidates ...string) (string, bool) {
	for _, c := range candidates {
		key := Normalize(c)
		if key == "" {
			continue
		}
		if slug, ok := idx.aliases[key]; ok {
			return slug, true
		}
	}
	return "", false
}

// ResolveName resolves a tracker display name: first the full name, then its
// first token against the first-name index.
func (idx *Index) ResolveName(displayName string) (string, bool) {
	if slug, ok := idx.Resolve(displayName); ok {
		return slug, true
	}
	first := Normalize(firstToken(displayName))
	if first == "" {
		return "", false
	}
	if slug, ok := idx.aliases[first]; ok {
		return slug, true
	}
	slug, ok := idx.firstNames[first]
	return slug, ok
}

// Key resolves candidates to a canonical identity. Unresolved candidates
// yield an external key built from the first non-empty candidate.
func (idx *Index) Key(candidates ...string) Identity {
	if slug, ok := idx.Resolve(candidates...); ok {
		display := slug
		if p, found := idx.people[slug]; found {
			display = p.DisplayName()
		}
		return Identity{Key: slug, Slug: slug, Display: display}
	}
	for _, c := range candidates {
		norm := Normalize(c)
		if norm == "" {
			continue
		}
		return Identity{
			Key:      ExternalPrefix + norm,
			External: true,
			Display:  strings.TrimSpace(c),
		}
	}
	return Identity{}
}

// KeyName is Key for tracker display names, falling back to the first-name index.
func (idx *Index) KeyName(displayName string) Identity {
	if slug, ok := idx.ResolveName(displayName); ok {
		return idx.Key(slug)
	}
	return idx.Key(displayName)
}

// Person returns the directory entry for slug.
func (idx *Index) Person(slug string) (directory.Person, bool) {
	p, ok := idx.people[slug]
	return p, ok
}

// Len returns the number of indexed aliases.
func (idx *Index) Len() int { return len(idx.aliases) }

func firstToken(name string) string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '.' || r == '_' || r == '-'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
