package directory

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// personRecord is the on-disk shape of a person; the slug is the map key.
type personRecord struct {
	Name            string `koanf:"name"`
	TrackerUsername string `koanf:"tracker_username"`
	SourceLogin     string `koanf:"source_login"`
	ChatID          string `koanf:"chat_id"`
	Team            string `koanf:"team"`
	Support         bool   `koanf:"support"`
}

type platformRecord struct {
	Slug  string `koanf:"slug"`
	Label string `koanf:"label"`
}

type document struct {
	People    map[string]personRecord `koanf:"people"`
	Platforms []platformRecord        `koanf:"platforms"`
}

// Load reads a directory YAML file:
//
//	people:
//	  jane:
//	    name: Jane Doe
//	    tracker_username: jane.doe
//	    source_login: janed
//	    chat_id: U123
//	    team: engineering
//	    support: true
//	platforms:
//	  - slug: ios
//	    label: iOS
func Load(path string) (*Snapshot, error) {
	// "::" keeps slugs containing dots intact as single map keys.
	k := koanf.New("::")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadDirectory, path, err)
	}

	var doc document
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadDirectory, path, err)
	}

	people := make([]Person, 0, len(doc.People))
	for slug, rec := range doc.People {
		if slug == "" {
			return nil, fmt.Errorf("%w: %w: empty slug", ErrLoadDirectory, ErrInvalidPerson)
		}
		people = append(people, Person{
			Slug:            slug,
			Name:            rec.Name,
			TrackerUsername: rec.TrackerUsername,
			SourceLogin:     rec.SourceLogin,
			ChatID:          rec.ChatID,
			Team:            rec.Team,
			SupportEligible: rec.Support,
		})
	}

	platforms := make([]Platform, 0, len(doc.Platforms))
	for _, p := range doc.Platforms {
		platforms = append(platforms, Platform(p))
	}

	snap := NewSnapshot(people, platforms)
	snap.source = path
	return snap, nil
}
