package identity_test

import (
	"testing"

	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/domain/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func people() []directory.Person {
	return []directory.Person{
		{Slug: "jdoe", TrackerUsername: "jane.doe", SourceLogin: "JaneDoeGH", ChatID: "U42", Team: "apollos_engineering"},
		{Slug: "msmith", TrackerUsername: "mark_smith", SourceLogin: "marks"},
		// "jane" collides with jdoe's first name; jdoe registers first.
		{Slug: "zjane", TrackerUsername: "jane"},
	}
}

func TestNormalize(t *testing.T) {
	Convey("Given raw identity strings", t, func() {
		Convey("Then case and punctuation are dropped", func() {
			So(identity.Normalize("Jane.Doe"), ShouldEqual, "janedoe")
			So(identity.Normalize("jane-doe"), ShouldEqual, "janedoe")
			So(identity.Normalize("<@U42>"), ShouldEqual, "u42")
			So(identity.Normalize("  "), ShouldEqual, "")
		})
	})
}

func TestIndexResolve(t *testing.T) {
	Convey("Given an index built from the directory", t, func() {
		idx := identity.Build(people())

		Convey("When resolving each alias kind", func() {
			Convey("Then every alias maps to the same slug", func() {
				for _, alias := range []string{"jdoe", "jane.doe", "JaneDoeGH", "U42", "<@U42>", "Jane Doe"} {
					slug, ok := idx.Resolve(alias)
					So(ok, ShouldBeTrue)
					So(slug, ShouldEqual, "jdoe")
				}
			})

			Convey("Then case and punctuation variants resolve identically", func() {
				for _, alias := range []string{"JANE.DOE", "jane_doe", "Jane-Doe", "janedoe"} {
					slug, ok := idx.Resolve(alias)
					So(ok, ShouldBeTrue)
					So(slug, ShouldEqual, "jdoe")
				}
			})
		})

		Convey("When several candidates are offered", func() {
			slug, ok := idx.Resolve("", "nobody", "marks")

			Convey("Then the first resolvable one wins", func() {
				So(ok, ShouldBeTrue)
				So(slug, ShouldEqual, "msmith")
			})
		})

		Convey("When nothing matches", func() {
			_, ok := idx.Resolve("ghost")

			Convey("Then resolution fails", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestIndexResolveName(t *testing.T) {
	Convey("Given tracker display names", t, func() {
		idx := identity.Build(people())

		Convey("When a full display name matches", func() {
			slug, ok := idx.ResolveName("Mark Smith")

			Convey("Then it resolves directly", func() {
				So(ok, ShouldBeTrue)
				So(slug, ShouldEqual, "msmith")
			})
		})

		Convey("When only the first name matches", func() {
			slug, ok := idx.ResolveName("Mark Twain")

			Convey("Then the first-name index is used", func() {
				So(ok, ShouldBeTrue)
				So(slug, ShouldEqual, "msmith")
			})
		})

		Convey("When a first name is also someone's username", func() {
			slug, ok := idx.ResolveName("Jane Somebody")

			Convey("Then the primary alias takes precedence", func() {
				So(ok, ShouldBeTrue)
				So(slug, ShouldEqual, "zjane")
			})
		})

		Convey("When the name is unknown", func() {
			_, ok := idx.ResolveName("Unknown Person")

			Convey("Then it does not resolve", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestIndexKey(t *testing.T) {
	Convey("Given an index", t, func() {
		idx := identity.Build(people())

		Convey("When candidates resolve", func() {
			id := idx.Key("JaneDoeGH")

			Convey("Then the slug is the key", func() {
				So(id.Key, ShouldEqual, "jdoe")
				So(id.Slug, ShouldEqual, "jdoe")
				So(id.External, ShouldBeFalse)
				So(id.Display, ShouldEqual, "Jane Doe")
			})
		})

		Convey("When candidates do not resolve", func() {
			id := idx.Key("", "Outside-Contributor")

			Convey("Then a synthetic external key keeps the raw display", func() {
				So(id.Key, ShouldEqual, "external:outsidecontributor")
				So(id.External, ShouldBeTrue)
				So(id.Slug, ShouldBeEmpty)
				So(id.Display, ShouldEqual, "Outside-Contributor")
			})
		})

		Convey("When every candidate is empty", func() {
			id := idx.Key("", "--")

			Convey("Then the zero identity is returned", func() {
				So(id, ShouldResemble, identity.Identity{})
			})
		})
	})

	Convey("Given a display name known only by its first token", t, func() {
		idx := identity.Build(people())

		Convey("Then KeyName resolves it and Key does not", func() {
			So(idx.KeyName("Mark Twain").Key, ShouldEqual, "msmith")
			So(idx.Key("Mark Twain").Key, ShouldEqual, "external:marktwain")
		})
	})

	Convey("Given two people claiming the same alias", t, func() {
		idx := identity.Build([]directory.Person{
			{Slug: "alpha", SourceLogin: "shared"},
			{Slug: "beta", TrackerUsername: "shared"},
		})

		Convey("Then the first registration wins", func() {
			slug, _ := idx.Resolve("shared")
			So(slug, ShouldEqual, "alpha")
		})
	})

	Convey("Given a directory snapshot", t, func() {
		idx := identity.FromSnapshot(directory.NewSnapshot(people(), nil))

		Convey("Then the index exposes person records", func() {
			p, ok := idx.Person("jdoe")
			So(ok, ShouldBeTrue)
			So(p.Team, ShouldEqual, "apollos_engineering")
			So(idx.Len(), ShouldBeGreaterThan, 0)
		})
	})
}
