package model_test

import (
	"testing"
	"time"

	model "github.com/okian/devpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseTime(t *testing.T) {
	Convey("Given tracker timestamps", t, func() {
		Convey("When the value carries milliseconds and a Z suffix", func() {
			ts, ok := model.ParseTime("2024-03-01T10:20:30.123Z")

			Convey("Then it parses as UTC", func() {
				So(ok, ShouldBeTrue)
				So(ts.Equal(time.Date(2024, 3, 1, 10, 20, 30, 123_000_000, time.UTC)), ShouldBeTrue)
			})
		})

		Convey("When the value has an offset", func() {
			ts, ok := model.ParseTime("2024-03-01T12:00:00+02:00")

			Convey("Then it is normalized to UTC", func() {
				So(ok, ShouldBeTrue)
				So(ts.Hour(), ShouldEqual, 10)
				So(ts.Location(), ShouldEqual, time.UTC)
			})
		})

		Convey("When the value is a bare date", func() {
			ts, ok := model.ParseTime("2024-03-01")

			Convey("Then it parses at midnight", func() {
				So(ok, ShouldBeTrue)
				So(ts.Hour(), ShouldEqual, 0)
			})
		})

		Convey("When the value is empty or malformed", func() {
			_, emptyOK := model.ParseTime("")
			_, badOK := model.ParseTime("yesterday")
			_, badDate := model.ParseDate("2024-13-45")

			Convey("Then parsing reports failure", func() {
				So(emptyOK, ShouldBeFalse)
				So(badOK, ShouldBeFalse)
				So(badDate, ShouldBeFalse)
			})
		})
	})
}

func TestPullRequestKey(t *testing.T) {
	Convey("Given pull requests with varying identifiers", t, func() {
		Convey("Then the id is preferred, then the url, then repo and number", func() {
			So(model.PullRequest{ID: "PR_1", URL: "u"}.Key(), ShouldEqual, "PR_1")
			So(model.PullRequest{URL: "https://x/pull/2"}.Key(), ShouldEqual, "https://x/pull/2")
			So(model.PullRequest{Repository: "org/app", Number: 7}.Key(), ShouldEqual, "org/app#7")
		})

		Convey("Then merged time falls back to closed time", func() {
			So(model.PullRequest{ClosedAt: "c"}.Timestamp(), ShouldEqual, "c")
			So(model.PullRequest{MergedAt: "m", ClosedAt: "c"}.Timestamp(), ShouldEqual, "m")
		})
	})
}

func TestProject(t *testing.T) {
	Convey("Given a project", t, func() {
		p := model.Project{Status: model.ProjectIncomplete, Initiatives: []string{"Cycle"}}

		Convey("Then initiative membership and terminal status are reported", func() {
			So(p.InInitiative("Cycle"), ShouldBeTrue)
			So(p.InInitiative("Onboarding"), ShouldBeFalse)
			So(p.Terminal(), ShouldBeTrue)
		})

		Convey("Then labels match case-insensitively", func() {
			w := model.WorkItem{Labels: []string{"bug", "iOS"}}
			So(w.HasLabel("Bug"), ShouldBeTrue)
			So(w.HasLabel("web"), ShouldBeFalse)
		})
	})
}
