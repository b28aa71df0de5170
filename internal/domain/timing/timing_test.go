package timing_test

import (
	"strings"
	"testing"
	"time"

	"github.com/okian/devpulse/internal/domain/model"
	"github.com/okian/devpulse/internal/domain/timing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSummarize(t *testing.T) {
	Convey("Given completed items", t, func() {
		items := []model.WorkItem{
			{CreatedAt: "2024-06-01T00:00:00Z", StartedAt: "2024-06-02T00:00:00Z", CompletedAt: "2024-06-05T00:00:00Z"},
			{CreatedAt: "2024-06-01T00:00:00Z", StartedAt: "2024-06-04T00:00:00Z", CompletedAt: "2024-06-11T00:00:00Z"},
			{CreatedAt: "2024-06-01T00:00:00Z", StartedAt: "garbage", CompletedAt: "2024-06-02T12:00:00Z"},
		}

		Convey("When summarizing", func() {
			s := timing.Summarize(items)

			Convey("Then lead time uses every item with both ends", func() {
				So(s.Lead.Samples, ShouldEqual, 3)
				So(s.Lead.Avg, ShouldEqual, 5) // (4 + 10 + 1) / 3
				So(s.Lead.P95, ShouldEqual, 10)
			})

			Convey("Then queue and work time skip the unparseable start", func() {
				So(s.Queue.Samples, ShouldEqual, 2)
				So(s.Queue.Avg, ShouldEqual, 2)
				So(s.Work.Samples, ShouldEqual, 2)
				So(s.Work.Avg, ShouldEqual, 5)
				So(s.Work.P95, ShouldEqual, 7)
			})
		})
	})

	Convey("Given no items", t, func() {
		Convey("Then every stat is zero", func() {
			So(timing.Summarize(nil), ShouldResemble, timing.Summary{})
		})
	})
}

func TestByPlatform(t *testing.T) {
	Convey("Given open items tagged with platforms", t, func() {
		items := []model.WorkItem{{Platform: "ios"}, {Platform: "ios"}, {Platform: "web"}, {}}

		Convey("Then they are counted per platform", func() {
			So(timing.ByPlatform(items), ShouldResemble, map[string]int{"ios": 2, "web": 1})
		})
	})
}

func TestByProject(t *testing.T) {
	Convey("Given open items with and without a project", t, func() {
		items := []model.WorkItem{{Project: "Checkout"}, {Project: "Checkout"}, {}}

		Convey("Then loose items fall under No Project", func() {
			So(timing.ByProject(items), ShouldResemble, map[string]int{"Checkout": 2, timing.NoProject: 1})
		})
	})
}

func TestStaleByAssignee(t *testing.T) {
	Convey("Given open items last updated at different times", t, func() {
		now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
		ago := func(d int) string { return now.AddDate(0, 0, -d).Format("2006-01-02T15:04:05.000Z") }
		items := []model.WorkItem{
			{ID: "a1", Title: "Old crash", Assignee: "Ana Lima", UpdatedAt: ago(45), Priority: 1},
			{ID: "a2", Title: "Older crash", Assignee: "ana.lima", UpdatedAt: ago(60), Priority: 2},
			{ID: "a3", Title: "Fresh", Assignee: "Ana Lima", UpdatedAt: ago(3)},
			{ID: "b1", Title: "Exactly at the limit", Assignee: "Bo", UpdatedAt: ago(30)},
			{ID: "c1", Title: "Unassigned", UpdatedAt: ago(90)},
			{ID: "d1", Title: "Bad timestamp", Assignee: "Di", UpdatedAt: "last week"},
		}

		Convey("When grouped by raw assignee", func() {
			stale := timing.StaleByAssignee(items, now, 30, nil)

			Convey("Then only items past the limit are listed", func() {
				So(stale, ShouldHaveLength, 2)
				So(stale["Ana Lima"], ShouldHaveLength, 1)
				So(stale["Ana Lima"][0].DaysStale, ShouldEqual, 45)
				So(stale["ana.lima"][0].ID, ShouldEqual, "a2")
				So(stale, ShouldNotContainKey, "Bo")
			})
		})

		Convey("When grouped by a resolved key", func() {
			key := func(raw string) string {
				if strings.HasPrefix(strings.ToLower(raw), "ana") {
					return "ana"
				}
				return ""
			}
			stale := timing.StaleByAssignee(items, now, 30, key)

			Convey("Then aliases merge and the stalest item comes first", func() {
				So(stale, ShouldHaveLength, 1)
				So(stale["ana"], ShouldHaveLength, 2)
				So(stale["ana"][0].ID, ShouldEqual, "a2")
				So(stale["ana"][0].DaysStale, ShouldEqual, 60)
				So(stale["ana"][1].ID, ShouldEqual, "a1")
			})
		})
	})
}
