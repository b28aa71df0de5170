package snapshot_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/devpulse/internal/adapters/upstream/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

const fixture = `
work_items:
  - id: W1
    title: Crash on login
    priority: 1
    assignee: ana.lima
    labels: [Bug, iOS]
  - id: W2
    title: Slow feed
    priority: 3
    assignee: bo.chen
    labels: [Bug]
    created_at: "2024-06-20T10:00:00.000Z"
    started_at: "2024-06-21T10:00:00.000Z"
    completed_at: "2024-06-25T10:00:00.000Z"
  - id: W3
    title: Old fix
    priority: 2
    labels: [Bug]
    completed_at: "2024-04-01T10:00:00Z"
  - id: W4
    title: Church setup
    priority: 4
    assignee: nia.khan
    project: Onboard Grace
    labels: [New Feature]
    created_at: "2024-06-28T10:00:00Z"
projects:
  - id: P1
    name: Onboard Grace
    status: In Progress
    lead: Nia Khan
    initiatives: [Onboarding Churches]
pull_requests:
  - id: PR1
    repository: org/app
    author: analima
    merged_at: "2024-06-29T08:00:00Z"
    reviews:
      - {reviewer: bochen, state: APPROVED}
      - {reviewer: bochen, state: APPROVED}
      - {reviewer: cypark, state: CHANGES_REQUESTED}
  - id: PR2
    repository: org/app
    author: bochen
    merged_at: "2024-05-01T08:00:00Z"
`

func source(t *testing.T) *snapshot.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := os.WriteFile(path, []byte(fixture), 0o600); err != nil {
		t.Fatal(err)
	}
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	return snapshot.New(path, snapshot.WithClock(func() time.Time { return now }))
}

func TestSource_Tracker(t *testing.T) {
	Convey("Given a snapshot file", t, func() {
		ctx := context.Background()
		src := source(t)

		Convey("When listing open urgent bugs", func() {
			items, err := src.OpenWorkItems(ctx, 2, "Bug")

			Convey("Then only open items within the priority bound match", func() {
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 1)
				So(items[0].ID, ShouldEqual, "W1")
				So(items[0].Labels, ShouldResemble, []string{"Bug", "iOS"})
			})
		})

		Convey("When listing completed bugs of the last 30 days", func() {
			items, err := src.CompletedWorkItems(ctx, 5, "Bug", 30)

			Convey("Then older completions are left out", func() {
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 1)
				So(items[0].ID, ShouldEqual, "W2")
				So(items[0].StartedAt, ShouldEqual, "2024-06-21T10:00:00.000Z")
			})
		})

		Convey("When listing created items", func() {
			items, err := src.CreatedWorkItems(ctx, 5, "New Feature", 7)

			Convey("Then the creation date is used", func() {
				So(err, ShouldBeNil)
				So(len(items), ShouldEqual, 1)
				So(items[0].ID, ShouldEqual, "W4")
			})
		})

		Convey("When listing projects and onboarding work", func() {
			projects, err := src.Projects(ctx)
			So(err, ShouldBeNil)
			items, err := src.OpenWorkItemsInProjects(ctx, []string{"Onboard Grace"})

			Convey("Then both are returned", func() {
				So(err, ShouldBeNil)
				So(len(projects), ShouldEqual, 1)
				So(projects[0].Initiatives, ShouldResemble, []string{"Onboarding Churches"})
				So(len(items), ShouldEqual, 1)
				So(items[0].Assignee, ShouldEqual, "nia.khan")
			})
		})

		Convey("When no project names are given", func() {
			items, err := src.OpenWorkItemsInProjects(ctx, nil)

			Convey("Then nothing is returned", func() {
				So(err, ShouldBeNil)
				So(items, ShouldBeEmpty)
			})
		})
	})
}

func TestSource_SourceControl(t *testing.T) {
	Convey("Given a snapshot file with pull requests", t, func() {
		ctx := context.Background()
		src := source(t)

		Convey("When grouping by author", func() {
			byAuthor, err := src.MergedPullRequestsByAuthor(ctx, 30)

			Convey("Then only in-window merges are kept", func() {
				So(err, ShouldBeNil)
				So(len(byAuthor), ShouldEqual, 1)
				So(len(byAuthor["analima"]), ShouldEqual, 1)
			})
		})

		Convey("When grouping by reviewer", func() {
			byReviewer, err := src.MergedPullRequestsByReviewer(ctx, 30)

			Convey("Then each approving reviewer lists the PR once", func() {
				So(err, ShouldBeNil)
				So(len(byReviewer["bochen"]), ShouldEqual, 1)
				_, requested := byReviewer["cypark"]
				So(requested, ShouldBeFalse)
			})
		})
	})

	Convey("Given a missing snapshot file", t, func() {
		src := snapshot.New(filepath.Join(t.TempDir(), "absent.yaml"))

		Convey("Then calls fail with a load error", func() {
			_, err := src.Projects(context.Background())
			So(errors.Is(err, snapshot.ErrLoadSnapshot), ShouldBeTrue)
		})
	})
}
