package credit_test

import (
	"testing"
	"time"

	"github.com/okian/devpulse/internal/domain/credit"
	"github.com/okian/devpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func TestSegments(t *testing.T) {
	Convey("Given a 30-day window", t, func() {
		segs := credit.Segments(30, now)

		Convey("Then five segments cover the window without gaps", func() {
			So(len(segs), ShouldEqual, 5)
			So(segs[0].End.Equal(now), ShouldBeTrue)
			So(segs[len(segs)-1].Start.Equal(now.AddDate(0, 0, -30)), ShouldBeTrue)
			for i := 1; i < len(segs); i++ {
				So(segs[i].End.Equal(segs[i-1].Start), ShouldBeTrue)
			}
		})

		Convey("Then no segment exceeds seven days and only the earliest is shorter", func() {
			for i, s := range segs {
				d := s.End.Sub(s.Start)
				So(d, ShouldBeLessThanOrEqualTo, 7*24*time.Hour)
				if i < len(segs)-1 {
					So(d, ShouldEqual, 7*24*time.Hour)
				}
			}
			So(segs[4].End.Sub(segs[4].Start), ShouldEqual, 2*24*time.Hour)
		})
	})

	Convey("Given a non-positive window", t, func() {
		Convey("Then there are no segments", func() {
			So(credit.Segments(0, now), ShouldBeEmpty)
			So(credit.Segments(-5, now), ShouldBeEmpty)
		})
	})
}

func TestCycleCredits(t *testing.T) {
	Convey("Given a calculator with default rates", t, func() {
		calc := credit.New()

		Convey("When a completed project spans the whole window", func() {
			projects := []model.Project{{
				Name:       "Checkout rewrite",
				Status:     model.ProjectCompleted,
				Lead:       "Jane Doe",
				Members:    []string{"Mark Smith", "jane doe", "Ana Lima"},
				StartDate:  "2024-05-01",
				TargetDate: "2024-06-29",
			}}
			lead, member := calc.CycleCredits(projects, 30, now)

			Convey("Then every segment is credited", func() {
				So(lead["Jane Doe"], ShouldEqual, 5*30)
				So(member["Mark Smith"], ShouldEqual, 5*15)
				So(member["Ana Lima"], ShouldEqual, 5*15)
			})

			Convey("Then the lead is not also credited as a member", func() {
				_, dup := member["jane doe"]
				So(dup, ShouldBeFalse)
			})
		})

		Convey("When a member is listed twice under different spellings", func() {
			projects := []model.Project{{
				Status:     model.ProjectCompleted,
				Lead:       "Jane Doe",
				Members:    []string{"Mark Smith", "mark.smith", "Mark Smith"},
				StartDate:  "2024-05-01",
				TargetDate: "2024-06-29",
			}}
			_, member := calc.CycleCredits(projects, 30, now)

			Convey("Then the member is credited once per week", func() {
				total := 0
				for _, pts := range member {
					total += pts
				}
				So(total, ShouldEqual, 5*15)
				So(member["Mark Smith"], ShouldEqual, 5*15)
			})
		})

		Convey("When a project has a target but no start date", func() {
			projects := []model.Project{{
				Status:     model.ProjectCompleted,
				Lead:       "Jane Doe",
				TargetDate: "2024-06-20",
			}}
			lead, _ := calc.CycleCredits(projects, 30, now)

			Convey("Then its single active day earns one week", func() {
				So(lead["Jane Doe"], ShouldEqual, 30)
			})
		})

		Convey("When the start date is after the target", func() {
			projects := []model.Project{{
				Status:     model.ProjectCompleted,
				Lead:       "Jane Doe",
				StartDate:  "2024-07-15",
				TargetDate: "2024-06-20",
			}}
			lead, _ := calc.CycleCredits(projects, 30, now)

			Convey("Then the start is clamped to the target", func() {
				So(lead["Jane Doe"], ShouldEqual, 30)
			})
		})

		Convey("When a project has no target date", func() {
			projects := []model.Project{
				{Status: model.ProjectCompleted, Lead: "Jane Doe", StartDate: "2024-06-01"},
				{Status: model.ProjectCompleted, Lead: "Mark Smith", StartDate: "2024-06-01", TargetDate: "someday"},
			}
			lead, member := calc.CycleCredits(projects, 30, now)

			Convey("Then it contributes nothing", func() {
				So(lead, ShouldBeEmpty)
				So(member, ShouldBeEmpty)
			})
		})

		Convey("When a project ended before the window", func() {
			projects := []model.Project{{
				Status:     model.ProjectCompleted,
				Lead:       "Jane Doe",
				StartDate:  "2024-04-01",
				TargetDate: "2024-05-20",
			}}
			lead, _ := calc.CycleCredits(projects, 30, now)

			Convey("Then it earns nothing", func() {
				So(lead, ShouldBeEmpty)
			})
		})

		Convey("When a project is not completed or has no lead", func() {
			projects := []model.Project{
				{Status: "In Progress", Lead: "Jane Doe", StartDate: "2024-06-01", TargetDate: "2024-06-29"},
				{Status: model.ProjectCompleted, StartDate: "2024-06-01", TargetDate: "2024-06-29", Members: []string{"Mark Smith"}},
			}
			lead, member := calc.CycleCredits(projects, 30, now)

			Convey("Then it is skipped", func() {
				So(lead, ShouldBeEmpty)
				So(member, ShouldBeEmpty)
			})
		})

		Convey("When the window is not positive", func() {
			projects := []model.Project{{Status: model.ProjectCompleted, Lead: "Jane Doe", TargetDate: "2024-06-20"}}
			lead, member := calc.CycleCredits(projects, 0, now)

			Convey("Then both maps are empty", func() {
				So(lead, ShouldBeEmpty)
				So(member, ShouldBeEmpty)
			})
		})
	})

	Convey("Given custom weekly rates", t, func() {
		calc := credit.New(credit.WithLeadPointsPerWeek(10), credit.WithMemberPointsPerWeek(4))
		projects := []model.Project{{
			Status: model.ProjectCompleted, Lead: "Lead", Members: []string{"Member"},
			StartDate: "2024-06-17", TargetDate: "2024-06-27",
		}}

		Convey("Then credits scale with the rates", func() {
			lead, member := calc.CycleCredits(projects, 30, now)
			So(calc.LeadPointsPerWeek(), ShouldEqual, 10)
			So(lead["Lead"], ShouldEqual, 2*10)
			So(member["Member"], ShouldEqual, 2*4)
		})
	})
}
