package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(3*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics register under the custom namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				manager.cacheRequests.WithLabelValues("hit").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if strings.HasPrefix(f.GetName(), "test_unit_") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When constant labels are configured", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithConstLabels(prometheus.Labels{"team": "mobile"}),
				WithPrometheusRegistry(registry),
			)
			manager.cacheEntries.Set(1)

			Convey("Then every gathered sample carries them", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					for _, metric := range f.GetMetric() {
						found := false
						for _, l := range metric.GetLabel() {
							if l.GetName() == "team" && l.GetValue() == "mobile" {
								found = true
							}
						}
						So(found, ShouldBeTrue)
					}
				}
			})
		})

		Convey("When options receive zero values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithRefreshInterval(0),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "devpulse")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording upstream calls", func() {
			before := testutil.ToFloat64(globalManager.upstreamCalls.WithLabelValues("prs_by_reviewer", OutcomeTimeout))
			RecordUpstreamCall("prs_by_reviewer", OutcomeTimeout, 2000)

			Convey("Then the outcome counter increments", func() {
				after := testutil.ToFloat64(globalManager.upstreamCalls.WithLabelValues("prs_by_reviewer", OutcomeTimeout))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording cache lookups", func() {
			before := testutil.ToFloat64(globalManager.cacheRequests.WithLabelValues("hit"))
			RecordCacheRequest("hit")
			RecordCacheRequest("hit")

			Convey("Then hits accumulate", func() {
				So(testutil.ToFloat64(globalManager.cacheRequests.WithLabelValues("hit"))-before, ShouldEqual, 2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateLeaderboardEntries(12)
			UpdateSupportRosterSize(3)
			UpdateDirectoryPeople(40)
			UpdateCacheEntries(2)

			Convey("Then the latest value wins", func() {
				So(testutil.ToFloat64(globalManager.leaderboardEntries), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.supportRosterSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.directoryPeople), ShouldEqual, 40)
				So(testutil.ToFloat64(globalManager.cacheEntries), ShouldEqual, 2)
			})
		})

		Convey("When recording aggregation runs", func() {
			before := testutil.ToFloat64(globalManager.aggregationRuns.WithLabelValues("degraded"))
			RecordAggregation(120, true)

			Convey("Then degraded runs are counted separately", func() {
				So(testutil.ToFloat64(globalManager.aggregationRuns.WithLabelValues("degraded"))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					UpdateWorkerCount(8)
					UpdateWorkerBusy(2)
					UpdateQueueSize(4)
					UpdateQueueCapacity(64)
					UpdateQueueUtilization(0.0625)
					RecordDirectoryReload(true)
					RecordDirectoryReload(false)
					RecordNotification("leaderboard", OutcomeOK)
					RecordNotificationAttempt("leaderboard")
					RecordHTTPRequest("leaderboard", "GET", "200")
					RecordHTTPRequestDuration("leaderboard", "GET", "200", 4)
					RecordErrorByComponent("collector", "timeout")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
					RecordSystemGCPauseTime(0.3)
				}, ShouldNotPanic)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.upstreamCalls.WithLabelValues("projects", OutcomeOK))
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				RecordUpstreamCall("projects", OutcomeOK, 1)
			}()
		}
		wg.Wait()

		Convey("Then every increment is observed", func() {
			after := testutil.ToFloat64(globalManager.upstreamCalls.WithLabelValues("projects", OutcomeOK))
			So(after-before, ShouldEqual, 50)
		})
	})

	Convey("Given the exported registry", t, func() {
		Convey("Then it is the custom one", func() {
			So(GetRegistry(), ShouldPointTo, customRegistry)
		})
	})
}
