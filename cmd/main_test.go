package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	app "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/config"
	"github.com/okian/devpulse/internal/notify"
	"github.com/okian/devpulse/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const directoryYAML = `
people:
  ana:
    name: Ana Lima
    tracker_username: ana.lima
    source_login: analima
    support: true
platforms:
  - slug: ios
    label: iOS
`

const snapshotYAML = `
work_items:
  - id: "1"
    title: Crash on launch
    priority: 1
    assignee: ana.lima
    completed_at: "2024-06-28T10:00:00Z"
    labels: [Bug]
`

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.New()
	cfg.DirectoryPath = filepath.Join(dir, "directory.yaml")
	cfg.SnapshotPath = filepath.Join(dir, "snapshot.yaml")
	if err := os.WriteFile(cfg.DirectoryPath, []byte(directoryYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.SnapshotPath, []byte(snapshotYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a service built from configuration", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := testConfig(t)
		svc := app.NewFromConfig(cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		notifier := notify.New(svc, notify.ConfigOptions(cfg)...)
		mux := newMux(ctx, cfg, svc, notifier)
		convey.Reset(func() {
			svc.Stop()
			cancel()
		})

		serve := func(method, target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
			return w
		}

		convey.Convey("Then the directory was loaded on start", func() {
			convey.So(svc.Directory().Len(), convey.ShouldEqual, 1)
		})

		convey.Convey("Then every route family is served", func() {
			convey.So(serve(http.MethodGet, "/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/stats").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/leaderboard?days=7").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/support").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/dashboard").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodPost, "/directory/reload").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then notifications without a webhook are unavailable", func() {
			convey.So(serve(http.MethodPost, "/notify/support").Code, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the metrics updaters run until their context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			svc := app.New()

			convey.Convey("Then they return without panicking", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
				convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When metrics are refreshed directly", func() {
			svc := app.New()

			convey.Convey("Then nothing panics", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the directory file is missing", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then the watcher gives up quietly", func() {
				convey.So(func() {
					watchDirectory(ctx, filepath.Join(t.TempDir(), "missing", "directory.yaml"), app.New())
				}, convey.ShouldNotPanic)
			})
		})
	})
}
