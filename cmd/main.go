// Command devpulse serves the contribution leaderboard, support roster and
// dashboard over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/devpulse/internal/adapters/http/api"
	"github.com/okian/devpulse/internal/adapters/http/swagger"
	app "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/config"
	"github.com/okian/devpulse/internal/directory"
	"github.com/okian/devpulse/internal/notify"
	"github.com/okian/devpulse/pkg/logger"
	"github.com/okian/devpulse/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "devpulse:", err)
		os.Exit(1)
	}
}

func run() error {
	// pkg/metrics exports its own runtime gauges.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level, using info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.NewFromConfig(cfg, app.WithLogger(log.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	notifier := notify.New(svc, append(notify.ConfigOptions(cfg), notify.WithLogger(log.Named("notify")))...)

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)
	go watchDirectory(ctx, cfg.DirectoryPath, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, notifier),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening",
			logger.String("addr", cfg.Addr),
			logger.Int("people", svc.Directory().Len()),
			logger.String("snapshot", cfg.SnapshotPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	log.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newMux registers the docs and business routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, notifier api.Notifier) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithDefaultDays(cfg.DefaultWindowDays),
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithNotifier(notifier),
	).Register(ctx, mux)
	return mux
}

// watchDirectory swaps the service directory whenever the file changes.
func watchDirectory(ctx context.Context, path string, svc *app.Service) {
	err := directory.Watch(ctx, path, func(snap *directory.Snapshot) {
		metrics.RecordDirectoryReload(true)
		svc.SetDirectory(snap)
	})
	if err != nil {
		logger.Get().Warn(ctx, "directory watch disabled", logger.String("path", path), logger.Error(err))
	}
}

// every calls fn on each tick until ctx ends.
func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func startSystemMetricsUpdater(ctx context.Context) {
	every(ctx, systemMetricsInterval, updateSystemMetrics)
}

func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	every(ctx, serviceMetricsInterval, func() { updateServiceMetrics(svc) })
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avg := time.Duration(m.PauseTotalNs / uint64(m.NumGC))
		metrics.RecordSystemGCPauseTime(float64(avg) / float64(time.Millisecond))
	}
}

// updateServiceMetrics refreshes pool, cache and directory gauges from Stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.Stats()
	gauge := func(key string, set func(int)) {
		switch v := stats[key].(type) {
		case int:
			set(v)
		case int64:
			set(int(v))
		}
	}
	gauge("workers", metrics.UpdateWorkerCount)
	gauge("busy_workers", metrics.UpdateWorkerBusy)
	gauge("queue_size", metrics.UpdateQueueSize)
	gauge("queue_capacity", metrics.UpdateQueueCapacity)
	gauge("cache_entries", metrics.UpdateCacheEntries)
	gauge("directory_people", metrics.UpdateDirectoryPeople)

	size, okSize := stats["queue_size"].(int)
	capacity, okCap := stats["queue_capacity"].(int)
	if okSize && okCap && capacity > 0 {
		metrics.UpdateQueueUtilization(float64(size) / float64(capacity))
	}
}
