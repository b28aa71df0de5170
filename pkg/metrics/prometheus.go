// Package metrics provides Prometheus metrics for the devpulse aggregation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Outcome labels shared by upstream and notification metrics.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

// Manager manages all Prometheus metrics for the devpulse service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer
	constLabels      prometheus.Labels

	// Aggregation
	aggregationDuration prometheus.Histogram
	aggregationRuns     *prometheus.CounterVec
	leaderboardEntries  prometheus.Gauge
	supportRosterSize   prometheus.Gauge

	// Upstream fan-out
	upstreamCalls        *prometheus.CounterVec
	upstreamCallDuration *prometheus.HistogramVec

	// Worker pool and task queue
	workerCount      prometheus.Gauge
	workerBusy       prometheus.Gauge
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge

	// Result cache
	cacheRequests *prometheus.CounterVec
	cacheEntries  prometheus.Gauge

	// Directory
	directoryPeople  prometheus.Gauge
	directoryReloads *prometheus.CounterVec

	// Notifications
	notifications        *prometheus.CounterVec
	notificationAttempts *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "devpulse",
		subsystem:        "aggregator",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval returns how often gauge snapshots should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.aggregationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "aggregation_duration_milliseconds",
		Help:        "Wall time of a full aggregation run including upstream fan-out",
		Buckets:     m.histogramBuckets,
	})

	m.aggregationRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "aggregation_runs_total",
		Help:        "Aggregation runs by completeness (complete or degraded)",
	}, []string{"result"})

	m.leaderboardEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "leaderboard_entries",
		Help:        "Number of entries in the most recently computed leaderboard",
	})

	m.supportRosterSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "support_roster_size",
		Help:        "Number of people on the support roster at the last resolution",
	})

	m.upstreamCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "upstream_calls_total",
		Help:        "Upstream source calls by source and outcome",
	}, []string{"source", "outcome"})

	m.upstreamCallDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "upstream_call_duration_milliseconds",
		Help:        "Upstream source call latency in milliseconds",
		Buckets:     m.histogramBuckets,
	}, []string{"source"})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "worker_count",
		Help:        "Number of fan-out workers",
	})

	m.workerBusy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "worker_busy",
		Help:        "Number of fan-out workers currently executing a call",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "queue_size",
		Help:        "Current number of queued upstream calls",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "queue_capacity",
		Help:        "Maximum number of queued upstream calls",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "queue_utilization_ratio",
		Help:        "Queue utilization ratio (size / capacity)",
	})

	m.cacheRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "cache_requests_total",
		Help:        "Result cache lookups by result (hit, miss, shared)",
	}, []string{"result"})

	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "cache_entries",
		Help:        "Number of memoized aggregation results",
	})

	m.directoryPeople = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "directory_people",
		Help:        "Number of people in the active directory snapshot",
	})

	m.directoryReloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "directory_reloads_total",
		Help:        "Directory reload attempts by result",
	}, []string{"result"})

	m.notifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "notifications_total",
		Help:        "Chat notifications by job and outcome",
	}, []string{"job", "outcome"})

	m.notificationAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "notification_attempts_total",
		Help:        "Individual delivery attempts including retries",
	}, []string{"job"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "errors_by_component_total",
		Help:        "Errors by component and error type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordAggregation records the duration of an aggregation run and whether
// any upstream source had to fall back to its default.
func RecordAggregation(durationMs float64, degraded bool) {
	globalManager.aggregationDuration.Observe(durationMs)
	result := "complete"
	if degraded {
		result = "degraded"
	}
	globalManager.aggregationRuns.WithLabelValues(result).Inc()
}

// UpdateLeaderboardEntries sets the size of the last leaderboard.
func UpdateLeaderboardEntries(count int) {
	globalManager.leaderboardEntries.Set(float64(count))
}

// UpdateSupportRosterSize sets the size of the last support roster.
func UpdateSupportRosterSize(count int) {
	globalManager.supportRosterSize.Set(float64(count))
}

// RecordUpstreamCall records an upstream call outcome and its latency.
func RecordUpstreamCall(source, outcome string, durationMs float64) {
	globalManager.upstreamCalls.WithLabelValues(source, outcome).Inc()
	globalManager.upstreamCallDuration.WithLabelValues(source).Observe(durationMs)
}

// UpdateWorkerCount sets the number of fan-out workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerBusy sets the number of busy workers.
func UpdateWorkerBusy(count int) {
	globalManager.workerBusy.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordCacheRequest records a cache lookup result: hit, miss, shared or abandoned.
func RecordCacheRequest(result string) {
	globalManager.cacheRequests.WithLabelValues(result).Inc()
}

// UpdateCacheEntries sets the number of cached results.
func UpdateCacheEntries(count int) {
	globalManager.cacheEntries.Set(float64(count))
}

// UpdateDirectoryPeople sets the number of people in the active directory.
func UpdateDirectoryPeople(count int) {
	globalManager.directoryPeople.Set(float64(count))
}

// RecordDirectoryReload records a directory reload attempt.
func RecordDirectoryReload(ok bool) {
	result := OutcomeOK
	if !ok {
		result = OutcomeError
	}
	globalManager.directoryReloads.WithLabelValues(result).Inc()
}

// RecordNotification records the final outcome of a notification job.
func RecordNotification(job, outcome string) {
	globalManager.notifications.WithLabelValues(job, outcome).Inc()
}

// RecordNotificationAttempt records a single delivery attempt.
func RecordNotificationAttempt(job string) {
	globalManager.notificationAttempts.WithLabelValues(job).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry for serving metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
