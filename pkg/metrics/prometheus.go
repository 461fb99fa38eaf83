// Package metrics provides Prometheus metrics for the BenchBoard service.
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

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Ingestion
	reportsSubmitted prometheus.Counter
	reportsRejected  *prometheus.CounterVec
	lossOvercounted  prometheus.Counter
	liveTeams        prometheus.Gauge

	// Archive
	archiveWrites      prometheus.Counter
	archiveWriteErrors prometheus.Counter
	recordsUnreadable  prometheus.Counter
	archiveReadLatency prometheus.Histogram

	// Staleness cache
	cacheLookups       *prometheus.CounterVec
	cacheInvalidations prometheus.Counter
	cacheEntries       prometheus.Gauge

	// Best-record scans
	scanDuration   prometheus.Histogram
	scanRecords    prometheus.Histogram
	scanBatches    prometheus.Counter
	scanPartial    prometheus.Counter
	scanWorkerBusy prometheus.Gauge

	// Outbound events
	eventsPublished prometheus.Counter
	eventsDropped   prometheus.Counter
	eventQueueSize  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "benchboard",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for all collectors
	auto := promauto.With(m.registry)

	m.reportsSubmitted = m.counter("reports_submitted_total", "Benchmark reports accepted and archived")
	m.reportsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reports_rejected_total", Help: "Benchmark reports rejected before reaching the core",
	}, []string{"reason"})
	m.lossOvercounted = m.counter("loss_overcounted_total", "Reports whose completed+pending exceeded sent")
	m.liveTeams = m.gauge("live_teams", "Teams with live state in memory")

	m.archiveWrites = m.counter("archive_writes_total", "Records appended to team archives")
	m.archiveWriteErrors = m.counter("archive_write_errors_total", "Failed archive appends")
	m.recordsUnreadable = m.counter("archive_records_unreadable_total", "Archive records skipped because they could not be read")
	m.archiveReadLatency = m.histogram("archive_read_latency_milliseconds", "Latency of loading one archive record", m.histogramBuckets)

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "cache_lookups_total", Help: "Staleness cache lookups by outcome",
	}, []string{"outcome"})
	m.cacheInvalidations = m.counter("cache_invalidations_total", "Staleness cache invalidations")
	m.cacheEntries = m.gauge("cache_entries", "Entries held by the staleness cache")

	m.scanDuration = m.histogram("scan_duration_milliseconds", "Wall-clock time of a best-record scan",
		[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000})
	m.scanRecords = m.histogram("scan_records", "Records visited by a best-record scan",
		[]float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000})
	m.scanBatches = m.counter("scan_batches_total", "Batches dispatched to the scan worker pool")
	m.scanPartial = m.counter("scan_partial_total", "Scans that hit their wall-clock budget and returned a partial result")
	m.scanWorkerBusy = m.gauge("scan_workers_busy", "Scan workers currently executing a batch")

	m.eventsPublished = m.counter("events_published_total", "Update events handed to the push collaborator")
	m.eventsDropped = m.counter("events_dropped_total", "Update events dropped because the queue was full or closed")
	m.eventQueueSize = m.gauge("event_queue_size", "Update events waiting in the outbound queue")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total", Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_component_total", Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordReportSubmitted increments the accepted reports counter.
func RecordReportSubmitted() { globalManager.reportsSubmitted.Inc() }

// RecordReportRejected counts a rejected report by reason.
func RecordReportRejected(reason string) { globalManager.reportsRejected.WithLabelValues(reason).Inc() }

// RecordLossOvercounted counts a report whose loss rate was clamped to zero.
func RecordLossOvercounted() { globalManager.lossOvercounted.Inc() }

// UpdateLiveTeams sets the number of teams with live state.
func UpdateLiveTeams(n int) { globalManager.liveTeams.Set(float64(n)) }

// RecordArchiveWrite increments the archive append counter.
func RecordArchiveWrite() { globalManager.archiveWrites.Inc() }

// RecordArchiveWriteError increments the failed append counter.
func RecordArchiveWriteError() { globalManager.archiveWriteErrors.Inc() }

// RecordRecordUnreadable counts a skipped archive record.
func RecordRecordUnreadable() { globalManager.recordsUnreadable.Inc() }

// RecordArchiveReadLatency observes the latency of one record load.
func RecordArchiveReadLatency(ms float64) { globalManager.archiveReadLatency.Observe(ms) }

// RecordCacheLookup counts a staleness cache lookup by outcome.
func RecordCacheLookup(outcome string) { globalManager.cacheLookups.WithLabelValues(outcome).Inc() }

// RecordCacheInvalidation counts an invalidation.
func RecordCacheInvalidation() { globalManager.cacheInvalidations.Inc() }

// UpdateCacheEntries sets the number of cache entries.
func UpdateCacheEntries(n int) { globalManager.cacheEntries.Set(float64(n)) }

// RecordScan observes one completed scan.
func RecordScan(durationMs float64, records int) {
	globalManager.scanDuration.Observe(durationMs)
	globalManager.scanRecords.Observe(float64(records))
}

// RecordScanBatch counts a batch handed to the scan pool.
func RecordScanBatch() { globalManager.scanBatches.Inc() }

// RecordScanPartial counts a scan cut short by its deadline.
func RecordScanPartial() { globalManager.scanPartial.Inc() }

// AddScanWorkersBusy adjusts the busy scan worker gauge.
func AddScanWorkersBusy(delta int) { globalManager.scanWorkerBusy.Add(float64(delta)) }

// RecordEventPublished counts an outbound update event.
func RecordEventPublished() { globalManager.eventsPublished.Inc() }

// RecordEventDropped counts a dropped update event.
func RecordEventDropped() { globalManager.eventsDropped.Inc() }

// UpdateEventQueueSize sets the outbound queue depth.
func UpdateEventQueueSize(n int) { globalManager.eventQueueSize.Set(float64(n)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// RefreshInterval returns how often gauges should be refreshed by callers.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
