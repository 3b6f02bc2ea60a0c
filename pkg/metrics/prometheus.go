// Package metrics provides Prometheus metrics for the rankset service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ranking operations
	scoreWrites      *prometheus.CounterVec
	lookups          *prometheus.CounterVec
	validationErrors *prometheus.CounterVec
	lookupErrors     *prometheus.CounterVec
	playersTracked   prometheus.Gauge
	opLatency        *prometheus.HistogramVec

	// Command queue and writer
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	commandsApplied    *prometheus.CounterVec
	commandsFailed     *prometheus.CounterVec
	commandLatency     prometheus.Histogram

	// Idempotency
	duplicates prometheus.Counter
	dedupeSize prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Runtime
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

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rankset",
		subsystem:        "ranking",
		histogramBuckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.scoreWrites = auto.NewCounterVec(m.counterOpts("score_writes_total",
		"Accepted score mutations by operation (set, add, remove)"), []string{"op"})
	m.lookups = auto.NewCounterVec(m.counterOpts("lookups_total",
		"Rank lookups by mode (rank, player, both, range)"), []string{"mode"})
	m.validationErrors = auto.NewCounterVec(m.counterOpts("validation_errors_total",
		"Writes rejected before mutation, by offending field"), []string{"field"})
	m.lookupErrors = auto.NewCounterVec(m.counterOpts("lookup_errors_total",
		"Failed lookups by kind (out_of_range, mismatch, not_found)"), []string{"kind"})
	m.playersTracked = auto.NewGauge(m.gaugeOpts("players_tracked",
		"Number of players currently holding a rank"))
	m.opLatency = auto.NewHistogramVec(m.histogramOpts("operation_latency_milliseconds",
		"Latency of ranking operations in milliseconds, lock wait included", m.histogramBuckets), []string{"op"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Commands waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum commands the queue holds"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Commands accepted by the queue"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Commands handed to the writer"))
	m.queueEnqueueErrors = auto.NewCounterVec(m.counterOpts("queue_enqueue_errors_total",
		"Commands refused by the queue, by reason"), []string{"reason"})
	m.commandsApplied = auto.NewCounterVec(m.counterOpts("commands_applied_total",
		"Queued commands applied by the writer, by kind"), []string{"kind"})
	m.commandsFailed = auto.NewCounterVec(m.counterOpts("commands_failed_total",
		"Queued commands the writer rejected, by kind"), []string{"kind"})
	m.commandLatency = auto.NewHistogram(m.histogramOpts("command_latency_milliseconds",
		"Time the writer spent applying one command", m.histogramBuckets))

	m.duplicates = auto.NewCounter(m.counterOpts("duplicate_commands_total",
		"Commands dropped because their request id was already seen"))
	m.dedupeSize = auto.NewGauge(m.gaugeOpts("dedupe_entries", "Request ids held by the dedupe cache"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", prometheus.DefBuckets), []string{"endpoint", "method", "status_code"})
	m.httpErrors = auto.NewCounterVec(m.counterOpts("http_errors_total",
		"HTTP error responses by endpoint, method and error type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordScoreWrite counts an accepted mutation.
func RecordScoreWrite(op string) {
	globalManager.scoreWrites.WithLabelValues(op).Inc()
}

// RecordLookup counts a lookup by mode.
func RecordLookup(mode string) {
	globalManager.lookups.WithLabelValues(mode).Inc()
}

// RecordValidationError counts a rejected write.
func RecordValidationError(field string) {
	globalManager.validationErrors.WithLabelValues(field).Inc()
}

// RecordLookupError counts a failed lookup.
func RecordLookupError(kind string) {
	globalManager.lookupErrors.WithLabelValues(kind).Inc()
}

// UpdatePlayersTracked sets the tracked population.
func UpdatePlayersTracked(count int) {
	globalManager.playersTracked.Set(float64(count))
}

// RecordOperationLatency observes the latency of one ranking operation.
func RecordOperationLatency(op string, latencyMs float64) {
	globalManager.opLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a refused enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordCommandApplied counts a command the writer applied.
func RecordCommandApplied(kind string) {
	globalManager.commandsApplied.WithLabelValues(kind).Inc()
}

// RecordCommandFailed counts a command the writer rejected.
func RecordCommandFailed(kind string) {
	globalManager.commandsFailed.WithLabelValues(kind).Inc()
}

// RecordCommandLatency observes how long one command took to apply.
func RecordCommandLatency(latencyMs float64) {
	globalManager.commandLatency.Observe(latencyMs)
}

// RecordDuplicate counts a command dropped by the dedupe cache.
func RecordDuplicate() {
	globalManager.duplicates.Inc()
}

// UpdateDedupeSize sets the number of cached request ids.
func UpdateDedupeSize(size int) {
	globalManager.dedupeSize.Set(float64(size))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
