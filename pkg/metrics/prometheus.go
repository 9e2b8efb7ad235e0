// Package metrics provides Prometheus metrics for the garage service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Parking business metrics
	checkIns          *prometheus.CounterVec
	checkOuts         *prometheus.CounterVec
	revenue           prometheus.Counter
	billableHours     prometheus.Histogram
	assignmentScore   prometheus.Histogram
	operationDuration *prometheus.HistogramVec
	spotsByStatus     *prometheus.GaugeVec
	activeSessions    prometheus.Gauge
	completedSessions prometheus.Gauge
	configReloads     *prometheus.CounterVec

	// Gate event intake
	gateEventsReceived  *prometheus.CounterVec
	gateEventsProcessed *prometheus.CounterVec
	dedupeDuplicates    prometheus.Counter
	dedupeEvictions     prometheus.Counter

	// Repository
	repositoryTxLatency *prometheus.HistogramVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

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

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "garage",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.checkIns = auto.NewCounterVec(m.counterOpts("checkins_total",
		"Check-in attempts by result code"), []string{"result"})
	m.checkOuts = auto.NewCounterVec(m.counterOpts("checkouts_total",
		"Checkout attempts by result code and whether they were forced"), []string{"result", "forced"})
	m.revenue = auto.NewCounter(m.counterOpts("revenue_total",
		"Sum of amounts billed at checkout"))
	m.billableHours = auto.NewHistogram(m.histogramOpts("billable_hours",
		"Billable hours per completed checkout", []float64{0, 1, 2, 3, 4, 6, 8, 12, 24, 48}))
	m.assignmentScore = auto.NewHistogram(m.histogramOpts("assignment_score",
		"Score of the spot chosen at check-in", prometheus.LinearBuckets(-60, 10, 13)))
	m.operationDuration = auto.NewHistogramVec(m.histogramOpts("operation_duration_seconds",
		"Coordinator operation latency", nil), []string{"operation", "result"})
	m.spotsByStatus = auto.NewGaugeVec(m.gaugeOpts("spots",
		"Spots by status"), []string{"status"})
	m.activeSessions = auto.NewGauge(m.gaugeOpts("active_sessions",
		"Vehicles currently parked"))
	m.completedSessions = auto.NewGauge(m.gaugeOpts("completed_sessions",
		"Completed sessions retained in history"))
	m.configReloads = auto.NewCounterVec(m.counterOpts("config_reloads_total",
		"Policy reloads from the config file by result"), []string{"result"})

	m.gateEventsReceived = auto.NewCounterVec(m.counterOpts("gate_events_received_total",
		"Gate events received over HTTP by direction and outcome"), []string{"direction", "outcome"})
	m.gateEventsProcessed = auto.NewCounterVec(m.counterOpts("gate_events_processed_total",
		"Gate events applied by workers by direction and result"), []string{"direction", "result"})
	m.dedupeDuplicates = auto.NewCounter(m.counterOpts("dedupe_duplicates_total",
		"Gate events dropped as duplicates"))
	m.dedupeEvictions = auto.NewCounter(m.counterOpts("dedupe_evictions_total",
		"Event ids evicted from the dedupe window"))

	m.repositoryTxLatency = auto.NewHistogramVec(m.histogramOpts("repository_tx_duration_seconds",
		"Store transaction latency by kind", nil), []string{"kind"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Gate events waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum gate events the queue holds"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Gate events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Gate events dequeued"))

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Running gate event workers"))
	m.workerMessagesPerSecond = auto.NewGauge(m.gaugeOpts("worker_messages_per_second",
		"Gate events handled per second across the pool"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_seconds",
		"Time to apply one gate event", nil))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Gate events that failed to apply"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by route, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_seconds",
		"HTTP request latency", nil), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordCheckIn counts a check-in by result code.
func RecordCheckIn(result string) {
	globalManager.checkIns.WithLabelValues(result).Inc()
}

// RecordAssignmentScore observes the score of an assigned spot.
func RecordAssignmentScore(score float64) {
	globalManager.assignmentScore.Observe(score)
}

// RecordCheckOut counts a checkout by result code.
func RecordCheckOut(result string, forced bool) {
	globalManager.checkOuts.WithLabelValues(result, strconv.FormatBool(forced)).Inc()
}

// RecordBilling adds a completed checkout's amount and billable hours.
func RecordBilling(amount float64, hours int) {
	if amount > 0 {
		globalManager.revenue.Add(amount)
	}
	globalManager.billableHours.Observe(float64(hours))
}

// RecordOperationDuration observes a coordinator operation in seconds.
func RecordOperationDuration(operation, result string, seconds float64) {
	globalManager.operationDuration.WithLabelValues(operation, result).Observe(seconds)
}

// UpdateSpotsByStatus sets the spot count for one status.
func UpdateSpotsByStatus(status string, count int) {
	globalManager.spotsByStatus.WithLabelValues(status).Set(float64(count))
}

// UpdateActiveSessions sets the number of parked vehicles.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// UpdateCompletedSessions sets the retained history size.
func UpdateCompletedSessions(count int) {
	globalManager.completedSessions.Set(float64(count))
}

// RecordConfigReload counts a policy reload attempt.
func RecordConfigReload(result string) {
	globalManager.configReloads.WithLabelValues(result).Inc()
}

// RecordGateEventReceived counts an incoming gate event by outcome
// (accepted, duplicate, rejected).
func RecordGateEventReceived(direction, outcome string) {
	globalManager.gateEventsReceived.WithLabelValues(direction, outcome).Inc()
}

// RecordGateEventProcessed counts a gate event applied by a worker.
func RecordGateEventProcessed(direction, result string) {
	globalManager.gateEventsProcessed.WithLabelValues(direction, result).Inc()
}

// RecordDedupeDuplicate counts a duplicate event id.
func RecordDedupeDuplicate() {
	globalManager.dedupeDuplicates.Inc()
}

// RecordDedupeEviction counts an id evicted from the dedupe window.
func RecordDedupeEviction() {
	globalManager.dedupeEvictions.Inc()
}

// RecordRepositoryTxLatency observes a store transaction in seconds.
func RecordRepositoryTxLatency(kind string, seconds float64) {
	globalManager.repositoryTxLatency.WithLabelValues(kind).Observe(seconds)
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

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the pool throughput.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency observes one event's handling time in seconds.
func RecordWorkerProcessingLatency(seconds float64) {
	globalManager.workerProcessingLatency.Observe(seconds)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes HTTP request latency in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use.
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
