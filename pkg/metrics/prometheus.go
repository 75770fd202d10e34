// Package metrics provides Prometheus metrics for the Glicko-2 rating engine.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics of the rating engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Engine metrics
	playersRegistered  prometheus.Counter
	playersTotal       prometheus.Gauge
	resultsRegistered  prometheus.Counter
	resultsRejected    *prometheus.CounterVec
	pendingResults     prometheus.Gauge
	periodsClosed      prometheus.Counter
	convergenceFailure prometheus.Counter
	closeDuration      prometheus.Histogram
	projectionLatency  prometheus.Histogram

	// Ingestion metrics
	reportsIngested  prometheus.Counter
	reportsDuplicate prometheus.Counter

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Standings metrics
	standingsPublished prometheus.Counter
	standingsSize      prometheus.Gauge
	standingsRebuild   prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "glicko2",
		subsystem:        "engine",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
			Buckets:   m.histogramBuckets,
		})
	}

	m.playersRegistered = counter("players_registered_total", "Total number of players registered")
	m.playersTotal = gauge("players", "Current number of registered players")
	m.resultsRegistered = counter("results_registered_total", "Total number of game results accepted into the ledger")
	m.resultsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "results_rejected_total",
			Help:      "Total number of game results rejected, by reason",
		},
		[]string{"reason"},
	)
	m.pendingResults = gauge("pending_results", "Ledger entries waiting for their period to seal")
	m.periodsClosed = counter("periods_closed_total", "Total number of rating periods sealed")
	m.convergenceFailure = counter("convergence_failures_total", "Total number of volatility solver failures")
	m.closeDuration = histogram("close_duration_milliseconds", "Duration of a rating period close in milliseconds")
	m.projectionLatency = histogram("projection_latency_milliseconds", "Latency of an instant rating projection in milliseconds")

	m.reportsIngested = counter("reports_ingested_total", "Total number of match reports accepted for ingestion")
	m.reportsDuplicate = counter("reports_duplicate_total", "Total number of duplicate match reports dropped")

	m.queueSize = gauge("queue_size", "Current size of the match report queue")
	m.queueCapacity = gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = counter("queue_enqueue_total", "Total number of reports enqueued")
	m.queueDequeueRate = counter("queue_dequeue_total", "Total number of reports dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Total number of enqueue errors")

	m.workerActiveCount = gauge("worker_active_count", "Number of running workers")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds")
	m.workerErrorRate = counter("worker_errors_total", "Total number of reports a worker failed to apply")

	m.standingsPublished = counter("standings_published_total", "Total number of standings snapshots published")
	m.standingsSize = gauge("standings_size", "Number of players in the last standings snapshot")
	m.standingsRebuild = histogram("standings_rebuild_duration_milliseconds", "Time to rank and publish a standings snapshot in milliseconds")
}

// Engine Metrics Functions.

// RecordPlayerRegistered increments the registered players counter.
func RecordPlayerRegistered() {
	globalManager.playersRegistered.Inc()
}

// UpdatePlayersTotal sets the number of registered players.
func UpdatePlayersTotal(count int) {
	globalManager.playersTotal.Set(float64(count))
}

// RecordResultRegistered increments the accepted results counter.
func RecordResultRegistered() {
	globalManager.resultsRegistered.Inc()
}

// RecordResultRejected counts a rejected result under reason.
func RecordResultRejected(reason string) {
	globalManager.resultsRejected.WithLabelValues(reason).Inc()
}

// UpdatePendingResults sets the number of buffered ledger entries.
func UpdatePendingResults(count int) {
	globalManager.pendingResults.Set(float64(count))
}

// RecordPeriodsClosed adds n sealed periods.
func RecordPeriodsClosed(n int) {
	if n > 0 {
		globalManager.periodsClosed.Add(float64(n))
	}
}

// RecordConvergenceFailure increments the solver failure counter.
func RecordConvergenceFailure() {
	globalManager.convergenceFailure.Inc()
}

// RecordCloseDuration records a period close duration in milliseconds.
func RecordCloseDuration(durationMs float64) {
	globalManager.closeDuration.Observe(durationMs)
}

// RecordProjectionLatency records a projection latency in milliseconds.
func RecordProjectionLatency(latencyMs float64) {
	globalManager.projectionLatency.Observe(latencyMs)
}

// Ingestion Metrics Functions.

// RecordReportIngested increments the ingested reports counter.
func RecordReportIngested() {
	globalManager.reportsIngested.Inc()
}

// RecordReportDuplicate increments the duplicate reports counter.
func RecordReportDuplicate() {
	globalManager.reportsDuplicate.Inc()
}

// Queue Metrics Functions.

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
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Standings Metrics Functions.

// RecordStandingsPublished records a published snapshot of size entries.
func RecordStandingsPublished(size int) {
	globalManager.standingsPublished.Inc()
	globalManager.standingsSize.Set(float64(size))
}

// RecordStandingsRebuildDuration records how long ranking a snapshot took.
func RecordStandingsRebuildDuration(durationMs float64) {
	globalManager.standingsRebuild.Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current state of the registry to path in the
// Prometheus text exposition format.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrExportFailed)
	}
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}
