// Package metrics provides Prometheus metrics for the teamer service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Matches
	matchesRecorded  prometheus.Counter
	matchesRejected  *prometheus.CounterVec
	ratingLatency    prometheus.Histogram
	matchupsProduced prometheus.Counter
	rankingLatency   prometheus.Histogram

	// Players
	playersProvisioned prometheus.Counter
	totalPlayers       prometheus.Gauge

	// Roster source
	rosterRequests *prometheus.CounterVec
	rosterLatency  *prometheus.HistogramVec

	// Store
	storeCommits       prometheus.Counter
	storeCommitLatency prometheus.Histogram
	storeCommitRecords prometheus.Histogram
	storeErrors        *prometheus.CounterVec
	snapshotsTaken     prometheus.Counter
	snapshotDuration   prometheus.Histogram
	snapshotCount      prometheus.Gauge

	// Record queue and worker
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueRejected    prometheus.Counter
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter
	workerProcessing prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

var (
	globalManager  *Manager                      //nolint:gochecknoglobals // singleton metrics manager
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process registry served on /healthz
)

func init() { //nolint:gochecknoinits // global metrics setup
	customRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }

// NewManager creates a manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "teamer",
		subsystem:        "",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
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

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.matchesRecorded = m.counter("matches_recorded_total", "Matches whose ratings were applied")
	m.matchesRejected = m.counterVec("matches_rejected_total", "Match reports refused, by reason", "reason")
	m.ratingLatency = m.histogram("rating_latency_milliseconds", "Time to compute post-match ratings", m.histogramBuckets)
	m.matchupsProduced = m.counter("matchups_generated_total", "Candidate matchups enumerated")
	m.rankingLatency = m.histogram("ranking_latency_milliseconds", "Time to score and sort candidate matchups", m.histogramBuckets)

	m.playersProvisioned = m.counter("players_provisioned_total", "Player records created from attendance")
	m.totalPlayers = m.gauge("players", "Player records in the store")

	m.rosterRequests = m.counterVec("roster_requests_total", "Roster source calls by endpoint and outcome", "endpoint", "outcome")
	m.rosterLatency = m.histogramVec("roster_request_duration_milliseconds", "Roster source call latency", "endpoint")

	m.storeCommits = m.counter("store_commits_total", "Batches committed to the store")
	m.storeCommitLatency = m.histogram("store_commit_latency_milliseconds", "Batch commit latency", m.histogramBuckets)
	m.storeCommitRecords = m.histogram("store_commit_records", "Records per committed batch", prometheus.LinearBuckets(1, 2, 10))
	m.storeErrors = m.counterVec("store_errors_total", "Store failures by operation", "op")
	m.snapshotsTaken = m.counter("snapshots_total", "Snapshots taken")
	m.snapshotDuration = m.histogram("snapshot_duration_milliseconds", "Snapshot copy duration", m.histogramBuckets)
	m.snapshotCount = m.gauge("snapshots", "Snapshots currently retained")

	m.queueSize = m.gauge("record_queue_size", "Record jobs waiting for the writer")
	m.queueCapacity = m.gauge("record_queue_capacity", "Record queue capacity")
	m.queueEnqueued = m.counter("record_queue_enqueued_total", "Record jobs accepted")
	m.queueRejected = m.counter("record_queue_rejected_total", "Record jobs refused because the queue was full or closed")
	m.workerLatency = m.histogram("record_worker_latency_milliseconds", "Time the writer spent on one job", m.histogramBuckets)
	m.workerErrors = m.counter("record_worker_errors_total", "Record jobs that failed")
	m.workerProcessing = m.gauge("record_worker_busy", "1 while the writer is handling a job")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and kind", "endpoint", "method", "error_type")
}

// RecordMatchRecorded counts an applied match.
func RecordMatchRecorded() {
	if globalManager.enabled {
		globalManager.matchesRecorded.Inc()
	}
}

// RecordMatchRejected counts a refused match report.
func RecordMatchRejected(reason string) {
	if globalManager.enabled {
		globalManager.matchesRejected.WithLabelValues(reason).Inc()
	}
}

// RecordRatingLatency records how long a rating update took.
func RecordRatingLatency(ms float64) {
	if globalManager.enabled {
		globalManager.ratingLatency.Observe(ms)
	}
}

// RecordMatchupsGenerated adds n enumerated candidates.
func RecordMatchupsGenerated(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.matchupsProduced.Add(float64(n))
	}
}

// RecordRankingLatency records how long ranking took.
func RecordRankingLatency(ms float64) {
	if globalManager.enabled {
		globalManager.rankingLatency.Observe(ms)
	}
}

// RecordPlayersProvisioned adds n newly created players.
func RecordPlayersProvisioned(n int) {
	if globalManager.enabled && n > 0 {
		globalManager.playersProvisioned.Add(float64(n))
	}
}

// UpdateTotalPlayers sets the stored player count.
func UpdateTotalPlayers(n int) {
	if globalManager.enabled {
		globalManager.totalPlayers.Set(float64(n))
	}
}

// RecordRosterRequest records one roster source call.
func RecordRosterRequest(endpoint, outcome string, ms float64) {
	if globalManager.enabled {
		globalManager.rosterRequests.WithLabelValues(endpoint, outcome).Inc()
		globalManager.rosterLatency.WithLabelValues(endpoint).Observe(ms)
	}
}

// RecordStoreCommit records a committed batch.
func RecordStoreCommit(ms float64, records int) {
	if globalManager.enabled {
		globalManager.storeCommits.Inc()
		globalManager.storeCommitLatency.Observe(ms)
		globalManager.storeCommitRecords.Observe(float64(records))
	}
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	if globalManager.enabled {
		globalManager.storeErrors.WithLabelValues(op).Inc()
	}
}

// RecordSnapshot records a completed snapshot.
func RecordSnapshot(ms float64) {
	if globalManager.enabled {
		globalManager.snapshotsTaken.Inc()
		globalManager.snapshotDuration.Observe(ms)
	}
}

// UpdateSnapshotCount sets the retained snapshot count.
func UpdateSnapshotCount(n int) {
	if globalManager.enabled {
		globalManager.snapshotCount.Set(float64(n))
	}
}

// UpdateQueueSize sets the record queue depth.
func UpdateQueueSize(n int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(n))
	}
}

// UpdateQueueCapacity sets the record queue capacity.
func UpdateQueueCapacity(n int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(n))
	}
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueRejected counts a refused job.
func RecordQueueRejected() {
	if globalManager.enabled {
		globalManager.queueRejected.Inc()
	}
}

// RecordWorkerProcessingLatency records time spent on one job.
func RecordWorkerProcessingLatency(ms float64) {
	if globalManager.enabled {
		globalManager.workerLatency.Observe(ms)
	}
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// SetWorkerBusy flags whether the writer is handling a job.
func SetWorkerBusy(busy bool) {
	if !globalManager.enabled {
		return
	}
	if busy {
		globalManager.workerProcessing.Set(1)
		return
	}
	globalManager.workerProcessing.Set(0)
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
	}
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	if globalManager.enabled {
		globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// GetRegistry returns the registry holding the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
