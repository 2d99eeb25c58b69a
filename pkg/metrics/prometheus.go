// Package metrics provides Prometheus metrics for the mini-isolation service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the Prometheus collectors of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Event pipeline
	eventsProcessed prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventErrors     prometheus.Counter
	eventLatency    prometheus.Histogram

	// Per-candidate evaluation
	candidatesEvaluated *prometheus.CounterVec
	evaluationLatency   *prometheus.HistogramVec
	providerErrors      *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers and storage
	workerCount   prometheus.Gauge
	workerErrors  prometheus.Counter
	storedResults prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of the exposition.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "miniiso",
		subsystem:        "lepton",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		enabled:          true,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsProcessed = auto.NewCounter(m.counter("events_processed_total",
		"Total number of events whose candidates were all evaluated"))
	m.eventsDuplicate = auto.NewCounter(m.counter("events_duplicate_total",
		"Total number of submitted events rejected as duplicates"))
	m.eventErrors = auto.NewCounter(m.counter("event_errors_total",
		"Total number of events that failed evaluation"))
	m.eventLatency = auto.NewHistogram(m.histogram("event_latency_milliseconds",
		"Time to evaluate every candidate of one event, in milliseconds"))

	m.candidatesEvaluated = auto.NewCounterVec(m.counter("candidates_evaluated_total",
		"Total number of lepton candidates evaluated, by kind and validity"),
		[]string{"kind", "valid"})
	m.evaluationLatency = auto.NewHistogramVec(m.histogram("evaluation_latency_milliseconds",
		"Per-candidate evaluation latency in milliseconds"),
		[]string{"kind"})
	m.providerErrors = auto.NewCounterVec(m.counter("provider_errors_total",
		"Total number of isolation-sum provider failures, by kind"),
		[]string{"kind"})

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Current number of queued events"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Maximum number of queued events"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Queue size over capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total", "Total number of enqueued events"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total", "Total number of dequeued events"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total",
		"Total number of rejected enqueue attempts"))

	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Current number of evaluation workers"))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total", "Total number of worker failures"))
	m.storedResults = auto.NewGauge(m.gauge("stored_results", "Number of event results held in memory"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_total",
		"Total number of errors by component and type"),
		[]string{"component", "error_type"})
}

// RecordEventProcessed increments the processed events counter.
func (m *Manager) RecordEventProcessed() {
	if m.enabled {
		m.eventsProcessed.Inc()
	}
}

// RecordEventDuplicate increments the duplicate events counter.
func (m *Manager) RecordEventDuplicate() {
	if m.enabled {
		m.eventsDuplicate.Inc()
	}
}

// RecordEventError increments the failed events counter.
func (m *Manager) RecordEventError() {
	if m.enabled {
		m.eventErrors.Inc()
	}
}

// RecordEventLatency observes the time spent on one event.
func (m *Manager) RecordEventLatency(latencyMs float64) {
	if m.enabled {
		m.eventLatency.Observe(latencyMs)
	}
}

// RecordCandidate counts one evaluated candidate.
func (m *Manager) RecordCandidate(kind string, valid bool) {
	if m.enabled {
		m.candidatesEvaluated.WithLabelValues(kind, strconv.FormatBool(valid)).Inc()
	}
}

// RecordEvaluationLatency observes the time spent on one candidate.
func (m *Manager) RecordEvaluationLatency(kind string, latencyMs float64) {
	if m.enabled {
		m.evaluationLatency.WithLabelValues(kind).Observe(latencyMs)
	}
}

// RecordProviderError counts one isolation-sum provider failure.
func (m *Manager) RecordProviderError(kind string) {
	if m.enabled {
		m.providerErrors.WithLabelValues(kind).Inc()
	}
}

// RecordEventProcessed increments the processed events counter.
func RecordEventProcessed() { globalManager.RecordEventProcessed() }

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() { globalManager.RecordEventDuplicate() }

// RecordEventError increments the failed events counter.
func RecordEventError() { globalManager.RecordEventError() }

// RecordEventLatency observes the time spent on one event.
func RecordEventLatency(latencyMs float64) { globalManager.RecordEventLatency(latencyMs) }

// RecordCandidate counts one evaluated candidate.
func RecordCandidate(kind string, valid bool) { globalManager.RecordCandidate(kind, valid) }

// RecordEvaluationLatency observes the time spent on one candidate.
func RecordEvaluationLatency(kind string, latencyMs float64) {
	globalManager.RecordEvaluationLatency(kind, latencyMs)
}

// RecordProviderError counts one isolation-sum provider failure.
func RecordProviderError(kind string) { globalManager.RecordProviderError(kind) }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if globalManager.enabled {
		globalManager.queueUtilization.Set(utilization)
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if globalManager.enabled {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if globalManager.enabled {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if globalManager.enabled {
		globalManager.queueEnqueueErrors.Inc()
	}
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	if globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if globalManager.enabled {
		globalManager.workerErrors.Inc()
	}
}

// UpdateStoredResults sets the number of results held by the store.
func UpdateStoredResults(count int) {
	if globalManager.enabled {
		globalManager.storedResults.Set(float64(count))
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
