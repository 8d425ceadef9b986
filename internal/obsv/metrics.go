// Package obsv exposes Prometheus metrics for the policy lifecycle,
// following the registry/collector shape of the teacher's metrics
// package but scoped to document-store concerns: HTTP route outcomes,
// version lifecycle counters, checkpoint cadence, reconstruction replay
// length, and upstream generator/render latency.
package obsv

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector policystored exports.
type Metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	versionsCreated    *prometheus.CounterVec
	checkpointsWritten prometheus.Counter
	replayLength       prometheus.Histogram
	generatorRequests  *prometheus.CounterVec
	generatorDuration  prometheus.Histogram
	renderRequests     *prometheus.CounterVec
	renderDuration     prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter

	registry *prometheus.Registry
}

// New builds a Metrics instance registered under namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request latency in milliseconds by route",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"route"},
	)

	versionsCreated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "version",
			Name:      "created_total",
			Help:      "Total policy versions created by resulting status",
		},
		[]string{"status"},
	)

	checkpointsWritten := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "version",
			Name:      "checkpoints_written_total",
			Help:      "Total versions written with a full-text checkpoint",
		},
	)

	replayLength := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconstruct",
			Name:      "replay_length",
			Help:      "Number of deltas replayed to reconstruct a version",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	generatorRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "requests_total",
			Help:      "Total upstream HTML generator requests by outcome",
		},
		[]string{"outcome"},
	)

	generatorDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "duration_milliseconds",
			Help:      "Upstream HTML generator request latency in milliseconds",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)

	renderRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "requests_total",
			Help:      "Total PDF render requests by outcome",
		},
		[]string{"outcome"},
	)

	renderDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "duration_milliseconds",
			Help:      "PDF render latency in milliseconds",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000},
		},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total reconstruction cache hits",
		},
	)

	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total reconstruction cache misses",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		versionsCreated,
		checkpointsWritten,
		replayLength,
		generatorRequests,
		generatorDuration,
		renderRequests,
		renderDuration,
		cacheHits,
		cacheMisses,
	)

	return &Metrics{
		httpRequests:       httpRequests,
		httpDuration:       httpDuration,
		versionsCreated:    versionsCreated,
		checkpointsWritten: checkpointsWritten,
		replayLength:       replayLength,
		generatorRequests:  generatorRequests,
		generatorDuration:  generatorDuration,
		renderRequests:     renderRequests,
		renderDuration:     renderDuration,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		registry:           registry,
	}
}

// RecordHTTP records one finished HTTP request.
func (m *Metrics) RecordHTTP(route, status string, duration time.Duration) {
	m.httpRequests.WithLabelValues(route, status).Inc()
	m.httpDuration.WithLabelValues(route).Observe(float64(duration.Milliseconds()))
}

// RecordVersionCreated records a version creation by its resulting status.
func (m *Metrics) RecordVersionCreated(status string, isCheckpoint bool) {
	m.versionsCreated.WithLabelValues(status).Inc()
	if isCheckpoint {
		m.checkpointsWritten.Inc()
	}
}

// RecordReplayLength records how many deltas a reconstruction replayed.
func (m *Metrics) RecordReplayLength(n int) {
	m.replayLength.Observe(float64(n))
}

// RecordGenerator records an upstream generator call outcome and latency.
func (m *Metrics) RecordGenerator(outcome string, duration time.Duration) {
	m.generatorRequests.WithLabelValues(outcome).Inc()
	m.generatorDuration.Observe(float64(duration.Milliseconds()))
}

// RecordRender records a PDF render outcome and latency.
func (m *Metrics) RecordRender(outcome string, duration time.Duration) {
	m.renderRequests.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(float64(duration.Milliseconds()))
}

// RecordCacheHit records a reconstruction cache hit.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Inc() }

// RecordCacheMiss records a reconstruction cache miss.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Inc() }

// HTTPHandler returns the /metrics exposition handler.
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
