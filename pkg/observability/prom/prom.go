// Package prom reports engine, store and HTTP events as Prometheus metrics.
//
//	m := prom.New(prometheus.NewRegistry())
//	m.Install()
//	http.Handle("/metrics", m.Handler())
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/rigstash/pkg/observability"
)

const namespace = "rigstash"

// Metrics implements the observability hooks with Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	nodes      *prometheus.CounterVec
	warnings   prometheus.Counter
	weights    *prometheus.CounterVec
	vertices   prometheus.Histogram

	storeGets    *prometheus.CounterVec
	storePuts    *prometheus.CounterVec
	storeBytes   *prometheus.CounterVec
	storeDeletes *prometheus.CounterVec

	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_operations_total",
			Help:      "Number of engine operations by kind.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_failures_total",
			Help:      "Number of failed engine operations by kind.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_operation_duration_seconds",
			Help:      "Time taken by engine operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_nodes_total",
			Help:      "Nodes exported or created by loads.",
		}, []string{"operation"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_load_warnings_total",
			Help:      "Recovered failures reported by loads.",
		}),
		weights: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_merge_weights_total",
			Help:      "Weights written or skipped by merges.",
		}, []string{"result"}),
		vertices: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_decompose_vertices",
			Help:      "Vertices changed per pose-delta decomposition.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		storeGets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_gets_total",
			Help:      "Store reads by backend and result.",
		}, []string{"backend", "result"}),
		storePuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_puts_total",
			Help:      "Store writes by backend.",
		}, []string{"backend"}),
		storeBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_put_bytes_total",
			Help:      "Bytes written to the store by backend.",
		}, []string{"backend"}),
		storeDeletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_deletes_total",
			Help:      "Store deletions by backend.",
		}, []string{"backend"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and route.",
		}, []string{"method", "route"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP responses by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time taken to serve HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.operations, m.failures, m.duration, m.nodes, m.warnings, m.weights, m.vertices,
		m.storeGets, m.storePuts, m.storeBytes, m.storeDeletes,
		m.requests, m.responses, m.latency,
	)
	return m
}

// Install makes m the global engine, store and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetEngineHooks(m)
	observability.SetStoreHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(op string, d time.Duration, err error) {
	m.operations.WithLabelValues(op).Inc()
	m.duration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		m.failures.WithLabelValues(op).Inc()
	}
}

// =============================================================================
// Engine Hooks
// =============================================================================

func (m *Metrics) OnExport(_ context.Context, nodes int, d time.Duration, err error) {
	m.observe("export", d, err)
	m.nodes.WithLabelValues("export").Add(float64(nodes))
}

func (m *Metrics) OnLoad(_ context.Context, created, warnings int, d time.Duration, err error) {
	m.observe("load", d, err)
	m.nodes.WithLabelValues("load").Add(float64(created))
	m.warnings.Add(float64(warnings))
}

func (m *Metrics) OnMerge(_ context.Context, _ string, written, skipped int, d time.Duration, err error) {
	m.observe("merge", d, err)
	m.weights.WithLabelValues("written").Add(float64(written))
	m.weights.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) OnDecompose(_ context.Context, vertices int, d time.Duration, err error) {
	m.observe("decompose", d, err)
	if err == nil {
		m.vertices.Observe(float64(vertices))
	}
}

// =============================================================================
// Store Hooks
// =============================================================================

func (m *Metrics) OnGet(_ context.Context, backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.storeGets.WithLabelValues(backend, result).Inc()
}

func (m *Metrics) OnPut(_ context.Context, backend string, size int) {
	m.storePuts.WithLabelValues(backend).Inc()
	m.storeBytes.WithLabelValues(backend).Add(float64(size))
}

func (m *Metrics) OnDelete(_ context.Context, backend string) {
	m.storeDeletes.WithLabelValues(backend).Inc()
}

// =============================================================================
// HTTP Hooks
// =============================================================================

func (m *Metrics) OnRequest(_ context.Context, method, route string) {
	m.requests.WithLabelValues(method, route).Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.responses.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.EngineHooks = (*Metrics)(nil)
	_ observability.StoreHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)
