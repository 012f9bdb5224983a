package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Bridge call metrics
	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	handleWait    prometheus.Histogram
	callsInflight prometheus.Gauge
	handlesLive   prometheus.Gauge
	undelivered   prometheus.Counter
	txsDropped    prometheus.Counter
	txCache       *prometheus.CounterVec

	// Transport metrics
	transportLatency *prometheus.HistogramVec
	transportErrors  *prometheus.CounterVec

	// Server metrics
	rpcRequests *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		// Bridge call metrics
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calls_total",
				Help:      "Total number of bridge calls by method and outcome status",
			},
			[]string{"method", "status"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "call_duration_seconds",
				Help:      "Time from submission to outcome delivery",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"method"},
		),
		handleWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handle_wait_seconds",
				Help:      "Time spent waiting for exclusive access to a transport handle",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
		callsInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "calls_inflight",
				Help:      "Number of bridge calls currently executing",
			},
		),
		handlesLive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "handles_live",
				Help:      "Number of transport handles currently registered",
			},
		),
		undelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_undelivered_total",
				Help:      "Total number of outcomes with no waiter and no receiver",
			},
		),
		txsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_dropped_total",
				Help:      "Total number of transactions omitted because their body failed to decode",
			},
		),
		txCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_cache_lookups_total",
				Help:      "Decoded transaction cache lookups by result",
			},
			[]string{"result"},
		),

		// Transport metrics
		transportLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transport_latency_seconds",
				Help:      "Transport operation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		transportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transport_errors_total",
				Help:      "Total number of failed transport operations",
			},
			[]string{"op", "type"},
		),

		// Server metrics
		rpcRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_requests_total",
				Help:      "Total number of JSON-RPC requests served",
			},
			[]string{"method", "result"},
		),
	}

	registry.MustRegister(
		// Bridge call metrics
		m.calls,
		m.callDuration,
		m.handleWait,
		m.callsInflight,
		m.handlesLive,
		m.undelivered,
		m.txsDropped,
		m.txCache,
		// Transport metrics
		m.transportLatency,
		m.transportErrors,
		// Server metrics
		m.rpcRequests,
	)

	return m
}

// Bridge call metrics implementation

func (m *PrometheusMetrics) IncCalls(method, status string) {
	m.calls.WithLabelValues(method, status).Inc()
}

func (m *PrometheusMetrics) ObserveCallDuration(method string, d time.Duration) {
	m.callDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *PrometheusMetrics) ObserveHandleWait(d time.Duration) {
	m.handleWait.Observe(d.Seconds())
}

func (m *PrometheusMetrics) IncCallsInflight() {
	m.callsInflight.Inc()
}

func (m *PrometheusMetrics) DecCallsInflight() {
	m.callsInflight.Dec()
}

func (m *PrometheusMetrics) SetHandlesLive(count int) {
	m.handlesLive.Set(float64(count))
}

func (m *PrometheusMetrics) IncUndelivered() {
	m.undelivered.Inc()
}

func (m *PrometheusMetrics) AddTxsDropped(count int) {
	m.txsDropped.Add(float64(count))
}

func (m *PrometheusMetrics) IncTxCache(result string) {
	m.txCache.WithLabelValues(result).Inc()
}

// Transport metrics implementation

func (m *PrometheusMetrics) ObserveTransportLatency(op string, d time.Duration) {
	m.transportLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *PrometheusMetrics) IncTransportErrors(op, errorType string) {
	m.transportErrors.WithLabelValues(op, errorType).Inc()
}

// Server metrics implementation

func (m *PrometheusMetrics) IncRPCRequests(method, result string) {
	m.rpcRequests.WithLabelValues(method, result).Inc()
}

// Handler returns an HTTP handler for serving metrics.
func (m *PrometheusMetrics) Handler() any {
	return m.HTTPHandler()
}

// HTTPHandler returns a typed HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}

// Registry returns the underlying Prometheus registry.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Ensure PrometheusMetrics implements Metrics.
var _ Metrics = (*PrometheusMetrics)(nil)
