// Package middleware provides the observability adapters for the client:
// a Prometheus implementation of ports.MetricsCollector, circuit breaker
// metrics and the /metrics endpoint.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/ragconsole/infrastructure/gateway"
	"github.com/ahrav/ragconsole/internal/ports"
)

// Metric names with dedicated collectors. Anything else is routed to the
// generic vectors, labeled by metric name.
const (
	MetricSessionEvents    = ports.MetricSessionEvents
	MetricSessionDuration  = ports.MetricSessionDuration
	MetricComparisonModels = ports.MetricComparisonModels
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks backend request latency and outcomes, session lifecycle events
// and circuit breaker state.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	requestLatency  *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	responseBytes   *prometheus.HistogramVec
	sessionEvents   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	compareModels   prometheus.Histogram
	operationTimes  *prometheus.HistogramVec
	operationCounts *prometheus.CounterVec
	systemGauges    *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance whose metrics
// are registered in a private registry, exposed through Handler.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,

		// Backend request metrics.
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    gateway.MetricRequestLatency,
				Help:    "Latency of backend requests, including middleware.",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation", "status"},
		),
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: gateway.MetricRequestsTotal,
				Help: "Total number of backend requests by operation and outcome.",
			},
			[]string{"operation", "status", "code"},
		),
		responseBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    gateway.MetricResponseBytes,
				Help:    "Size of successful backend response bodies.",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"operation"},
		),

		// Session lifecycle metrics.
		sessionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSessionEvents,
				Help: "Session lifecycle events such as submits, rejections and stale responses.",
			},
			[]string{"event", "outcome"},
		),
		sessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricSessionDuration,
				Help:    "Wall time from submit to applied outcome for chat and comparison.",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"mode", "outcome"},
		),
		compareModels: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricComparisonModels,
				Help:    "Number of candidate models per comparison run.",
				Buckets: []float64{1, 2, 3, 4, 6, 8},
			},
		),

		// General metrics for anything without a dedicated collector.
		operationTimes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ragconsole_operation_duration_seconds",
				Help:    "Execution time of miscellaneous client operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ragconsole_operations_total",
				Help: "Total number of miscellaneous client operations.",
			},
			[]string{"metric", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ragconsole_state",
				Help: "Current client state values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	switch operation {
	case "chat", "compare":
		pm.sessionDuration.WithLabelValues(operation, label(labels, "outcome")).Observe(duration.Seconds())
	default:
		pm.operationTimes.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case gateway.MetricRequestsTotal:
		pm.requestCounter.WithLabelValues(
			label(labels, "operation"),
			label(labels, "status"),
			label(labels, "code"),
		).Add(value)
	case MetricSessionEvents:
		pm.sessionEvents.WithLabelValues(label(labels, "event"), label(labels, "outcome")).Add(value)
	default:
		pm.operationCounts.WithLabelValues(metric, label(labels, "status")).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, _ map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case gateway.MetricRequestLatency:
		pm.requestLatency.WithLabelValues(label(labels, "operation"), label(labels, "status")).Observe(value)
	case gateway.MetricResponseBytes:
		pm.responseBytes.WithLabelValues(label(labels, "operation")).Observe(value)
	case MetricComparisonModels:
		pm.compareModels.Observe(value)
	default:
		pm.operationTimes.WithLabelValues(metric).Observe(value)
	}
}

// Registry returns the registry holding every metric.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (pm *PrometheusMetrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", pm.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// BreakerMetrics returns a gateway.CircuitBreakerMetrics backed by this
// collector.
func (pm *PrometheusMetrics) BreakerMetrics() gateway.CircuitBreakerMetrics {
	return breakerMetrics{pm: pm}
}

type breakerMetrics struct{ pm *PrometheusMetrics }

func (b breakerMetrics) RecordState(state gateway.CircuitBreakerState) {
	b.pm.systemGauges.WithLabelValues("circuit_breaker_state").Set(float64(state))
}

func (b breakerMetrics) RecordTrip() {
	b.pm.operationCounts.WithLabelValues("circuit_breaker", "rejected").Inc()
}

func (b breakerMetrics) RecordSuccess() {
	b.pm.operationCounts.WithLabelValues("circuit_breaker", "success").Inc()
}

func (b breakerMetrics) RecordFailure() {
	b.pm.operationCounts.WithLabelValues("circuit_breaker", "failure").Inc()
}

func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
