package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/ragconsole/infrastructure/gateway"
	"github.com/ahrav/ragconsole/internal/ports"
)

// TestNewPrometheusMetrics verifies that every collector is initialized and
// that instances do not collide on registration.
func TestNewPrometheusMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	other := NewPrometheusMetrics()

	assert.NotNil(t, pm.requestLatency)
	assert.NotNil(t, pm.requestCounter)
	assert.NotNil(t, pm.sessionEvents)
	assert.NotNil(t, pm.systemGauges)
	assert.NotSame(t, pm.Registry(), other.Registry())

	var _ ports.MetricsCollector = pm
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		labels map[string]string
		read   func(pm *PrometheusMetrics) float64
	}{
		{
			name:   "gateway request counter",
			metric: gateway.MetricRequestsTotal,
			labels: map[string]string{"operation": "chat", "status": "success", "code": "200"},
			read: func(pm *PrometheusMetrics) float64 {
				return testutil.ToFloat64(pm.requestCounter.WithLabelValues("chat", "success", "200"))
			},
		},
		{
			name:   "session events",
			metric: MetricSessionEvents,
			labels: map[string]string{"event": "chat_submit", "outcome": "accepted"},
			read: func(pm *PrometheusMetrics) float64 {
				return testutil.ToFloat64(pm.sessionEvents.WithLabelValues("chat_submit", "accepted"))
			},
		},
		{
			name:   "missing labels default to unknown",
			metric: MetricSessionEvents,
			labels: nil,
			read: func(pm *PrometheusMetrics) float64 {
				return testutil.ToFloat64(pm.sessionEvents.WithLabelValues("unknown", "unknown"))
			},
		},
		{
			name:   "unrecognized metric uses the generic counter",
			metric: "catalog_reload",
			labels: map[string]string{"status": "success"},
			read: func(pm *PrometheusMetrics) float64 {
				return testutil.ToFloat64(pm.operationCounts.WithLabelValues("catalog_reload", "success"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewPrometheusMetrics()
			pm.RecordCounter(tt.metric, 2, tt.labels)
			assert.Equal(t, 2.0, tt.read(pm))
		})
	}
}

func TestPrometheusMetrics_RecordHistogramAndLatency(t *testing.T) {
	pm := NewPrometheusMetrics()

	pm.RecordHistogram(gateway.MetricRequestLatency, 0.2, map[string]string{"operation": "chat", "status": "success"})
	pm.RecordHistogram(gateway.MetricResponseBytes, 1024, map[string]string{"operation": "chat"})
	pm.RecordHistogram(MetricComparisonModels, 3, nil)
	pm.RecordLatency("chat", 2*time.Second, map[string]string{"outcome": "success"})
	pm.RecordLatency("catalog_load", 50*time.Millisecond, nil)

	assert.Equal(t, 1, testutil.CollectAndCount(pm.requestLatency))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.responseBytes))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.sessionDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(pm.operationTimes))
}

func TestPrometheusMetrics_BreakerMetrics(t *testing.T) {
	pm := NewPrometheusMetrics()
	bm := pm.BreakerMetrics()

	bm.RecordFailure()
	bm.RecordTrip()
	bm.RecordState(gateway.StateOpen)

	assert.Equal(t, float64(gateway.StateOpen),
		testutil.ToFloat64(pm.systemGauges.WithLabelValues("circuit_breaker_state")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.operationCounts.WithLabelValues("circuit_breaker", "rejected")))
}

func TestPrometheusMetrics_Handler(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.RecordCounter(gateway.MetricRequestsTotal, 1,
		map[string]string{"operation": "list_models", "status": "success", "code": "200"})

	srv := httptest.NewServer(pm.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `gateway_requests_total{code="200",operation="list_models",status="success"} 1`)
}
