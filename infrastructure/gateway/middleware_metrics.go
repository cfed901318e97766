package gateway

import (
	"context"
	"strconv"
	"time"

	"github.com/ahrav/ragconsole/internal/ports"
)

// Metric names recorded by MetricsMiddleware.
const (
	MetricRequestLatency = "gateway_request_duration_seconds"
	MetricRequestsTotal  = "gateway_requests_total"
	MetricResponseBytes  = "gateway_response_bytes"
)

// metricsTransport records latency, outcome and payload size per operation.
type metricsTransport struct {
	next      CoreTransport
	collector ports.MetricsCollector
}

// MetricsMiddleware creates middleware that collects request metrics.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreTransport) CoreTransport {
		return &metricsTransport{
			next:      next,
			collector: collector,
		}
	}
}

// DoRequest executes the request while recording its outcome.
func (m *metricsTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := m.next.DoRequest(ctx, req)

	if m.collector == nil {
		return resp, err
	}

	labels := map[string]string{
		"operation": req.Operation,
		"status":    outcomeLabel(err),
		"code":      "0",
	}
	if resp != nil {
		labels["code"] = strconv.Itoa(resp.StatusCode)
	} else if ge, ok := asGatewayError(err); ok && ge.StatusCode > 0 {
		labels["code"] = strconv.Itoa(ge.StatusCode)
	}

	m.collector.RecordHistogram(MetricRequestLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricRequestsTotal, 1, labels)
	if resp != nil {
		m.collector.RecordHistogram(MetricResponseBytes, float64(len(resp.Body)),
			map[string]string{"operation": req.Operation})
	}

	return resp, err
}

// outcomeLabel maps an error to a low-cardinality status label.
func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	ge, ok := asGatewayError(err)
	if !ok {
		return "error"
	}
	if ge.Err == ErrCircuitOpen {
		return "circuit_open"
	}
	return ge.Kind.String()
}
