package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/ahrav/ragconsole/internal/ports"
)

// MockTransport provides a configurable CoreTransport for testing.
// It allows precise control over response bodies, timing and failures to
// facilitate middleware and client testing.
type MockTransport struct {
	mu sync.Mutex

	// Response configuration
	Bodies        map[string]string // Body per operation
	DefaultBody   string
	StatusCode    int
	Error         error
	ResponseDelay time.Duration

	// Behavior flags
	FailUntilAttempt int // Fail for first N attempts, then succeed

	// Tracking
	CallCount      int
	Requests       []*Request
	Contexts       []context.Context
	CallTimestamps []time.Time
}

// NewMockTransport creates a mock that answers every request with `{}`.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Bodies:      make(map[string]string),
		DefaultBody: "{}",
		StatusCode:  200,
	}
}

// DoRequest implements CoreTransport with configurable behavior.
func (m *MockTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	m.CallCount++
	call := m.CallCount
	m.Requests = append(m.Requests, req)
	m.Contexts = append(m.Contexts, ctx)
	m.CallTimestamps = append(m.CallTimestamps, time.Now())
	delay := m.ResponseDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ErrorClassifier{}.ClassifyTransportError(ctx, req.Operation, ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUntilAttempt > 0 && call <= m.FailUntilAttempt {
		if m.Error != nil {
			return nil, m.Error
		}
		return nil, ports.NewGatewayError(req.Operation, ports.ErrorKindNetwork, 0, "", ports.ErrServiceUnavailable)
	}
	if m.Error != nil {
		return nil, m.Error
	}

	body, ok := m.Bodies[req.Operation]
	if !ok {
		body = m.DefaultBody
	}
	return &Response{StatusCode: m.StatusCode, Body: []byte(body)}, nil
}

// SetBody configures the body returned for operation.
func (m *MockTransport) SetBody(operation, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bodies[operation] = body
}

// GetCallCount returns the number of times DoRequest was called.
func (m *MockTransport) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// LastRequest returns the most recent request, or nil.
func (m *MockTransport) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

// LastContext returns the context of the most recent request, or nil.
func (m *MockTransport) LastContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Contexts) == 0 {
		return nil
	}
	return m.Contexts[len(m.Contexts)-1]
}

// GetTimeBetweenCalls returns the duration between two recorded calls, or
// nil if either index is out of range.
func (m *MockTransport) GetTimeBetweenCalls(call1, call2 int) *time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if call1 < 0 || call2 < 0 || call1 >= len(m.CallTimestamps) || call2 >= len(m.CallTimestamps) {
		return nil
	}
	d := m.CallTimestamps[call2].Sub(m.CallTimestamps[call1])
	return &d
}
