package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/ragconsole/internal/ports"
)

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed allows all requests to pass through normally.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects all requests immediately until the cooldown expires.
	StateOpen

	// StateHalfOpen lets a single probe through to test recovery.
	StateHalfOpen
)

// String returns the state name used in metrics labels.
func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreakerMetrics enables observability for circuit breaker behavior.
type CircuitBreakerMetrics interface {
	// RecordState updates the current circuit breaker state metric.
	RecordState(state CircuitBreakerState)

	// RecordTrip increments the rejected request counter.
	RecordTrip()

	// RecordSuccess increments the successful request counter.
	RecordSuccess()

	// RecordFailure increments the failed request counter.
	RecordFailure()
}

// CircuitBreaker tracks consecutive backend failures and opens once they
// reach the threshold. Only failures that indicate an unhealthy backend
// count: unreachable host, timeouts, 429 and 5xx. A 4xx caused by a bad
// request leaves the circuit alone.
//
// Unlike a lock-around-call breaker, the call itself runs outside the
// mutex so a slow chat request never blocks catalog refreshes.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	lastFailure      time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker creates a circuit breaker that opens after maxFailures
// consecutive failures and stays open for cooldownDuration.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// Call executes fn through the circuit breaker.
// If the circuit is open, this returns ErrCircuitOpen without calling fn.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) < cb.cooldownDuration {
			return false
		}
		cb.state = StateHalfOpen
		cb.probing = true
		return true
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || !countsAsFailure(err) {
		if cb.state == StateHalfOpen {
			cb.probing = false
		}
		if err == nil {
			cb.failureCount = 0
			cb.state = StateClosed
		}
		return
	}

	cb.failureCount++
	cb.lastFailure = cb.now()
	switch cb.state {
	case StateHalfOpen:
		cb.probing = false
		cb.state = StateOpen
	case StateClosed:
		if cb.failureCount >= cb.maxFailures {
			cb.state = StateOpen
		}
	}
}

// GetState returns the current circuit breaker state.
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func countsAsFailure(err error) bool {
	ge, ok := asGatewayError(err)
	if !ok {
		return true
	}
	return ge.Kind == ports.ErrorKindTimeout || ge.IsRetryable()
}

// circuitBreakerTransport fails fast while the backend is unhealthy.
type circuitBreakerTransport struct {
	next    CoreTransport
	cb      *CircuitBreaker
	metrics CircuitBreakerMetrics
}

// CircuitBreakerMiddleware creates middleware that implements the circuit
// breaker pattern.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return CircuitBreakerMiddlewareWithMetrics(maxFailures, cooldown, nil)
}

// CircuitBreakerMiddlewareWithMetrics creates circuit breaker middleware
// that reports its behavior to metrics.
func CircuitBreakerMiddlewareWithMetrics(maxFailures int, cooldown time.Duration, metrics CircuitBreakerMetrics) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next CoreTransport) CoreTransport {
		return &circuitBreakerTransport{
			next:    next,
			cb:      cb,
			metrics: metrics,
		}
	}
}

// DoRequest executes the request through the circuit breaker. A rejected
// request surfaces as a network-kind error since the backend is treated
// as unreachable.
func (c *circuitBreakerTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	var resp *Response
	err := c.cb.Call(func() error {
		var err error
		resp, err = c.next.DoRequest(ctx, req)
		return err
	})

	if c.metrics != nil {
		switch {
		case err == nil:
			c.metrics.RecordSuccess()
		case errors.Is(err, ErrCircuitOpen):
			c.metrics.RecordTrip()
		default:
			c.metrics.RecordFailure()
		}
		c.metrics.RecordState(c.cb.GetState())
	}

	if errors.Is(err, ErrCircuitOpen) {
		return nil, ports.NewGatewayError(req.Operation, ports.ErrorKindNetwork, 0, "", ErrCircuitOpen)
	}
	return resp, err
}
