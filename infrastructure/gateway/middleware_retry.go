package gateway

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// retryTransport retries idempotent requests with exponential backoff.
// Chat and comparison calls are never retried: they are not idempotent
// and a duplicate would cost a full model run on the backend.
type retryTransport struct {
	next       CoreTransport
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// RetryMiddleware creates middleware that retries transient failures of
// idempotent requests with exponential backoff and jitter.
func RetryMiddleware(maxRetries int, baseDelay, maxDelay time.Duration) Middleware {
	return func(next CoreTransport) CoreTransport {
		return &retryTransport{
			next:       next,
			maxRetries: maxRetries,
			baseDelay:  baseDelay,
			maxDelay:   maxDelay,
		}
	}
}

// DoRequest executes the request, retrying while the failure is retryable,
// the circuit is closed and the context is live. The last classified
// error is returned unchanged so callers can still inspect its kind.
func (r *retryTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	if !req.Idempotent || r.maxRetries <= 0 {
		return r.next.DoRequest(ctx, req)
	}

	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		resp, err := r.next.DoRequest(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil || !isRetryable(err) {
			break
		}
		if attempt == r.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, lastErr
		case <-time.After(r.calculateDelay(attempt)):
		}
	}
	return nil, lastErr
}

func (r *retryTransport) calculateDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	// #nosec G115 - attempt is bounded between 0 and 30
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(r.baseDelay) * float64(multiplier))

	// Jitter of ±25%.
	// #nosec G404 - weak RNG is fine for jitter
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - (delay / 4)

	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}

func isRetryable(err error) bool {
	ge, ok := asGatewayError(err)
	return ok && ge.IsRetryable()
}
