package gateway

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ahrav/ragconsole/internal/ports"
)

// rateLimitedTransport paces outgoing requests with a token bucket.
type rateLimitedTransport struct {
	next    CoreTransport
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that enforces a token-bucket rate
// limit. limit is requests per second; burst allows short spikes.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)

	return func(next CoreTransport) CoreTransport {
		return &rateLimitedTransport{
			next:    next,
			limiter: limiter,
		}
	}
}

// DoRequest waits for a token before forwarding the request. A wait cut
// short by the context is classified like any other transport failure.
func (r *rateLimitedTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			// The wait would outlast the deadline.
			return nil, ports.NewGatewayError(req.Operation, ports.ErrorKindTimeout, 0, "", err)
		}
		return nil, ErrorClassifier{}.ClassifyTransportError(ctx, req.Operation, err)
	}
	return r.next.DoRequest(ctx, req)
}
