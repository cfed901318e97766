package gateway

import (
	"context"
	"time"
)

// timeoutTransport enforces a client-side deadline on selected operations.
type timeoutTransport struct {
	next       CoreTransport
	timeout    time.Duration
	operations map[string]struct{}
}

// TimeoutMiddleware creates middleware that bounds the listed operations by
// timeout. With no operations listed, every request is bounded.
// A non-positive timeout makes the middleware a pass-through.
func TimeoutMiddleware(timeout time.Duration, operations ...string) Middleware {
	ops := make(map[string]struct{}, len(operations))
	for _, op := range operations {
		ops[op] = struct{}{}
	}
	return func(next CoreTransport) CoreTransport {
		return &timeoutTransport{
			next:       next,
			timeout:    timeout,
			operations: ops,
		}
	}
}

// DoRequest executes the request with a timeout context when the operation
// is covered. An expired deadline surfaces as a timeout-kind GatewayError.
func (t *timeoutTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	if !t.applies(req.Operation) {
		return t.next.DoRequest(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.DoRequest(ctx, req)
}

func (t *timeoutTransport) applies(op string) bool {
	if t.timeout <= 0 {
		return false
	}
	if len(t.operations) == 0 {
		return true
	}
	_, ok := t.operations[op]
	return ok
}
