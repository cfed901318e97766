package gateway

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ahrav/ragconsole/infrastructure/gateway"

// tracedTransport wraps every backend call in an OpenTelemetry span.
type tracedTransport struct {
	next        CoreTransport
	serviceName string
	tracer      trace.Tracer
}

// TracingMiddleware creates middleware that adds a client span per request.
// Spans go to the global tracer provider, which is a no-op unless tracing
// was initialized.
func TracingMiddleware(serviceName string) Middleware {
	return TracingMiddlewareWithProvider(serviceName, otel.GetTracerProvider())
}

// TracingMiddlewareWithProvider is TracingMiddleware with an explicit
// tracer provider.
func TracingMiddlewareWithProvider(serviceName string, tp trace.TracerProvider) Middleware {
	tracer := tp.Tracer(tracerName)
	return func(next CoreTransport) CoreTransport {
		return &tracedTransport{
			next:        next,
			serviceName: serviceName,
			tracer:      tracer,
		}
	}
}

// DoRequest executes the request within a span named after the operation.
func (t *tracedTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := t.tracer.Start(ctx, "gateway."+req.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("service.name", t.serviceName),
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.Int("http.request.body.size", len(req.Body)),
		),
	)
	defer span.End()

	if id := req.Header.Get(RequestIDHeader); id != "" {
		span.SetAttributes(attribute.String("request.id", id))
	}

	resp, err := t.next.DoRequest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ge, ok := asGatewayError(err); ok {
			span.SetAttributes(attribute.String("gateway.error.kind", ge.Kind.String()))
			if ge.StatusCode > 0 {
				span.SetAttributes(attribute.Int("http.response.status_code", ge.StatusCode))
			}
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.Int("http.response.body.size", len(resp.Body)),
	)
	span.SetStatus(codes.Ok, "")
	return resp, nil
}
