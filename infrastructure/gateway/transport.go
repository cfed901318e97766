package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Operation names identify backend calls in logs, metrics and traces.
const (
	OpListModels       = "list_models"
	OpListCollections  = "list_collections"
	OpCreateCollection = "create_collection"
	OpChat             = "chat"
	OpCompare          = "compare_models"
	OpUploadDocuments  = "upload_documents"
	OpProcessDocuments = "process_documents"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Request is a single backend call as seen by the middleware chain.
type Request struct {
	// Operation names the call, one of the Op* constants.
	Operation string

	Method      string
	Path        string
	Body        []byte
	ContentType string
	Header      http.Header

	// Idempotent marks calls that may be retried and cached.
	Idempotent bool

	// Invalidates lists cache keys made stale by a successful call.
	Invalidates []string
}

// CacheKey returns the key under which an idempotent response is cached.
func (r *Request) CacheKey() string { return r.Method + " " + r.Path }

// Response is a successful backend reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CoreTransport sends a Request to the backend.
// Implementations must return *ports.GatewayError for every failure so the
// middleware chain and the session can classify it.
type CoreTransport interface {
	DoRequest(ctx context.Context, req *Request) (*Response, error)
}

// Middleware wraps a CoreTransport to add cross-cutting functionality such
// as timeouts, retries, rate limiting, caching, metrics and tracing.
type Middleware func(CoreTransport) CoreTransport

// httpTransport is the terminal CoreTransport that performs HTTP I/O.
type httpTransport struct {
	baseURL    *url.URL
	client     *http.Client
	userAgent  string
	classifier ErrorClassifier
}

// newHTTPTransport builds the terminal transport for baseURL.
func newHTTPTransport(baseURL string, client *http.Client, userAgent string) (*httpTransport, error) {
	normalized, err := ValidateBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if client == nil {
		// Deadlines come from the request context, never from the client.
		client = &http.Client{}
	}
	return &httpTransport{baseURL: u, client: client, userAgent: userAgent}, nil
}

// DoRequest performs the HTTP round trip and classifies every failure.
func (t *httpTransport) DoRequest(ctx context.Context, req *Request) (*Response, error) {
	endpoint := t.baseURL.JoinPath(strings.TrimPrefix(req.Path, "/"))

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint.String(), body)
	if err != nil {
		return nil, t.classifier.ClassifyBuildError(req.Operation, err)
	}

	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.classifier.ClassifyTransportError(ctx, req.Operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, t.classifier.ClassifyTransportError(ctx, req.Operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, t.classifier.ClassifyHTTPError(req.Operation, resp.StatusCode, data)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
