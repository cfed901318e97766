// Package gateway implements ports.Gateway over the backend's HTTP API,
// with cross-cutting concerns supplied by a middleware chain.
//
// The package separates the wire transport from the typed client. A
// CoreTransport moves a Request to the backend and back; Middleware wraps
// a CoreTransport to add timeouts, retries, rate limiting, circuit
// breaking, caching, metrics and tracing. Client encodes the typed
// requests, runs them through the chain, and decodes responses leniently.
//
// Basic usage:
//
//	gw, err := gateway.NewClient(gateway.Config{
//	    BaseURL: "http://localhost:8000",
//	    Middleware: gateway.StandardChain(gateway.ChainOptions{
//	        ChatTimeout: 120 * time.Second,
//	    }),
//	})
//	models, err := gw.ListModels(ctx)
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// Backend endpoint paths.
const (
	PathModels           = "/api/models"
	PathCollections      = "/api/collections"
	PathChat             = "/chat"
	PathCompare          = "/compare-models"
	PathDocumentsUpload  = "/api/documents/upload"
	PathDocumentsProcess = "/api/documents/process"
)

// Config holds the options for creating a gateway Client.
type Config struct {
	// BaseURL is the backend root, e.g. http://localhost:8000.
	BaseURL string

	// HTTPClient overrides the default HTTP client. Its Timeout should be
	// zero; deadlines are applied per operation by TimeoutMiddleware.
	HTTPClient *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string

	// Validator checks request structs before they are sent. If nil, a
	// fresh validator is used.
	Validator *validator.Validate

	// Logger receives request lifecycle entries. If nil, logs are dropped.
	Logger ports.Logger

	// Middleware is applied in order; the first entry is the outermost.
	Middleware []Middleware
}

// Client implements ports.Gateway.
type Client struct {
	core       CoreTransport
	validate   *validator.Validate
	logger     ports.Logger
	classifier ErrorClassifier
}

var _ ports.Gateway = (*Client)(nil)

// NewClient creates a Client that talks HTTP to cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	transport, err := newHTTPTransport(cfg.BaseURL, cfg.HTTPClient, cfg.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	return NewClientWithTransport(transport, cfg), nil
}

// NewClientWithTransport creates a Client over an arbitrary CoreTransport.
// cfg.BaseURL and cfg.HTTPClient are ignored.
func NewClientWithTransport(core CoreTransport, cfg Config) *Client {
	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		core = cfg.Middleware[i](core)
	}

	v := cfg.Validator
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	var logger ports.Logger = ports.NopLogger{}
	if cfg.Logger != nil {
		logger = cfg.Logger
	}

	return &Client{core: core, validate: v, logger: logger}
}

// ListModels fetches the model catalog. A body without a models array
// yields a nil Models slice rather than an error.
func (c *Client) ListModels(ctx context.Context) (*ports.ModelsResponse, error) {
	resp, err := c.do(ctx, &Request{
		Operation:  OpListModels,
		Method:     http.MethodGet,
		Path:       PathModels,
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, c.classifier.ClassifyDecodeError(OpListModels, resp.StatusCode, errInvalidJSON)
	}

	out := &ports.ModelsResponse{
		Models:       stringArray(gjson.GetBytes(resp.Body, "models")),
		DefaultModel: gjson.GetBytes(resp.Body, "default_model").String(),
	}
	return out, nil
}

// ListCollections fetches the collection catalog.
func (c *Client) ListCollections(ctx context.Context) (*ports.CollectionsResponse, error) {
	resp, err := c.do(ctx, &Request{
		Operation:  OpListCollections,
		Method:     http.MethodGet,
		Path:       PathCollections,
		Idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, c.classifier.ClassifyDecodeError(OpListCollections, resp.StatusCode, errInvalidJSON)
	}

	out := &ports.CollectionsResponse{
		Collections: stringArray(gjson.GetBytes(resp.Body, "collections")),
		Current:     gjson.GetBytes(resp.Body, "current").String(),
	}
	return out, nil
}

// CreateCollection creates a collection and drops the cached listing.
func (c *Client) CreateCollection(ctx context.Context, req domain.CreateCollectionRequest) (*ports.AckResponse, error) {
	body, err := c.encodeJSON(OpCreateCollection, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, &Request{
		Operation:   OpCreateCollection,
		Method:      http.MethodPost,
		Path:        PathCollections,
		Body:        body,
		ContentType: "application/json",
		Invalidates: []string{http.MethodGet + " " + PathCollections},
	})
	if err != nil {
		return nil, err
	}
	return c.decodeAck(OpCreateCollection, resp)
}

// Chat sends one chat turn. A missing response field decodes as an empty
// answer; only an undecodable body is an error.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest) (*ports.ChatResponse, error) {
	body, err := c.encodeJSON(OpChat, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, &Request{
		Operation:   OpChat,
		Method:      http.MethodPost,
		Path:        PathChat,
		Body:        body,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, c.classifier.ClassifyDecodeError(OpChat, resp.StatusCode, errInvalidJSON)
	}

	answer := gjson.GetBytes(resp.Body, "response")
	text := answer.String()
	if answer.Exists() && answer.Type != gjson.String && answer.Type != gjson.Null {
		text = answer.Raw
	}
	return &ports.ChatResponse{Response: text}, nil
}

// CompareModels sends the grouped comparison request. Each response
// section is kept as raw JSON for the result normalizer.
func (c *Client) CompareModels(ctx context.Context, req domain.ComparisonRequest) (*ports.CompareResponse, error) {
	if req.JudgeIsCandidate() {
		return nil, c.classifier.ClassifyBuildError(OpCompare, domain.ErrJudgeIsCandidate)
	}
	body, err := c.encodeJSON(OpCompare, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, &Request{
		Operation:   OpCompare,
		Method:      http.MethodPost,
		Path:        PathCompare,
		Body:        body,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, c.classifier.ClassifyDecodeError(OpCompare, resp.StatusCode, errInvalidJSON)
	}

	parsed := gjson.ParseBytes(resp.Body)
	out := &ports.CompareResponse{
		Results: rawObject(parsed.Get("results")),
		Metrics: rawObject(parsed.Get("metrics")),
	}
	if rm := parsed.Get("retrieval_metrics"); rm.Exists() && rm.Type != gjson.Null {
		out.RetrievalMetrics = json.RawMessage(rm.Raw)
	}
	return out, nil
}

// UploadDocuments uploads local files as a multipart form.
func (c *Client) UploadDocuments(ctx context.Context, req domain.UploadDocumentsRequest) (*ports.AckResponse, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, c.classifier.ClassifyBuildError(OpUploadDocuments, err)
	}

	body, contentType, err := buildUploadForm(req)
	if err != nil {
		return nil, c.classifier.ClassifyBuildError(OpUploadDocuments, err)
	}

	resp, err := c.do(ctx, &Request{
		Operation:   OpUploadDocuments,
		Method:      http.MethodPost,
		Path:        PathDocumentsUpload,
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, err
	}
	return c.decodeAck(OpUploadDocuments, resp)
}

// ProcessDocuments asks the backend to ingest a server-side directory.
func (c *Client) ProcessDocuments(ctx context.Context, req domain.ProcessDocumentsRequest) (*ports.AckResponse, error) {
	body, err := c.encodeJSON(OpProcessDocuments, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, &Request{
		Operation:   OpProcessDocuments,
		Method:      http.MethodPost,
		Path:        PathDocumentsProcess,
		Body:        body,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return c.decodeAck(OpProcessDocuments, resp)
}

// do stamps a request ID, runs the middleware chain and logs the outcome.
func (c *Client) do(ctx context.Context, req *Request) (*Response, error) {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	id := ulid.Make().String()
	req.Header.Set(RequestIDHeader, id)

	c.logger.Debug("gateway", "sending request", map[string]any{
		"operation":  req.Operation,
		"method":     req.Method,
		"path":       req.Path,
		"request_id": id,
	})

	resp, err := c.core.DoRequest(ctx, req)
	if err != nil {
		details := map[string]any{
			"operation":  req.Operation,
			"request_id": id,
			"error":      err.Error(),
		}
		if ge, ok := asGatewayError(err); ok {
			details["kind"] = ge.Kind.String()
			details["status"] = ge.StatusCode
		}
		c.logger.Warn("gateway", "request failed", details)
		return nil, err
	}

	c.logger.Debug("gateway", "request completed", map[string]any{
		"operation":  req.Operation,
		"request_id": id,
		"status":     resp.StatusCode,
		"bytes":      len(resp.Body),
	})
	return resp, nil
}

// encodeJSON validates v and marshals it as the request body.
func (c *Client) encodeJSON(operation string, v any) ([]byte, error) {
	if err := c.validate.Struct(v); err != nil {
		return nil, c.classifier.ClassifyBuildError(operation, err)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, c.classifier.ClassifyBuildError(operation, err)
	}
	return body, nil
}

func (c *Client) decodeAck(operation string, resp *Response) (*ports.AckResponse, error) {
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return &ports.AckResponse{}, nil
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, c.classifier.ClassifyDecodeError(operation, resp.StatusCode, errInvalidJSON)
	}
	return &ports.AckResponse{Message: gjson.GetBytes(resp.Body, "message").String()}, nil
}

var errInvalidJSON = fmt.Errorf("body is not valid JSON")

// stringArray returns nil when v is absent or not an array.
func stringArray(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	out := []string{}
	v.ForEach(func(_, item gjson.Result) bool {
		out = append(out, item.String())
		return true
	})
	return out
}

// rawObject splits a JSON object into raw members, nil when v is not an
// object.
func rawObject(v gjson.Result) map[string]json.RawMessage {
	if !v.IsObject() {
		return nil
	}
	out := make(map[string]json.RawMessage)
	v.ForEach(func(key, value gjson.Result) bool {
		out[key.String()] = json.RawMessage(value.Raw)
		return true
	})
	return out
}

// buildUploadForm encodes files, collection and chunk_size as multipart.
func buildUploadForm(req domain.UploadDocumentsRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, path := range req.Files {
		if err := addFilePart(w, path); err != nil {
			return nil, "", err
		}
	}
	if err := w.WriteField("collection", req.Collection); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("chunk_size", strconv.Itoa(req.ChunkSize)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func addFilePart(w *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}
