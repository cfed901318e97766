// Package ports defines the interfaces that form the contract between the
// session core and the infrastructure that talks to the backend, stores
// preferences and records telemetry.
// These interfaces enable dependency inversion and make the core testable.
package ports

import (
	"context"
	"encoding/json"

	"github.com/ahrav/ragconsole/internal/domain"
)

// Gateway is the remote backend that performs chat, retrieval, embedding
// and judging. The client only assumes the request/response contract.
//
// Implementations must return *GatewayError for every failure that
// originates from transport or the backend so callers can classify it.
type Gateway interface {
	// ListModels returns the model catalog.
	ListModels(ctx context.Context) (*ModelsResponse, error)

	// ListCollections returns the collection catalog.
	ListCollections(ctx context.Context) (*CollectionsResponse, error)

	// CreateCollection creates a new, empty collection.
	CreateCollection(ctx context.Context, req domain.CreateCollectionRequest) (*AckResponse, error)

	// Chat sends a single-turn chat message.
	Chat(ctx context.Context, req domain.ChatRequest) (*ChatResponse, error)

	// CompareModels answers one question with several models and has a
	// judge model score the answers. It is a single grouped call.
	CompareModels(ctx context.Context, req domain.ComparisonRequest) (*CompareResponse, error)

	// UploadDocuments uploads local files for ingestion. Only the start
	// acknowledgement is returned.
	UploadDocuments(ctx context.Context, req domain.UploadDocumentsRequest) (*AckResponse, error)

	// ProcessDocuments starts ingestion of a server-side directory. Only the
	// start acknowledgement is returned.
	ProcessDocuments(ctx context.Context, req domain.ProcessDocumentsRequest) (*AckResponse, error)
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	// Models is nil when the backend omitted the array or sent null.
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model,omitempty"`
}

// CollectionsResponse is the body of GET /api/collections.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
	Current     string   `json:"current"`
}

// ChatResponse is the body of POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// AckResponse is the start acknowledgement of long-running jobs and
// collection creation.
type AckResponse struct {
	Message string `json:"message"`
}

// CompareResponse is the body of POST /compare-models. Sections are kept as
// raw JSON because their shape varies across backend versions; the result
// normalizer reads them defensively.
type CompareResponse struct {
	// Results maps a model to its answer, normally a JSON string.
	Results map[string]json.RawMessage

	// Metrics maps a model to its metric payload, normally an object.
	Metrics map[string]json.RawMessage

	// RetrievalMetrics is nil when the backend sent none.
	RetrievalMetrics json.RawMessage
}
