// Package testutils provides deterministic test doubles for the session
// core and the gateway.
package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

// MockGateway implements ports.Gateway with canned responses and records
// every call for assertions.
// Chat and CompareModels can be held open with Hold to exercise in-flight
// behavior; a held call returns when released or when its context ends.
type MockGateway struct {
	mu sync.Mutex

	// Canned responses. Nil responses fall back to the defaults set by
	// NewMockGateway.
	Models      *ports.ModelsResponse
	Collections *ports.CollectionsResponse
	ChatReply   *ports.ChatResponse
	CompareResp *ports.CompareResponse
	Ack         *ports.AckResponse

	// Per-operation errors. A non-nil error is returned instead of the
	// canned response.
	ModelsErr      error
	CollectionsErr error
	ChatErr        error
	CompareErr     error
	CreateErr      error
	UploadErr      error
	ProcessErr     error

	ChatRequests    []domain.ChatRequest
	CompareRequests []domain.ComparisonRequest
	CreateRequests  []domain.CreateCollectionRequest
	UploadRequests  []domain.UploadDocumentsRequest
	ProcessRequests []domain.ProcessDocumentsRequest
	ModelCalls      int
	CollectionCalls int

	hold    chan struct{}
	started chan struct{}
}

// NewMockGateway returns a gateway with a small catalog: models a, b and c
// with b as the default, and collections docs and notes with docs current.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Models:      &ports.ModelsResponse{Models: []string{"a", "b", "c"}, DefaultModel: "b"},
		Collections: &ports.CollectionsResponse{Collections: []string{"docs", "notes"}, Current: "docs"},
		ChatReply:   &ports.ChatResponse{Response: "mock answer"},
		CompareResp: &ports.CompareResponse{
			Results: map[string]json.RawMessage{
				"a": json.RawMessage(`"answer from a"`),
				"b": json.RawMessage(`"answer from b"`),
			},
			Metrics: map[string]json.RawMessage{
				"a": json.RawMessage(`{"relevance": 0.9, "overall_score": 0.85}`),
				"b": json.RawMessage(`{"relevance": 0.5, "overall_score": 0.5}`),
			},
		},
		Ack: &ports.AckResponse{Message: "accepted"},
	}
}

// Hold makes subsequent Chat and CompareModels calls block until Release.
// The returned channel receives once per call that starts blocking.
func (m *MockGateway) Hold() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hold = make(chan struct{})
	m.started = make(chan struct{}, 16)
	return m.started
}

// Release unblocks held calls.
func (m *MockGateway) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hold != nil {
		close(m.hold)
		m.hold = nil
	}
}

// ChatCalls returns the number of chat requests received.
func (m *MockGateway) ChatCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ChatRequests)
}

// CompareCalls returns the number of comparison requests received.
func (m *MockGateway) CompareCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.CompareRequests)
}

// ListModels implements ports.Gateway.
func (m *MockGateway) ListModels(ctx context.Context) (*ports.ModelsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ModelCalls++
	if m.ModelsErr != nil {
		return nil, m.ModelsErr
	}
	return m.Models, nil
}

// ListCollections implements ports.Gateway.
func (m *MockGateway) ListCollections(ctx context.Context) (*ports.CollectionsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CollectionCalls++
	if m.CollectionsErr != nil {
		return nil, m.CollectionsErr
	}
	return m.Collections, nil
}

// CreateCollection implements ports.Gateway.
func (m *MockGateway) CreateCollection(ctx context.Context, req domain.CreateCollectionRequest) (*ports.AckResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateRequests = append(m.CreateRequests, req)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.Collections != nil {
		m.Collections.Collections = append(m.Collections.Collections, req.Name)
	}
	return m.Ack, nil
}

// Chat implements ports.Gateway.
func (m *MockGateway) Chat(ctx context.Context, req domain.ChatRequest) (*ports.ChatResponse, error) {
	m.mu.Lock()
	m.ChatRequests = append(m.ChatRequests, req)
	hold, started := m.hold, m.started
	m.mu.Unlock()

	if err := wait(ctx, hold, started, "chat"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ChatErr != nil {
		return nil, m.ChatErr
	}
	return m.ChatReply, nil
}

// CompareModels implements ports.Gateway.
func (m *MockGateway) CompareModels(ctx context.Context, req domain.ComparisonRequest) (*ports.CompareResponse, error) {
	m.mu.Lock()
	m.CompareRequests = append(m.CompareRequests, req)
	hold, started := m.hold, m.started
	m.mu.Unlock()

	if err := wait(ctx, hold, started, "compare_models"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CompareErr != nil {
		return nil, m.CompareErr
	}
	return m.CompareResp, nil
}

// UploadDocuments implements ports.Gateway.
func (m *MockGateway) UploadDocuments(ctx context.Context, req domain.UploadDocumentsRequest) (*ports.AckResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UploadRequests = append(m.UploadRequests, req)
	if m.UploadErr != nil {
		return nil, m.UploadErr
	}
	return m.Ack, nil
}

// ProcessDocuments implements ports.Gateway.
func (m *MockGateway) ProcessDocuments(ctx context.Context, req domain.ProcessDocumentsRequest) (*ports.AckResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProcessRequests = append(m.ProcessRequests, req)
	if m.ProcessErr != nil {
		return nil, m.ProcessErr
	}
	return m.Ack, nil
}

// wait blocks on hold and converts a context ending into the gateway error
// a real transport would produce.
func wait(ctx context.Context, hold <-chan struct{}, started chan<- struct{}, op string) error {
	if hold == nil {
		return nil
	}
	started <- struct{}{}
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ports.NewGatewayError(op, ports.ErrorKindTimeout, 0, "", errors.Join(ports.ErrTimeout, ctx.Err()))
		}
		return ports.NewGatewayError(op, ports.ErrorKindCanceled, 0, "", errors.Join(ports.ErrCanceled, ctx.Err()))
	}
}

var _ ports.Gateway = (*MockGateway)(nil)
