package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

const documentsEntity = "documents"

// DocumentManager starts ingestion jobs and creates collections. Ingestion
// is fire-and-forget: only the backend's start acknowledgement is returned.
type DocumentManager struct {
	gateway ports.Gateway
	logger  ports.Logger

	// refresh reloads the collection catalog after a collection is created.
	refresh func(context.Context) error
}

// NewDocumentManager creates a manager. refresh may be nil.
func NewDocumentManager(gw ports.Gateway, logger ports.Logger, refresh func(context.Context) error) *DocumentManager {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &DocumentManager{gateway: gw, logger: logger, refresh: refresh}
}

// CreateCollection creates name and refreshes the collection catalog.
// A refresh failure is logged but does not fail the creation.
func (m *DocumentManager) CreateCollection(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.Invalid("collection", domain.ErrNoCollection, "collection name is required")
	}

	ack, err := m.gateway.CreateCollection(ctx, domain.CreateCollectionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("create collection %q: %w", name, err)
	}
	m.logger.Info("documents", "collection created", map[string]any{"collection": name})

	if m.refresh != nil {
		if err := m.refresh(ctx); err != nil {
			m.logger.Warn("documents", "collection refresh failed", map[string]any{"error": err.Error()})
		}
	}
	return ackMessage(ack), nil
}

// UploadDocuments uploads local files into collection. A zero chunkSize
// uses DefaultChunkSize.
func (m *DocumentManager) UploadDocuments(ctx context.Context, collection string, chunkSize int, paths []string) (string, error) {
	chunkSize = chunkOrDefault(chunkSize)
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			files = append(files, p)
		}
	}

	verr := domain.NewValidationError(documentsEntity)
	if len(files) == 0 {
		verr.AddError("select at least one file to upload")
	}
	if strings.TrimSpace(collection) == "" {
		verr.AddError("a collection is required")
	}
	checkChunkSize(verr, chunkSize)
	if verr.HasErrors() {
		verr.Cause = domain.ErrInvalidConfiguration
		return "", verr
	}

	ack, err := m.gateway.UploadDocuments(ctx, domain.UploadDocumentsRequest{
		Files:      files,
		Collection: collection,
		ChunkSize:  chunkSize,
	})
	if err != nil {
		return "", fmt.Errorf("upload documents: %w", err)
	}
	m.logger.Info("documents", "upload started", map[string]any{
		"collection": collection,
		"files":      len(files),
		"chunk_size": chunkSize,
	})
	return ackMessage(ack), nil
}

// ProcessDirectory starts ingestion of a directory on the backend host.
// collection may be empty, in which case the backend picks its default.
func (m *DocumentManager) ProcessDirectory(ctx context.Context, directory string, chunkSize int, collection string) (string, error) {
	chunkSize = chunkOrDefault(chunkSize)
	directory = strings.TrimSpace(directory)

	verr := domain.NewValidationError(documentsEntity)
	if directory == "" {
		verr.AddError("a directory path is required")
	}
	checkChunkSize(verr, chunkSize)
	if verr.HasErrors() {
		verr.Cause = domain.ErrInvalidConfiguration
		return "", verr
	}

	ack, err := m.gateway.ProcessDocuments(ctx, domain.ProcessDocumentsRequest{
		Directory:  directory,
		ChunkSize:  chunkSize,
		Collection: strings.TrimSpace(collection),
	})
	if err != nil {
		return "", fmt.Errorf("process directory %q: %w", directory, err)
	}
	m.logger.Info("documents", "processing started", map[string]any{
		"directory":  directory,
		"collection": collection,
		"chunk_size": chunkSize,
	})
	return ackMessage(ack), nil
}

func chunkOrDefault(n int) int {
	if n == 0 {
		return DefaultChunkSize
	}
	return n
}

func checkChunkSize(verr *domain.ValidationError, n int) {
	if n < MinChunkSize || n > MaxChunkSize {
		verr.AddError(fmt.Sprintf("chunk size must be between %d and %d, got %d", MinChunkSize, MaxChunkSize, n))
	}
}

func ackMessage(ack *ports.AckResponse) string {
	if ack == nil {
		return ""
	}
	return ack.Message
}
