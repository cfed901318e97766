package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
	"github.com/ahrav/ragconsole/internal/testutils"
)

func TestDocumentManager_CreateCollectionRefreshesCatalog(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})
	docs := s.Documents()

	msg, err := docs.CreateCollection(context.Background(), "  papers ")
	require.NoError(t, err)
	assert.Equal(t, "accepted", msg)

	require.Len(t, gw.CreateRequests, 1)
	assert.Equal(t, "papers", gw.CreateRequests[0].Name)
	assert.Contains(t, s.Snapshot().Collections.Collections, "papers")
	assert.Equal(t, "docs", s.Snapshot().Collection, "refresh keeps the active collection")

	_, err = s.RequestCollectionChange("papers")
	assert.NoError(t, err)
}

func TestDocumentManager_FailedRefreshKeepsCatalog(t *testing.T) {
	s, gw := newLoadedSession(t, SessionOptions{})
	gw.CollectionsErr = ports.NewGatewayError("list_collections", ports.ErrorKindNetwork, 0, "", ports.ErrServiceUnavailable)

	msg, err := s.Documents().CreateCollection(context.Background(), "papers")
	require.NoError(t, err)
	assert.Equal(t, "accepted", msg)

	cat := s.Snapshot().Collections
	assert.False(t, cat.Failed)
	assert.Equal(t, []string{"docs", "notes"}, cat.Collections)
	assert.NotContains(t, cat.Collections, domain.SentinelCollectionsUnavailable)
}

func TestDocumentManager_Validation(t *testing.T) {
	tests := []struct {
		name    string
		run     func(m *DocumentManager) error
		wantMsg string
	}{
		{
			name: "blank collection name",
			run: func(m *DocumentManager) error {
				_, err := m.CreateCollection(context.Background(), " ")
				return err
			},
			wantMsg: "collection name is required",
		},
		{
			name: "no files",
			run: func(m *DocumentManager) error {
				_, err := m.UploadDocuments(context.Background(), "docs", 0, []string{" "})
				return err
			},
			wantMsg: "select at least one file to upload",
		},
		{
			name: "chunk size too small",
			run: func(m *DocumentManager) error {
				_, err := m.UploadDocuments(context.Background(), "docs", 128, []string{"a.pdf"})
				return err
			},
			wantMsg: "chunk size must be between 256 and 4096, got 128",
		},
		{
			name: "missing directory",
			run: func(m *DocumentManager) error {
				_, err := m.ProcessDirectory(context.Background(), "", 1024, "")
				return err
			},
			wantMsg: "a directory path is required",
		},
		{
			name: "chunk size too large",
			run: func(m *DocumentManager) error {
				_, err := m.ProcessDirectory(context.Background(), "/data", 5000, "")
				return err
			},
			wantMsg: "chunk size must be between 256 and 4096, got 5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := testutils.NewMockGateway()
			m := NewDocumentManager(gw, nil, nil)

			err := tt.run(m)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Errors, tt.wantMsg)
			assert.Empty(t, gw.UploadRequests)
			assert.Empty(t, gw.ProcessRequests)
			assert.Empty(t, gw.CreateRequests)
		})
	}
}

func TestDocumentManager_StartsJobs(t *testing.T) {
	gw := testutils.NewMockGateway()
	m := NewDocumentManager(gw, nil, nil)

	msg, err := m.UploadDocuments(context.Background(), "docs", 0, []string{"a.pdf", "", "b.txt"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", msg)
	require.Len(t, gw.UploadRequests, 1)
	assert.Equal(t, domain.UploadDocumentsRequest{
		Files:      []string{"a.pdf", "b.txt"},
		Collection: "docs",
		ChunkSize:  DefaultChunkSize,
	}, gw.UploadRequests[0])

	_, err = m.ProcessDirectory(context.Background(), " /srv/docs ", 2048, "notes")
	require.NoError(t, err)
	require.Len(t, gw.ProcessRequests, 1)
	assert.Equal(t, domain.ProcessDocumentsRequest{
		Directory:  "/srv/docs",
		ChunkSize:  2048,
		Collection: "notes",
	}, gw.ProcessRequests[0])
}

func TestDocumentManager_ServerDetailSurfaces(t *testing.T) {
	gw := testutils.NewMockGateway()
	gw.ProcessErr = ports.NewGatewayError("process_documents", ports.ErrorKindServer, 404, "Directory not found", ports.ErrBadStatus)
	m := NewDocumentManager(gw, nil, nil)

	_, err := m.ProcessDirectory(context.Background(), "/missing", 1024, "")
	require.Error(t, err)
	assert.Equal(t, "Server error (404): Directory not found", Classify(err).Message)
}
