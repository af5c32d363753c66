package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid document URI", "docdetective://documents/doc-456", "doc-456"},
		{"chunks URI", "docdetective://documents/doc-456/chunks", ""},
		{"invalid prefix", "file://documents/doc-456", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

func TestExtractChunksDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid chunks URI", "docdetective://documents/doc-456/chunks", "doc-456"},
		{"document URI", "docdetective://documents/doc-456", ""},
		{"missing ID", "docdetective://documents//chunks", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractChunksDocumentID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document text", func(t *testing.T) {
		docs := &mockDocumentService{document: &domain.Document{ID: "doc-1", Content: "The capital of France is Paris."}}
		server := newTestServer(&mockAnswerService{}, docs)

		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("docdetective://documents/doc-1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "The capital of France is Paris.", result.Contents[0].Text)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
	})

	t.Run("invalid URI is not found", func(t *testing.T) {
		server := newTestServer(&mockAnswerService{}, &mockDocumentService{})

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("file://x"))

		require.Error(t, err)
	})

	t.Run("missing document is not found", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotFound}
		server := newTestServer(&mockAnswerService{}, docs)

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("docdetective://documents/nope"))

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("store errors are wrapped", func(t *testing.T) {
		docs := &mockDocumentService{err: errors.New("disk")}
		server := newTestServer(&mockAnswerService{}, docs)

		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("docdetective://documents/doc-1"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting document")
	})
}

func TestServer_handleDocumentChunksResource(t *testing.T) {
	ctx := context.Background()
	page := 2

	t.Run("renders chunks", func(t *testing.T) {
		docs := &mockDocumentService{chunks: &domain.ChunkSet{
			DocumentID: "doc-1",
			Chunks: []domain.Chunk{
				{ID: "doc-1:0", Start: 0, End: 5, Content: "Hello"},
				{ID: "doc-1:1", Start: 5, End: 11, Page: &page, Content: " world"},
			},
		}}
		server := newTestServer(&mockAnswerService{}, docs)

		result, err := server.handleDocumentChunksResource(ctx, makeReadResourceRequest("docdetective://documents/doc-1/chunks"))

		require.NoError(t, err)
		text := result.Contents[0].Text
		assert.Contains(t, text, "--- doc-1:0 [0:5]\nHello\n")
		assert.Contains(t, text, "--- doc-1:1 [5:11] page 2\n world\n")
	})

	t.Run("unchunked document is not found", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotChunked}
		server := newTestServer(&mockAnswerService{}, docs)

		_, err := server.handleDocumentChunksResource(ctx, makeReadResourceRequest("docdetective://documents/doc-1/chunks"))

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotChunked)
	})
}
