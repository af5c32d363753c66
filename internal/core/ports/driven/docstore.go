package driven

import (
	"context"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// DocumentStore persists documents and their chunk sets.
type DocumentStore interface {
	// SaveDocument stores a document. Documents are immutable; saving an
	// existing ID overwrites it.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if the document does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunk set.
	DeleteDocument(ctx context.Context, id string) error

	// ReplaceChunks atomically replaces the document's chunk set.
	ReplaceChunks(ctx context.Context, set *domain.ChunkSet) error

	// GetChunkSet returns the document's current chunk set.
	// Returns domain.ErrNotFound if the document has never been chunked.
	GetChunkSet(ctx context.Context, documentID string) (*domain.ChunkSet, error)
}
