package driving

import (
	"context"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// DocumentService manages ingested documents and their chunking.
type DocumentService interface {
	// Ingest extracts text from an uploaded file and stores it as a new document.
	Ingest(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)

	// AddText stores already extracted text as a new document.
	// Pages may be nil when the source has no page boundaries.
	AddText(ctx context.Context, title, text string, pages []domain.Page) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document with its chunks and index.
	Delete(ctx context.Context, documentID string) error

	// Find returns documents whose title or content match a keyword query.
	Find(ctx context.Context, query string, limit int) ([]domain.Document, error)

	// Chunk splits the document with the current chunker settings and
	// replaces its chunk set. Unchanged input is a no-op.
	Chunk(ctx context.Context, documentID string) (*domain.ChunkSet, error)

	// Chunks returns the document's current chunk set.
	Chunks(ctx context.Context, documentID string) (*domain.ChunkSet, error)
}

// IndexService builds and inspects per-document vector indexes.
type IndexService interface {
	// Embed builds the document's index from its chunk set and swaps it in.
	// Returns the existing entry unchanged when nothing has changed.
	Embed(ctx context.Context, documentID string) (*domain.IndexEntry, error)

	// Status reports how far the document has been processed.
	Status(ctx context.Context, documentID string) (*domain.IndexStatus, error)
}

// AnswerService answers questions about a document.
type AnswerService interface {
	// Answer retrieves evidence, synthesizes a cited answer and scores it.
	Answer(ctx context.Context, query domain.Query) (*domain.AnswerResult, error)

	// Retrieve returns the top-k chunks for a query, best first.
	Retrieve(ctx context.Context, documentID, queryText string, topK int) ([]domain.RetrievedSource, error)
}
