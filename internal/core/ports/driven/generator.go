package driven

import (
	"context"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// AnswerGenerator is the text-generation capability used for grounded answers.
//
// Implementations must answer only from the supplied evidence and tag every
// claim with the ref of the evidence supporting it, e.g. "Paris [S1].".
// When the evidence cannot answer the query they return a Generation with
// Insufficient set. Tags are untrusted; the caller validates them.
type AnswerGenerator interface {
	// Generate produces a tagged answer from ordered evidence.
	Generate(ctx context.Context, query string, evidence []domain.Evidence) (domain.Generation, error)

	// Name identifies the generator for logging and audit.
	Name() string
}

// DocumentCatalog is a keyword index over whole documents, used to find
// documents by title or content. It plays no part in answering.
type DocumentCatalog interface {
	// Index adds or replaces a document.
	Index(ctx context.Context, doc *domain.Document) error

	// Remove deletes a document from the catalog.
	Remove(ctx context.Context, documentID string) error

	// Find returns matching document IDs, best match first.
	Find(ctx context.Context, query string, limit int) ([]CatalogHit, error)

	// Close releases resources.
	Close() error
}

// CatalogHit is a document matched by the catalog.
type CatalogHit struct {
	DocumentID string
	Score      float64
}
