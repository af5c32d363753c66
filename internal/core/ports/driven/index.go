package driven

import (
	"context"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// IndexStore holds one vector index entry per document.
//
// Readers see either the previous entry or the new one, never a mix.
// Implementations must make Swap a single visible operation.
type IndexStore interface {
	// Load returns the current entry for a document.
	// Returns domain.ErrNotFound if the document has no entry.
	Load(ctx context.Context, documentID string) (*domain.IndexEntry, error)

	// Swap replaces the document's entry with a fully built one.
	// On error the previous entry remains current.
	Swap(ctx context.Context, entry *domain.IndexEntry) error

	// Delete removes the document's entry.
	Delete(ctx context.Context, documentID string) error
}

// AnswerLog records answered queries for auditing and evaluation.
type AnswerLog interface {
	// Record appends an answer record.
	Record(ctx context.Context, record domain.AnswerRecord) error

	// List returns the most recent records for a document, newest first.
	// An empty documentID lists records for all documents.
	List(ctx context.Context, documentID string, limit int) ([]domain.AnswerRecord, error)
}
