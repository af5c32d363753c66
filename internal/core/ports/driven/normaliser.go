package driven

import (
	"context"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// Normaliser extracts text from an uploaded file.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the document text and, where the format has them,
	// page boundaries.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Note: Normalisation only produces a Document with Content and Pages.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}
