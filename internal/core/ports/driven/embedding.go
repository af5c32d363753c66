// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// Embeddings must be deterministic per (text, model) for a given service.
//
// Note: This is separate from IndexStore which persists vectors.
// EmbeddingService generates vectors; IndexStore stores them.
//
// Implementations may include:
//   - Built-in token hashing (offline, deterministic)
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This is determined by the model and must match every vector in an index.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// This is used at startup to verify connectivity.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
