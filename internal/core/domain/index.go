package domain

import "time"

// Embedding is the vector for one chunk and the model that produced it.
type Embedding struct {
	// Model identifies the embedding model.
	Model string

	// Vector has exactly Dimensions elements for its model.
	Vector []float32
}

// IndexedChunk pairs a chunk with its embedding.
type IndexedChunk struct {
	Chunk     Chunk
	Embedding Embedding
}

// IndexEntry is the complete vector index for one document.
// All embeddings share Model and Dimensions. Entries are rebuilt and
// replaced as a whole; they are never patched in place.
type IndexEntry struct {
	// DocumentID identifies the owning document.
	DocumentID string

	// Model is the embedding model used for every entry.
	Model string

	// Dimensions is the vector size for every entry.
	Dimensions int

	// ChunkSetFingerprint identifies the chunk set the entry was built from.
	ChunkSetFingerprint string

	// Entries are ordered by chunk index.
	Entries []IndexedChunk

	// BuiltAt is when the entry was built.
	BuiltAt time.Time
}

// Len returns the number of embedded chunks.
func (e *IndexEntry) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Entries)
}

// Matches reports whether the entry was built from the given chunk set
// with the given model and dimension.
func (e *IndexEntry) Matches(fingerprint, model string, dimensions int) bool {
	if e == nil {
		return false
	}
	return e.ChunkSetFingerprint == fingerprint && e.Model == model && e.Dimensions == dimensions
}

// IndexStatus summarises how far a document has been processed.
type IndexStatus struct {
	DocumentID string

	// Chunked reports whether a chunk set exists.
	Chunked bool

	// ChunkCount is the number of chunks in the current set.
	ChunkCount int

	// Embedded is the number of chunks in the current index entry.
	Embedded int

	// Model is the embedding model of the current index entry.
	Model string

	// Stale reports that the index no longer matches the chunk set or the
	// configured embedding model and will be rebuilt on the next embed.
	Stale bool
}
