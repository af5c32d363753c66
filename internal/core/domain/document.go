package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document represents an ingested document and its extracted text.
// Documents are immutable once ingested; re-ingesting the same file creates
// a new document with a new identity.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title, usually derived from the filename.
	Title string

	// Filename is the original file name supplied at upload time.
	Filename string

	// ContentType is the MIME type of the original file.
	ContentType string

	// SizeBytes is the size of the original file.
	SizeBytes int64

	// Content is the full extracted text.
	Content string

	// Pages holds page boundaries within Content, in ascending offset order.
	// Nil when the source format has no notion of pages.
	Pages []Page

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// Page marks where a page begins within a document's extracted text.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Offset is the byte offset in Document.Content where the page starts.
	Offset int
}

// PageAt returns the page number containing the given byte offset,
// or nil when the document carries no page boundaries.
func (d *Document) PageAt(offset int) *int {
	if len(d.Pages) == 0 {
		return nil
	}
	number := d.Pages[0].Number
	for _, p := range d.Pages {
		if p.Offset > offset {
			break
		}
		number = p.Number
	}
	return &number
}

// Chunk is a contiguous span of a document's text and the smallest
// retrievable unit.
type Chunk struct {
	// ID is stable for a given document and index.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the 0-based position of the chunk in document order.
	Index int

	// Start is the byte offset where the chunk begins in Document.Content.
	Start int

	// End is the exclusive byte offset where the chunk ends.
	End int

	// Page is the page containing Start, if the document has pages.
	Page *int

	// Content is the chunk text, equal to Document.Content[Start:End].
	Content string
}

// ChunkID returns the stable identifier for the chunk at index within a document.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// ChunkSet is the complete chunking of one document under one configuration.
// A chunk set is always replaced wholesale, never merged.
type ChunkSet struct {
	// DocumentID identifies the owning document.
	DocumentID string

	// Settings are the chunker settings that produced the chunks.
	Settings ChunkerSettings

	// Fingerprint identifies the document state this set was built from.
	Fingerprint string

	// Chunks are ordered by Index.
	Chunks []Chunk

	// CreatedAt is when the set was produced.
	CreatedAt time.Time
}

// FingerprintChunks identifies a chunking result. The same document chunked
// with the same settings always yields the same fingerprint.
func FingerprintChunks(settings ChunkerSettings, chunks []Chunk) string {
	h := sha256.New()
	fmt.Fprintf(h, "max=%d overlap=%d boundary=%t tol=%d\n",
		settings.MaxChunkChars, settings.OverlapChars, settings.BoundaryPreference, settings.BoundaryTolerance)
	for _, c := range chunks {
		fmt.Fprintf(h, "%s %d %d %d\n", c.ID, c.Start, c.End, len(c.Content))
		h.Write([]byte(c.Content))
	}
	return hex.EncodeToString(h.Sum(nil))
}
