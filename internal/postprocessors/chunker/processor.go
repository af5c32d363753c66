// Package chunker provides a boundary-aware text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document content into overlapping chunks.
// Chunks end at a paragraph or sentence boundary when one lies within the
// tolerance window before the size limit, otherwise at the limit itself.
// It implements the PostProcessor interface.
type Processor struct {
	settings domain.ChunkerSettings
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.settings.MaxChunkChars = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.settings.OverlapChars = overlap
	}
}

// WithBoundaryPreference enables or disables splitting at sentence and
// paragraph boundaries.
func WithBoundaryPreference(prefer bool) Option {
	return func(p *Processor) {
		p.settings.BoundaryPreference = prefer
	}
}

// WithBoundaryTolerance sets how far back from the limit to look for a boundary.
func WithBoundaryTolerance(chars int) Option {
	return func(p *Processor) {
		p.settings.BoundaryTolerance = chars
	}
}

// WithSettings replaces all settings at once.
func WithSettings(s domain.ChunkerSettings) Option {
	return func(p *Processor) {
		p.settings = s
	}
}

// New creates a new chunker processor with the given options.
// Settings are validated when chunking, so invalid options surface as
// domain.ErrInvalidConfig from Process.
func New(opts ...Option) *Processor {
	p := &Processor{
		settings: domain.ChunkerSettings{
			MaxChunkChars:      DefaultChunkSize,
			OverlapChars:       DefaultChunkOverlap,
			BoundaryPreference: true,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Settings returns the processor's settings.
func (p *Processor) Settings() domain.ChunkerSettings {
	return p.settings
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := p.settings.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("document %s: %w", doc.ID, domain.ErrEmptyDocument)
	}

	content := doc.Content
	contentLen := len(content)
	step := p.settings.MaxChunkChars - p.settings.OverlapChars
	chunks := make([]domain.Chunk, 0, contentLen/step+1)

	start := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := contentLen
		if start+p.settings.MaxChunkChars < contentLen {
			end = p.cut(content, start)
		}

		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, index),
			DocumentID: doc.ID,
			Index:      index,
			Start:      start,
			End:        end,
			Page:       doc.PageAt(start),
			Content:    content[start:end],
		})

		if end == contentLen {
			break
		}
		start = nextStart(content, start, end, p.settings.OverlapChars)
	}

	return chunks, nil
}

// cut returns the end offset for a chunk starting at start when the
// remaining text exceeds the size limit.
func (p *Processor) cut(content string, start int) int {
	hard := start + p.settings.MaxChunkChars
	for hard > start && !utf8.RuneStart(content[hard]) {
		hard--
	}
	if hard == start {
		// A single rune is wider than the limit.
		hard = start + p.settings.MaxChunkChars
		for hard < len(content) && !utf8.RuneStart(content[hard]) {
			hard++
		}
		return hard
	}
	if !p.settings.BoundaryPreference {
		return hard
	}

	// Keep boundary splits past the overlap so every chunk advances.
	low := max(hard-p.settings.Tolerance(), start+p.settings.OverlapChars+1)
	if low >= hard {
		return hard
	}

	// Cut candidates are the offsets in [low, hard], both ends included.
	for i := hard; i >= low; i-- {
		if strings.HasSuffix(content[:i], "\n\n") {
			return i
		}
	}
	for i := hard; i >= low; i-- {
		if isSentenceEnd(content, i) {
			return i
		}
	}
	for i := hard; i >= low; i-- {
		if content[i-1] == '\n' {
			return i
		}
	}
	return hard
}

// isSentenceEnd reports whether offset i directly follows sentence
// punctuation and one whitespace character.
func isSentenceEnd(content string, i int) bool {
	if i < 2 || i > len(content) {
		return false
	}
	switch content[i-1] {
	case ' ', '\t', '\n', '\r':
	default:
		return false
	}
	switch content[i-2] {
	case '.', '!', '?':
		return true
	}
	return false
}

// nextStart returns where the chunk after [start,end) begins: overlap
// bytes before end, moved forward to a rune start and never at or before start.
func nextStart(content string, start, end, overlap int) int {
	next := end - overlap
	if next <= start {
		return end
	}
	for next < end && !utf8.RuneStart(content[next]) {
		next++
	}
	return next
}

// Reconstruct joins chunk spans in index order, skipping the overlapping
// prefix of each chunk. For chunks produced by Process it returns the
// original document text.
func Reconstruct(chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(chunks[0].Content)
	prevEnd := chunks[0].End
	for _, c := range chunks[1:] {
		skip := prevEnd - c.Start
		if skip < 0 || skip > len(c.Content) {
			skip = 0
		}
		b.WriteString(c.Content[skip:])
		prevEnd = c.End
	}
	return b.String()
}
