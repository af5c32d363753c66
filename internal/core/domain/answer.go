package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Query is a question scoped to one document.
type Query struct {
	// DocumentID is the document to answer from.
	DocumentID string

	// Text is the natural-language question.
	Text string

	// TopK is the number of chunks to retrieve.
	TopK int

	// MaxSources caps how many retrieved chunks are offered as evidence.
	MaxSources int
}

// RetrievedSource is a chunk ranked against a query.
type RetrievedSource struct {
	// Ref is the short display label, S1 for the best match.
	Ref string

	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the raw cosine similarity against the query.
	Score float64
}

// SourceRef returns the reference label for the source at the 0-based rank.
func SourceRef(rank int) string {
	return fmt.Sprintf("S%d", rank+1)
}

// Evidence is one chunk offered to the text-generation capability.
type Evidence struct {
	Ref     string
	ChunkID string
	Text    string
}

// Generation is the raw output of the text-generation capability.
type Generation struct {
	// Text is the answer with inline reference tags such as [S1].
	Text string

	// Insufficient reports that no answer is derivable from the evidence.
	Insufficient bool
}

// Citation links an answer to a chunk from the evidence set.
type Citation struct {
	Ref        string
	ChunkID    string
	DocumentID string
	ChunkIndex int
}

// ConfidenceLabel is the discrete confidence band of an answer.
type ConfidenceLabel string

// Confidence bands, from most to least supported.
const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

// String returns the string representation.
func (l ConfidenceLabel) String() string {
	return string(l)
}

// IsValid returns true if the label is one of the known bands.
func (l ConfidenceLabel) IsValid() bool {
	switch l {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// Confidence is a label plus the values it was derived from.
type Confidence struct {
	Label    ConfidenceLabel
	Strength float64
	Coverage float64
}

// InsufficientEvidenceAnswer is returned when the evidence cannot answer the query.
const InsufficientEvidenceAnswer = "Insufficient evidence in the document to answer this question."

// Answer is the synthesized response to a query.
type Answer struct {
	// Text is the answer with reference tags removed.
	Text string

	// Citations are unique, ordered by first appearance, and always drawn
	// from the evidence set.
	Citations []Citation

	// Insufficient reports the canonical insufficient-evidence answer.
	Insufficient bool

	// EvidenceCount is how many chunks were offered as evidence.
	EvidenceCount int

	// Confidence is filled in by the scorer.
	Confidence Confidence
}

// SourceView is a retrieved source prepared for display.
type SourceView struct {
	Ref        string  `json:"ref"`
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Page       *int    `json:"page"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
}

// View prepares the source for display with a preview of at most
// previewChars characters.
func (s RetrievedSource) View(previewChars int) SourceView {
	return SourceView{
		Ref:        s.Ref,
		ChunkID:    s.Chunk.ID,
		DocumentID: s.Chunk.DocumentID,
		ChunkIndex: s.Chunk.Index,
		Page:       s.Chunk.Page,
		Score:      s.Score,
		Preview:    Preview(s.Chunk.Content, previewChars),
	}
}

// Preview collapses whitespace in text and cuts it to at most n characters,
// marking a cut with an ellipsis. A non-positive n returns the whole text.
func Preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:n]), " ") + "…"
}

// CitationView is a citation prepared for display.
type CitationView struct {
	Ref        string `json:"ref"`
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
}

// AnswerResult is the response of the answer operation.
type AnswerResult struct {
	AnswerText      string          `json:"answer_text"`
	ConfidenceLabel ConfidenceLabel `json:"confidence_label"`
	Strength        float64         `json:"strength"`
	Coverage        float64         `json:"coverage"`
	Citations       []CitationView  `json:"citations"`
	Sources         []SourceView    `json:"sources"`
}

// AnswerRecord is an audit entry for one answered query.
type AnswerRecord struct {
	ID              string
	DocumentID      string
	Query           string
	AnswerText      string
	ConfidenceLabel ConfidenceLabel
	CitedChunkIDs   []string
	Latency         time.Duration
	CreatedAt       time.Time
}
