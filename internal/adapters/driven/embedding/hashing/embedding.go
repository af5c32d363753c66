// Package hashing provides a deterministic, offline embedding service.
//
// Each lowercase word token is hashed with BLAKE2b into one of a fixed
// number of buckets and counted; the count vector is L2-normalised. Texts
// sharing words get a positive cosine similarity, which is enough for
// grounded retrieval over a single document without a model server.
package hashing

import (
	"context"
	"encoding/binary"
	"math"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hashing-blake2b"
	DefaultDimensions = 1536
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9']+`)

// Config holds configuration for the hashing embedding service.
type Config struct {
	// Dimensions is the number of hash buckets (default: 1536).
	Dimensions int
}

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a new hashing embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: cfg.Dimensions}
}

// Tokenize splits text into lowercase word tokens.
func Tokenize(text string) []string {
	tokens := tokenPattern.FindAllString(text, -1)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// Embed generates a vector embedding for the given text.
// Text without word tokens yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counts := make([]float64, s.dimensions)
	for _, tok := range Tokenize(text) {
		counts[s.bucket(tok)]++
	}

	var norm float64
	for _, c := range counts {
		norm += c * c
	}
	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i, c := range counts {
		vec[i] = float32(c / norm)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = v
	}
	return embeddings, nil
}

// bucket maps a token to its vector index using an 8-byte BLAKE2b digest.
func (s *EmbeddingService) bucket(token string) int {
	h, _ := blake2b.New(8, nil) // error only for invalid sizes or keys
	h.Write([]byte(token))
	sum := binary.LittleEndian.Uint64(h.Sum(nil))
	return int(sum % uint64(s.dimensions))
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model.
func (s *EmbeddingService) ModelName() string {
	return DefaultModel
}

// Ping always succeeds; the service has no remote dependency.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
