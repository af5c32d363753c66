// Package openai provides an embedding service adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1/"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1/).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions overrides the default dimension for the model.
	// Only applicable to text-embedding-3-* models.
	Dimensions int
}

// EmbeddingService generates embeddings using the OpenAI API.
// Retries are left to the caller, so the client is built with none.
type EmbeddingService struct {
	client     openai.Client
	model      string
	dimensions int
	reduced    bool
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	native := domain.EmbeddingDimensions()[cfg.Model]
	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = native
	}
	if dimensions == 0 {
		dimensions = 1536
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	)

	return &EmbeddingService{
		client:     client,
		model:      cfg.Model,
		dimensions: dimensions,
		reduced:    dimensions != native && supportsDimensions(cfg.Model),
	}, nil
}

func supportsDimensions(model string) bool {
	return model == "text-embedding-3-small" || model == "text-embedding-3-large"
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
// Results are ordered to match texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(s.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if s.reduced {
		params.Dimensions = openai.Int(int64(s.dimensions))
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range: %w", data.Index, domain.ErrPermanent)
		}
		embedding := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			embedding[i] = float32(v)
		}
		embeddings[data.Index] = embedding
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}

	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
// This is a lightweight check that does not run inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// classify marks client errors that retrying cannot fix as permanent.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusUnprocessableEntity:
			return fmt.Errorf("openai: %w: %w", domain.ErrPermanent, err)
		}
	}
	return fmt.Errorf("openai: %w", err)
}
