package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// RetrievalService ranks a document's chunks against a query.
// It only reads the index store and never takes document locks.
type RetrievalService struct {
	indexStore driven.IndexStore
	embedder   driven.EmbeddingService
	gate       *CapabilityGate
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(indexStore driven.IndexStore, embedder driven.EmbeddingService, gate *CapabilityGate) *RetrievalService {
	return &RetrievalService{
		indexStore: indexStore,
		embedder:   embedder,
		gate:       gate,
	}
}

// Retrieve returns up to topK chunks ordered by descending cosine similarity,
// ties broken by ascending chunk index. Sources are labelled S1, S2, ... in
// rank order.
func (s *RetrievalService) Retrieve(
	ctx context.Context, documentID, queryText string, topK int,
) ([]domain.RetrievedSource, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, topK)
	}
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidArgument)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	entry, err := s.indexStore.Load(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && entry.Len() == 0) {
		return nil, fmt.Errorf("%s: %w", documentID, domain.ErrEmptyIndex)
	}
	if err != nil {
		return nil, err
	}

	model, dims := s.embedder.ModelName(), s.embedder.Dimensions()
	if entry.Model != model || entry.Dimensions != dims {
		return nil, fmt.Errorf("%w: index built with %s/%d, query model is %s/%d",
			domain.ErrIndexModelMismatch, entry.Model, entry.Dimensions, model, dims)
	}

	var query []float32
	err = s.gate.Do(ctx, "embed query", func(ctx context.Context) error {
		v, err := s.embedder.Embed(ctx, queryText)
		if err != nil {
			return err
		}
		query = v
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}
	if len(query) != entry.Dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, index has %d",
			domain.ErrIndexModelMismatch, len(query), entry.Dimensions)
	}

	sources := rank(entry, query)
	if len(sources) > topK {
		sources = sources[:topK]
	}
	for i := range sources {
		sources[i].Ref = domain.SourceRef(i)
	}

	logger.Debug("Retrieved %d of %d chunks for %s", len(sources), entry.Len(), documentID)
	for _, src := range sources {
		logger.Debug("  %s chunk %d score=%.4f", src.Ref, src.Chunk.Index, src.Score)
	}
	return sources, nil
}

// rank scores every entry against the query vector.
func rank(entry *domain.IndexEntry, query []float32) []domain.RetrievedSource {
	sources := make([]domain.RetrievedSource, len(entry.Entries))
	for i, e := range entry.Entries {
		sources[i] = domain.RetrievedSource{
			Chunk: e.Chunk,
			Score: cosine(query, e.Embedding.Vector),
		}
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Score != sources[j].Score {
			return sources[i].Score > sources[j].Score
		}
		return sources[i].Chunk.Index < sources[j].Chunk.Index
	})
	return sources
}
