package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService builds per-document vector indexes.
type IndexService struct {
	docStore   driven.DocumentStore
	indexStore driven.IndexStore
	embedder   driven.EmbeddingService
	gate       *CapabilityGate
	settings   SettingsSource
	locks      *DocumentLocks
	now        func() time.Time
}

// NewIndexService creates a new index service.
func NewIndexService(
	docStore driven.DocumentStore,
	indexStore driven.IndexStore,
	embedder driven.EmbeddingService,
	gate *CapabilityGate,
	settings SettingsSource,
	locks *DocumentLocks,
) *IndexService {
	if locks == nil {
		locks = NewDocumentLocks()
	}
	return &IndexService{
		docStore:   docStore,
		indexStore: indexStore,
		embedder:   embedder,
		gate:       gate,
		settings:   settings,
		locks:      locks,
		now:        time.Now,
	}
}

// Embed builds the document's index from its current chunk set and swaps
// it in. The new entry is fully built before the swap; if any batch fails
// the previous entry stays current. When the current entry already matches
// the chunk set and model it is returned without calling the embedder.
func (s *IndexService) Embed(ctx context.Context, documentID string) (*domain.IndexEntry, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	unlock := s.locks.Lock(documentID)
	defer unlock()

	set, err := s.docStore.GetChunkSet(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", documentID, domain.ErrNotChunked)
	}
	if err != nil {
		return nil, err
	}
	if len(set.Chunks) == 0 {
		return nil, fmt.Errorf("%s has an empty chunk set: %w", documentID, domain.ErrNotChunked)
	}

	model, dims := s.embedder.ModelName(), s.embedder.Dimensions()
	current, err := s.indexStore.Load(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if current.Matches(set.Fingerprint, model, dims) {
		logger.Debug("Index for %s is current (%d entries, %s)", documentID, current.Len(), model)
		return current, nil
	}

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger.Section("Embedding")
	start := time.Now()
	entry, err := s.build(ctx, set, settings, model, dims)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("embed %s: %w: %w", documentID, domain.ErrEmbeddingFailed, err)
	}

	if err := s.indexStore.Swap(ctx, entry); err != nil {
		return nil, fmt.Errorf("swap index: %w", err)
	}
	logger.Info("Embedded %d chunks of %s with %s in %v", entry.Len(), documentID, model, time.Since(start))
	return entry, nil
}

// build embeds every chunk of the set. Batches run concurrently up to the
// configured worker count; the first failure cancels the rest.
func (s *IndexService) build(
	ctx context.Context, set *domain.ChunkSet, settings *domain.AppSettings, model string, dims int,
) (*domain.IndexEntry, error) {
	batchSize := settings.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = len(set.Chunks)
	}
	workers := max(settings.Concurrency.EmbedWorkers, 1)

	vectors := make([][]float32, len(set.Chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for lo := 0; lo < len(set.Chunks); lo += batchSize {
		hi := min(lo+batchSize, len(set.Chunks))
		texts := make([]string, 0, hi-lo)
		for _, c := range set.Chunks[lo:hi] {
			texts = append(texts, c.Content)
		}

		g.Go(func() error {
			logger.Debug("Embedding chunks %d-%d", lo, hi-1)
			return s.gate.Do(gctx, "embed batch", func(ctx context.Context) error {
				batch, err := s.embedder.EmbedBatch(ctx, texts)
				if err != nil {
					return err
				}
				if len(batch) != len(texts) {
					return fmt.Errorf("%w: embedder returned %d vectors for %d texts",
						domain.ErrPermanent, len(batch), len(texts))
				}
				for i, v := range batch {
					if len(v) != dims {
						return fmt.Errorf("%w: vector for chunk %d has %d dimensions, want %d",
							domain.ErrPermanent, lo+i, len(v), dims)
					}
				}
				copy(vectors[lo:hi], batch)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entry := &domain.IndexEntry{
		DocumentID:          set.DocumentID,
		Model:               model,
		Dimensions:          dims,
		ChunkSetFingerprint: set.Fingerprint,
		Entries:             make([]domain.IndexedChunk, len(set.Chunks)),
		BuiltAt:             s.now(),
	}
	for i, c := range set.Chunks {
		entry.Entries[i] = domain.IndexedChunk{
			Chunk:     c,
			Embedding: domain.Embedding{Model: model, Vector: vectors[i]},
		}
	}
	return entry, nil
}

// Status reports how far the document has been processed.
// It reads without taking the document lock.
func (s *IndexService) Status(ctx context.Context, documentID string) (*domain.IndexStatus, error) {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	status := &domain.IndexStatus{DocumentID: documentID, Stale: true}

	set, err := s.docStore.GetChunkSet(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	status.Chunked = true
	status.ChunkCount = len(set.Chunks)

	entry, err := s.indexStore.Load(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if entry != nil {
		status.Embedded = entry.Len()
		status.Model = entry.Model
	}

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	current := set.Settings == settings.Chunker
	if s.embedder != nil {
		current = current && entry.Matches(set.Fingerprint, s.embedder.ModelName(), s.embedder.Dimensions())
	} else {
		current = current && entry.Len() > 0 && entry.ChunkSetFingerprint == set.Fingerprint
	}
	status.Stale = !current
	return status, nil
}
