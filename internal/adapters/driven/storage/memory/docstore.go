package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunkSets map[string]domain.ChunkSet
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunkSets: make(map[string]domain.ChunkSet),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *doc
	stored.Pages = append([]domain.Page(nil), doc.Pages...)
	s.documents[doc.ID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteDocument removes a document and its chunk set.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunkSets, id)
	return nil
}

// ReplaceChunks replaces the document's chunk set.
func (s *DocumentStore) ReplaceChunks(_ context.Context, set *domain.ChunkSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[set.DocumentID]; !ok {
		return domain.ErrNotFound
	}
	stored := *set
	stored.Chunks = append([]domain.Chunk(nil), set.Chunks...)
	s.chunkSets[set.DocumentID] = stored
	return nil
}

// GetChunkSet returns the document's current chunk set.
func (s *DocumentStore) GetChunkSet(_ context.Context, documentID string) (*domain.ChunkSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.chunkSets[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	set.Chunks = append([]domain.Chunk(nil), set.Chunks...)
	return &set, nil
}
