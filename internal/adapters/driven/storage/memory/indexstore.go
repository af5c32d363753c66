package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore.
// Each document's entry sits behind an atomic pointer, so Load never blocks
// on a concurrent Swap and always sees a complete entry.
type IndexStore struct {
	entries sync.Map // documentID -> *atomic.Pointer[domain.IndexEntry]
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore() *IndexStore {
	return &IndexStore{}
}

// Load returns the current entry for a document.
// The returned entry is shared and must not be modified.
func (s *IndexStore) Load(_ context.Context, documentID string) (*domain.IndexEntry, error) {
	v, ok := s.entries.Load(documentID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry := v.(*atomic.Pointer[domain.IndexEntry]).Load()
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

// Swap publishes a fully built entry in a single atomic store.
func (s *IndexStore) Swap(_ context.Context, entry *domain.IndexEntry) error {
	if entry == nil || entry.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	v, _ := s.entries.LoadOrStore(entry.DocumentID, new(atomic.Pointer[domain.IndexEntry]))
	v.(*atomic.Pointer[domain.IndexEntry]).Store(entry)
	return nil
}

// Delete removes the document's entry.
func (s *IndexStore) Delete(_ context.Context, documentID string) error {
	s.entries.Delete(documentID)
	return nil
}
