// Package catalog provides a keyword DocumentCatalog backed by a bleve index.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// Ensure Catalog implements the interface.
var _ driven.DocumentCatalog = (*Catalog)(nil)

// DefaultLimit is used when Find is called without a positive limit.
const DefaultLimit = 10

// batchSize is how many documents Rebuild submits per bleve batch.
const batchSize = 100

// catalogDoc is the indexed form of a document.
type catalogDoc struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Catalog indexes whole documents for keyword lookup.
type Catalog struct {
	mu    sync.RWMutex
	index bleve.Index
}

// New opens the catalog at path, creating it if missing.
// An empty path keeps the index in memory.
func New(path string) (*Catalog, error) {
	mapping := bleve.NewIndexMapping()

	if path == "" {
		index, err := bleve.NewMemOnly(mapping)
		if err != nil {
			return nil, fmt.Errorf("creating in-memory catalog: %w", err)
		}
		return &Catalog{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, err := bleve.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening catalog %s: %w", path, err)
		}
		return &Catalog{index: index}, nil
	}

	index, err := bleve.New(path, mapping)
	if err != nil {
		return nil, fmt.Errorf("creating catalog %s: %w", path, err)
	}
	return &Catalog{index: index}, nil
}

// Index adds or replaces a document.
func (c *Catalog) Index(_ context.Context, doc *domain.Document) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.index.Index(doc.ID, toCatalogDoc(doc)); err != nil {
		return fmt.Errorf("indexing document %s: %w", doc.ID, err)
	}
	return nil
}

// Remove deletes a document from the catalog.
func (c *Catalog) Remove(_ context.Context, documentID string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.index.Delete(documentID); err != nil {
		return fmt.Errorf("removing document %s: %w", documentID, err)
	}
	return nil
}

// Find returns matching document IDs, best match first.
func (c *Catalog) Find(ctx context.Context, query string, limit int) ([]driven.CatalogHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = limit

	c.mu.RLock()
	defer c.mu.RUnlock()
	result, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("searching catalog: %w", err)
	}

	hits := make([]driven.CatalogHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, driven.CatalogHit{DocumentID: hit.ID, Score: hit.Score})
	}
	logger.Debug("catalog: %q matched %d of %d documents", query, len(hits), result.Total)
	return hits, nil
}

// Count returns the number of indexed documents.
func (c *Catalog) Count() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.DocCount()
}

// Rebuild indexes docs in batches, replacing any existing entries with the
// same IDs. It is used to populate a fresh catalog from the document store.
func (c *Catalog) Rebuild(ctx context.Context, docs []domain.Document) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	batch := c.index.NewBatch()
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(docs[i].ID, toCatalogDoc(&docs[i])); err != nil {
			return fmt.Errorf("batching document %s: %w", docs[i].ID, err)
		}
		if batch.Size() >= batchSize {
			if err := c.index.Batch(batch); err != nil {
				return fmt.Errorf("indexing batch: %w", err)
			}
			batch = c.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := c.index.Batch(batch); err != nil {
			return fmt.Errorf("indexing final batch: %w", err)
		}
	}
	logger.Info("catalog: indexed %d documents", len(docs))
	return nil
}

// Close releases the index.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		return nil
	}
	err := c.index.Close()
	if errors.Is(err, bleve.ErrorIndexClosed) {
		err = nil
	}
	c.index = nil
	return err
}

func toCatalogDoc(doc *domain.Document) catalogDoc {
	return catalogDoc{Title: doc.Title, Filename: doc.Filename, Content: doc.Content}
}
