package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages documents and their chunk sets.
type DocumentService struct {
	docStore    driven.DocumentStore
	indexStore  driven.IndexStore
	normalisers driven.NormaliserRegistry
	pipelines   driven.PostProcessorFactory
	settings    SettingsSource
	locks       *DocumentLocks
	catalog     driven.DocumentCatalog
	now         func() time.Time
}

// NewDocumentService creates a new document service.
// The normaliser registry is optional; without it only AddText can create documents.
func NewDocumentService(
	docStore driven.DocumentStore,
	indexStore driven.IndexStore,
	normalisers driven.NormaliserRegistry,
	pipelines driven.PostProcessorFactory,
	settings SettingsSource,
	locks *DocumentLocks,
) *DocumentService {
	if locks == nil {
		locks = NewDocumentLocks()
	}
	return &DocumentService{
		docStore:    docStore,
		indexStore:  indexStore,
		normalisers: normalisers,
		pipelines:   pipelines,
		settings:    settings,
		locks:       locks,
		now:         time.Now,
	}
}

// SetCatalog sets the keyword catalog used by Find.
func (s *DocumentService) SetCatalog(catalog driven.DocumentCatalog) {
	s.catalog = catalog
}

// Ingest extracts text from an uploaded file and stores it as a new document.
func (s *DocumentService) Ingest(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if s.normalisers == nil {
		return nil, fmt.Errorf("%w: no normalisers configured", domain.ErrUnsupportedType)
	}
	if raw == nil || len(raw.Content) == 0 {
		return nil, fmt.Errorf("ingest: %w", domain.ErrEmptyDocument)
	}

	logger.Debug("Ingesting %s (%s, %d bytes)", raw.Filename, raw.MIMEType, len(raw.Content))
	result, err := s.normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.Filename, err)
	}

	doc := result.Document
	doc.Filename = raw.Filename
	if raw.MIMEType != "" {
		doc.ContentType = raw.MIMEType
	}
	doc.SizeBytes = int64(len(raw.Content))
	if doc.Title == "" {
		doc.Title = titleFromFilename(raw.Filename)
	}
	return s.create(ctx, doc)
}

// AddText stores already extracted text as a new document.
func (s *DocumentService) AddText(ctx context.Context, title, text string, pages []domain.Page) (*domain.Document, error) {
	doc := domain.Document{
		Title:       title,
		ContentType: "text/plain",
		SizeBytes:   int64(len(text)),
		Content:     text,
		Pages:       pages,
	}
	if doc.Title == "" {
		doc.Title = "Untitled"
	}
	return s.create(ctx, doc)
}

// create assigns identity and persists a new document.
func (s *DocumentService) create(ctx context.Context, doc domain.Document) (*domain.Document, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%s: %w", doc.Title, domain.ErrEmptyDocument)
	}

	doc.ID = uuid.New().String()
	doc.CreatedAt = s.now()

	if err := s.docStore.SaveDocument(ctx, &doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if s.catalog != nil {
		if err := s.catalog.Index(ctx, &doc); err != nil {
			// The catalog only serves Find, so the document stays usable.
			logger.Warn("catalog index %s: %v", doc.ID, err)
		}
	}

	logger.Info("Added document %s (%q, %d chars)", doc.ID, doc.Title, len(doc.Content))
	return &doc, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns all documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Delete removes a document with its chunks and index.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	unlock := s.locks.Lock(documentID)
	defer unlock()

	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}
	if s.indexStore != nil {
		if err := s.indexStore.Delete(ctx, documentID); err != nil {
			return fmt.Errorf("delete index: %w", err)
		}
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if s.catalog != nil {
		if err := s.catalog.Remove(ctx, documentID); err != nil {
			logger.Warn("catalog remove %s: %v", documentID, err)
		}
	}
	return nil
}

// Find returns documents whose title or content match a keyword query.
// Without a catalog it falls back to a case-insensitive substring scan.
func (s *DocumentService) Find(ctx context.Context, query string, limit int) ([]domain.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Document{}, nil
	}
	if limit <= 0 {
		limit = 20
	}

	if s.catalog == nil {
		return s.scan(ctx, query, limit)
	}

	hits, err := s.catalog.Find(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog find: %w", err)
	}
	docs := make([]domain.Document, 0, len(hits))
	for _, hit := range hits {
		doc, err := s.docStore.GetDocument(ctx, hit.DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("catalog hit %s has no document, skipping", hit.DocumentID)
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *DocumentService) scan(ctx context.Context, query string, limit int) ([]domain.Document, error) {
	all, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var docs []domain.Document
	for i := range all {
		if strings.Contains(strings.ToLower(all[i].Title), needle) ||
			strings.Contains(strings.ToLower(all[i].Content), needle) {
			docs = append(docs, all[i])
			if len(docs) == limit {
				break
			}
		}
	}
	return docs, nil
}

// Chunk splits the document with the current chunker settings and replaces
// its chunk set. When the result matches the stored set the stored set is
// returned untouched.
func (s *DocumentService) Chunk(ctx context.Context, documentID string) (*domain.ChunkSet, error) {
	unlock := s.locks.Lock(documentID)
	defer unlock()

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	pipeline, err := s.pipelines.BuildPipeline(domain.PipelineConfigFor(settings.Chunker))
	if err != nil {
		return nil, err
	}
	chunks, err := pipeline.Process(ctx, doc)
	if err != nil {
		return nil, err
	}

	fingerprint := domain.FingerprintChunks(settings.Chunker, chunks)
	existing, err := s.docStore.GetChunkSet(ctx, documentID)
	switch {
	case err == nil && existing.Fingerprint == fingerprint:
		logger.Debug("Chunk set for %s unchanged (%d chunks)", documentID, len(existing.Chunks))
		return existing, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	set := &domain.ChunkSet{
		DocumentID:  documentID,
		Settings:    settings.Chunker,
		Fingerprint: fingerprint,
		Chunks:      chunks,
		CreatedAt:   s.now(),
	}
	if err := s.docStore.ReplaceChunks(ctx, set); err != nil {
		return nil, fmt.Errorf("replace chunks: %w", err)
	}

	logger.Info("Chunked %s into %d chunks", documentID, len(chunks))
	return set, nil
}

// Chunks returns the document's current chunk set.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) (*domain.ChunkSet, error) {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	set, err := s.docStore.GetChunkSet(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", documentID, domain.ErrNotChunked)
	}
	return set, err
}

// titleFromFilename strips directories and extension from a filename.
func titleFromFilename(name string) string {
	base := filepath.Base(name)
	if title := strings.TrimSuffix(base, filepath.Ext(base)); title != "" && title != "." {
		return title
	}
	return "Untitled"
}
