package mcp

import (
	"context"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	result    *domain.AnswerResult
	sources   []domain.RetrievedSource
	err       error
	lastQuery domain.Query
	lastTopK  int
}

func (m *mockAnswerService) Answer(_ context.Context, q domain.Query) (*domain.AnswerResult, error) {
	m.lastQuery = q
	return m.result, m.err
}

func (m *mockAnswerService) Retrieve(_ context.Context, _, _ string, topK int) ([]domain.RetrievedSource, error) {
	m.lastTopK = topK
	return m.sources, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	found     []domain.Document
	document  *domain.Document
	chunks    *domain.ChunkSet
	err       error
	lastFind  string
}

func (m *mockDocumentService) Ingest(_ context.Context, _ *domain.RawDocument) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) AddText(_ context.Context, _, _ string, _ []domain.Page) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) Find(_ context.Context, query string, _ int) ([]domain.Document, error) {
	m.lastFind = query
	return m.found, m.err
}

func (m *mockDocumentService) Chunk(_ context.Context, _ string) (*domain.ChunkSet, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) (*domain.ChunkSet, error) {
	return m.chunks, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error                  { return nil }
func (m *mockSettingsService) SetChunker(_ domain.ChunkerSettings) error         { return nil }
func (m *mockSettingsService) SetConfidence(_ domain.ConfidenceThresholds) error { return nil }
func (m *mockSettingsService) Validate() error                                   { return nil }
func (m *mockSettingsService) GetDefaults() domain.AppSettings                   { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateEmbeddingConfig() error                    { return nil }
func (m *mockSettingsService) ValidateLLMConfig() error                          { return nil }

func (m *mockSettingsService) SetEmbeddingProvider(_ domain.AIProvider, _, _ string) error {
	return nil
}

func (m *mockSettingsService) SetLLMProvider(_ domain.AIProvider, _, _ string) error {
	return nil
}

func newTestServer(answer *mockAnswerService, docs *mockDocumentService) *Server {
	server, err := NewServer(&Ports{Answer: answer, Document: docs})
	if err != nil {
		panic(err)
	}
	return server
}
