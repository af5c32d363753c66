// Package tui provides an interactive terminal user interface for docdetective.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Document manages ingested documents and their chunks.
	Document driving.DocumentService

	// Index builds and reports on document embeddings. Optional.
	Index driving.IndexService

	// Answer answers questions about a document.
	Answer driving.AnswerService

	// Settings manages application settings. Optional.
	Settings driving.SettingsService
}

// NewPorts creates a new Ports aggregate with the required services.
func NewPorts(document driving.DocumentService, answer driving.AnswerService) *Ports {
	return &Ports{
		Document: document,
		Answer:   answer,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
