package mcp

import (
	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer answers questions and retrieves evidence.
	Answer driving.AnswerService

	// Document lists and reads ingested documents.
	Document driving.DocumentService

	// Settings supplies request defaults. Optional; built-in defaults
	// are used when nil.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}

// retrievalDefaults returns the configured retrieval settings.
// Settings are read per request so config reloads apply immediately.
func (p *Ports) retrievalDefaults() domain.RetrievalSettings {
	if p.Settings != nil {
		if settings, err := p.Settings.Get(); err == nil {
			return settings.Retrieval
		}
	}
	return domain.DefaultRetrievalSettings()
}
