package driving

import "github.com/tkrief1/doc-detective/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetChunker updates the chunker settings.
	SetChunker(settings domain.ChunkerSettings) error

	// SetConfidence updates the confidence thresholds.
	SetConfidence(thresholds domain.ConfidenceThresholds) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that the current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
