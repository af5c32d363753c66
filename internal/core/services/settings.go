package services

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkMax       = "chunker.max_chunk_chars"
	keyChunkOverlap   = "chunker.overlap_chars"
	keyChunkBoundary  = "chunker.boundary_preference"
	keyChunkTolerance = "chunker.boundary_tolerance"

	keyTopK         = "retrieval.top_k"
	keyMaxSources   = "retrieval.max_sources"
	keyPreviewChars = "retrieval.preview_chars"
	keyAutoIndex    = "retrieval.auto_index"

	keyHighStrength = "confidence.high_strength"
	keyHighCoverage = "confidence.high_coverage"
	keyLowStrength  = "confidence.low_strength"
	keyLowCoverage  = "confidence.low_coverage"

	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedBatchSize = "embedding.batch_size"

	keyLLMProvider  = "llm.provider"
	keyLLMModel     = "llm.model"
	keyLLMBaseURL   = "llm.base_url"
	keyLLMAPIKey    = "llm.api_key"
	keyLLMMaxTokens = "llm.max_tokens"

	keyEmbedWorkers   = "concurrency.embed_workers"
	keyRPS            = "concurrency.requests_per_second"
	keyBurst          = "concurrency.burst"
	keyCallTimeout    = "concurrency.call_timeout"
	keyMaxRetries     = "concurrency.max_retries"
	keyInitialBackoff = "concurrency.initial_backoff"
	keyMaxBackoff     = "concurrency.max_backoff"

	keyAuditEnabled = "audit.enabled"
)

// defaultOllamaURL is used for local Ollama providers without a base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
// Missing keys fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, d.Embedding.Provider)
	llmProvider := s.getProvider(keyLLMProvider, d.LLM.Provider)

	settings := &domain.AppSettings{
		Chunker: domain.ChunkerSettings{
			MaxChunkChars:      s.getInt(keyChunkMax, d.Chunker.MaxChunkChars),
			OverlapChars:       s.getInt(keyChunkOverlap, d.Chunker.OverlapChars),
			BoundaryPreference: s.getBool(keyChunkBoundary, d.Chunker.BoundaryPreference),
			BoundaryTolerance:  s.getInt(keyChunkTolerance, d.Chunker.BoundaryTolerance),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:         s.getInt(keyTopK, d.Retrieval.TopK),
			MaxSources:   s.getInt(keyMaxSources, d.Retrieval.MaxSources),
			PreviewChars: s.getInt(keyPreviewChars, d.Retrieval.PreviewChars),
			AutoIndex:    s.getBool(keyAutoIndex, d.Retrieval.AutoIndex),
		},
		Confidence: domain.ConfidenceThresholds{
			HighStrength: s.getFloat(keyHighStrength, d.Confidence.HighStrength),
			HighCoverage: s.getFloat(keyHighCoverage, d.Confidence.HighCoverage),
			LowStrength:  s.getFloat(keyLowStrength, d.Confidence.LowStrength),
			LowCoverage:  s.getFloat(keyLowCoverage, d.Confidence.LowCoverage),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   embedProvider,
			Model:      s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, 0),
			BatchSize:  s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
		},
		LLM: domain.LLMSettings{
			Provider:  llmProvider,
			Model:     s.getString(keyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:   s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyLLMAPIKey),
			MaxTokens: s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
		},
		Concurrency: domain.ConcurrencySettings{
			EmbedWorkers:      s.getInt(keyEmbedWorkers, d.Concurrency.EmbedWorkers),
			RequestsPerSecond: s.getFloat(keyRPS, d.Concurrency.RequestsPerSecond),
			Burst:             s.getInt(keyBurst, d.Concurrency.Burst),
			CallTimeout:       s.getDuration(keyCallTimeout, d.Concurrency.CallTimeout),
			MaxRetries:        s.getInt(keyMaxRetries, d.Concurrency.MaxRetries),
			InitialBackoff:    s.getDuration(keyInitialBackoff, d.Concurrency.InitialBackoff),
			MaxBackoff:        s.getDuration(keyMaxBackoff, d.Concurrency.MaxBackoff),
		},
		Audit: domain.AuditSettings{
			Enabled: s.getBool(keyAuditEnabled, d.Audit.Enabled),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyChunkMax, settings.Chunker.MaxChunkChars},
		{keyChunkOverlap, settings.Chunker.OverlapChars},
		{keyChunkBoundary, settings.Chunker.BoundaryPreference},
		{keyChunkTolerance, settings.Chunker.BoundaryTolerance},

		{keyTopK, settings.Retrieval.TopK},
		{keyMaxSources, settings.Retrieval.MaxSources},
		{keyPreviewChars, settings.Retrieval.PreviewChars},
		{keyAutoIndex, settings.Retrieval.AutoIndex},

		{keyHighStrength, settings.Confidence.HighStrength},
		{keyHighCoverage, settings.Confidence.HighCoverage},
		{keyLowStrength, settings.Confidence.LowStrength},
		{keyLowCoverage, settings.Confidence.LowCoverage},

		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},

		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},

		{keyEmbedWorkers, settings.Concurrency.EmbedWorkers},
		{keyRPS, settings.Concurrency.RequestsPerSecond},
		{keyBurst, settings.Concurrency.Burst},
		{keyCallTimeout, settings.Concurrency.CallTimeout.String()},
		{keyMaxRetries, settings.Concurrency.MaxRetries},
		{keyInitialBackoff, settings.Concurrency.InitialBackoff.String()},
		{keyMaxBackoff, settings.Concurrency.MaxBackoff.String()},

		{keyAuditEnabled, settings.Audit.Enabled},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// API keys are only written when present so an empty form never erases them.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return s.configStore.Save()
}

// SetChunker updates the chunker settings.
func (s *SettingsService) SetChunker(chunker domain.ChunkerSettings) error {
	if err := chunker.Validate(); err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Chunker = chunker
	return s.Save(settings)
}

// SetConfidence updates the confidence thresholds.
func (s *SettingsService) SetConfidence(thresholds domain.ConfidenceThresholds) error {
	if err := thresholds.Validate(); err != nil {
		return err
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Confidence = thresholds
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	// Dimensions follow the model; an explicit override only survives a model
	// the table does not know.
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if err := settings.Chunker.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := settings.Confidence.Validate(); err != nil {
		errs = append(errs, err)
	}
	if settings.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidConfig))
	}
	if settings.Retrieval.MaxSources <= 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.max_sources must be positive", domain.ErrInvalidConfig))
	}
	if settings.Concurrency.EmbedWorkers <= 0 {
		errs = append(errs, fmt.Errorf("%w: concurrency.embed_workers must be positive", domain.ErrInvalidConfig))
	}
	if settings.Concurrency.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%w: concurrency.max_retries must not be negative", domain.ErrInvalidConfig))
	}
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrInvalidConfig, settings.Embedding.Provider))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, fmt.Errorf("%w: LLM provider %q is not configured",
			domain.ErrInvalidConfig, settings.LLM.Provider))
	}

	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// baseURLFor returns the endpoint to store for a provider.
func baseURLFor(provider domain.AIProvider, current string) string {
	switch provider {
	case domain.AIProviderOllama:
		if current == "" {
			return defaultOllamaURL
		}
		return current
	default:
		// Cloud and built-in providers don't need a custom base URL
		return ""
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d := s.configStore.GetDuration(key); d > 0 {
		return d
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
