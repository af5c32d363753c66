package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderLocal is the built-in deterministic provider.
	// For embeddings it hashes tokens; for answers it extracts sentences.
	AIProviderLocal AIProvider = "local"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderLocal, AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderLocal
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderLocal:
		return "Built-in (deterministic, offline)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkerSettings configures how documents are split into chunks.
type ChunkerSettings struct {
	// MaxChunkChars is the upper bound on chunk length in bytes.
	MaxChunkChars int

	// OverlapChars is how many bytes consecutive chunks share.
	OverlapChars int

	// BoundaryPreference enables splitting at paragraph or sentence ends.
	BoundaryPreference bool

	// BoundaryTolerance is how far back from the hard limit to look for a
	// boundary. Zero means a quarter of MaxChunkChars.
	BoundaryTolerance int
}

// Validate reports ErrInvalidConfig for unusable settings.
func (c ChunkerSettings) Validate() error {
	switch {
	case c.MaxChunkChars <= 0:
		return fmt.Errorf("%w: max_chunk_chars must be positive, got %d", ErrInvalidConfig, c.MaxChunkChars)
	case c.OverlapChars < 0:
		return fmt.Errorf("%w: overlap_chars must not be negative, got %d", ErrInvalidConfig, c.OverlapChars)
	case c.OverlapChars >= c.MaxChunkChars:
		return fmt.Errorf("%w: overlap_chars (%d) must be smaller than max_chunk_chars (%d)",
			ErrInvalidConfig, c.OverlapChars, c.MaxChunkChars)
	case c.BoundaryTolerance < 0:
		return fmt.Errorf("%w: boundary_tolerance must not be negative, got %d", ErrInvalidConfig, c.BoundaryTolerance)
	}
	return nil
}

// Tolerance returns the effective boundary search window.
func (c ChunkerSettings) Tolerance() int {
	if c.BoundaryTolerance > 0 {
		return c.BoundaryTolerance
	}
	return c.MaxChunkChars / 4
}

// ProcessorConfig returns the settings as generic processor configuration.
func (c ChunkerSettings) ProcessorConfig() map[string]any {
	return map[string]any{
		"chunk_size":          c.MaxChunkChars,
		"overlap":             c.OverlapChars,
		"boundary_preference": c.BoundaryPreference,
		"boundary_tolerance":  c.BoundaryTolerance,
	}
}

// RetrievalSettings holds defaults for the answer operation.
type RetrievalSettings struct {
	// TopK is the default number of chunks to retrieve.
	TopK int

	// MaxSources is the default number of chunks offered as evidence.
	MaxSources int

	// PreviewChars is the length of source previews.
	PreviewChars int

	// AutoIndex chunks and embeds documents before answering when needed.
	AutoIndex bool
}

// ConfidenceThresholds are the bars that map strength and coverage to labels.
type ConfidenceThresholds struct {
	// HighStrength is the minimum strength for a high label.
	HighStrength float64

	// HighCoverage is the minimum coverage for a high label.
	HighCoverage float64

	// LowStrength is the strength below which the label is low.
	LowStrength float64

	// LowCoverage is the coverage below which the label is low.
	LowCoverage float64
}

// Validate reports ErrInvalidConfig when thresholds are out of range or inverted.
func (t ConfidenceThresholds) Validate() error {
	for name, v := range map[string]float64{
		"high_strength": t.HighStrength,
		"high_coverage": t.HighCoverage,
		"low_strength":  t.LowStrength,
		"low_coverage":  t.LowCoverage,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: confidence.%s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if t.LowStrength > t.HighStrength || t.LowCoverage > t.HighCoverage {
		return fmt.Errorf("%w: low confidence thresholds must not exceed high thresholds", ErrInvalidConfig)
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int

	// BatchSize is how many chunks are sent per embedding call.
	BatchSize int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// MaxTokens caps the generated answer length.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ConcurrencySettings bound calls to external capabilities.
type ConcurrencySettings struct {
	// EmbedWorkers is the number of embedding batches in flight per document.
	EmbedWorkers int

	// RequestsPerSecond limits capability calls across the process.
	// Zero disables rate limiting.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size.
	Burst int

	// CallTimeout is the deadline applied to each capability call.
	CallTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
}

// AuditSettings controls answer audit logging.
type AuditSettings struct {
	// Enabled records every answered query.
	Enabled bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Chunker     ChunkerSettings
	Retrieval   RetrievalSettings
	Confidence  ConfidenceThresholds
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Concurrency ConcurrencySettings
	Audit       AuditSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Both capabilities default to the built-in local provider so the
// application works offline without configuration.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunker:    DefaultChunkerSettings(),
		Retrieval:  DefaultRetrievalSettings(),
		Confidence: DefaultConfidenceThresholds(),
		Embedding: EmbeddingSettings{
			Provider:  AIProviderLocal,
			Model:     DefaultEmbeddingModels()[AIProviderLocal],
			BatchSize: 64,
		},
		LLM: LLMSettings{
			Provider:  AIProviderLocal,
			Model:     DefaultLLMModels()[AIProviderLocal],
			MaxTokens: 512,
		},
		Concurrency: DefaultConcurrencySettings(),
		Audit:       AuditSettings{Enabled: true},
	}
}

// DefaultChunkerSettings returns the default chunker configuration.
func DefaultChunkerSettings() ChunkerSettings {
	return ChunkerSettings{
		MaxChunkChars:      1000,
		OverlapChars:       200,
		BoundaryPreference: true,
	}
}

// DefaultRetrievalSettings returns the default retrieval configuration.
func DefaultRetrievalSettings() RetrievalSettings {
	return RetrievalSettings{
		TopK:         5,
		MaxSources:   3,
		PreviewChars: 160,
		AutoIndex:    true,
	}
}

// DefaultConfidenceThresholds returns the default confidence bars.
func DefaultConfidenceThresholds() ConfidenceThresholds {
	return ConfidenceThresholds{
		HighStrength: 0.35,
		HighCoverage: 0.5,
		LowStrength:  0.1,
		LowCoverage:  0.2,
	}
}

// DefaultConcurrencySettings returns the default capability call policy.
func DefaultConcurrencySettings() ConcurrencySettings {
	return ConcurrencySettings{
		EmbedWorkers:      4,
		RequestsPerSecond: 10,
		Burst:             4,
		CallTimeout:       30 * time.Second,
		MaxRetries:        3,
		InitialBackoff:    250 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hashing-blake2b",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:     "extractive",
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Built-in
		"hashing-blake2b": 1536,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor returns a pipeline that chunks with the given settings.
func PipelineConfigFor(c ChunkerSettings) PipelineConfig {
	return PipelineConfig{
		Processors: []string{"chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": c.ProcessorConfig(),
		},
	}
}
