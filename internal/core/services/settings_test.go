package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/adapters/driven/storage/memory"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// mockAIValidator records validation calls.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("chunker.max_chunk_chars", int64(400))
	_ = store.Set("chunker.overlap_chars", 0)
	_ = store.Set("chunker.boundary_preference", false)
	_ = store.Set("retrieval.top_k", 8)
	_ = store.Set("confidence.high_strength", 0.6)
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.api_key", "sk-test")
	_ = store.Set("llm.provider", "ollama")
	_ = store.Set("concurrency.call_timeout", "2s")
	_ = store.Set("concurrency.requests_per_second", 0)
	_ = store.Set("audit.enabled", false)

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)

	assert.Equal(t, 400, settings.Chunker.MaxChunkChars)
	assert.Equal(t, 0, settings.Chunker.OverlapChars, "explicit zero overlap must not fall back to the default")
	assert.False(t, settings.Chunker.BoundaryPreference)
	assert.Equal(t, 8, settings.Retrieval.TopK)
	assert.InDelta(t, 0.6, settings.Confidence.HighStrength, 1e-9)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model, "model defaults per provider")
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, domain.AIProviderOllama, settings.LLM.Provider)
	assert.Equal(t, "llama3.2", settings.LLM.Model)
	assert.Equal(t, 2*time.Second, settings.Concurrency.CallTimeout)
	assert.Zero(t, settings.Concurrency.RequestsPerSecond)
	assert.False(t, settings.Audit.Enabled)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.provider", "invalid")
	_ = store.Set("concurrency.call_timeout", "soon")

	settings, err := NewSettingsService(store, nil).Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Concurrency.CallTimeout, settings.Concurrency.CallTimeout)
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	settings.Chunker.MaxChunkChars = 300
	settings.Chunker.OverlapChars = 30
	settings.Retrieval.MaxSources = 2
	settings.Confidence.LowCoverage = 0.15
	settings.Concurrency.MaxBackoff = 9 * time.Second
	settings.LLM.APIKey = "key"

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
	assert.Equal(t, "9s", store.GetString("concurrency.max_backoff"))
}

func TestSettingsService_Save_EmptyAPIKeyPreservesStored(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("llm.api_key", "existing")
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "existing", store.GetString("llm.api_key"))
}

func TestSettingsService_SetChunker(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, service.SetChunker(domain.ChunkerSettings{MaxChunkChars: 500, OverlapChars: 50}))
		settings, _ := service.Get()
		assert.Equal(t, 500, settings.Chunker.MaxChunkChars)
		assert.Equal(t, 50, settings.Chunker.OverlapChars)
	})

	t.Run("overlap not below max", func(t *testing.T) {
		err := service.SetChunker(domain.ChunkerSettings{MaxChunkChars: 50, OverlapChars: 50})
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestSettingsService_SetConfidence(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	thresholds := domain.ConfidenceThresholds{HighStrength: 0.7, HighCoverage: 0.6, LowStrength: 0.2, LowCoverage: 0.1}
	require.NoError(t, service.SetConfidence(thresholds))
	settings, _ := service.Get()
	assert.Equal(t, thresholds, settings.Confidence)

	err := service.SetConfidence(domain.ConfidenceThresholds{HighStrength: 0.1, LowStrength: 0.5})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name      string
		provider  domain.AIProvider
		model     string
		apiKey    string
		wantErr   bool
		wantModel string
		wantURL   string
		wantDims  int
	}{
		{name: "local", provider: domain.AIProviderLocal, wantModel: "hashing-blake2b", wantDims: 1536},
		{name: "ollama", provider: domain.AIProviderOllama, wantModel: "nomic-embed-text", wantURL: defaultOllamaURL, wantDims: 768},
		{name: "openai custom model", provider: domain.AIProviderOpenAI, model: "text-embedding-3-large", apiKey: "sk", wantModel: "text-embedding-3-large", wantDims: 3072},
		{name: "openai without key", provider: domain.AIProviderOpenAI, wantErr: true},
		{name: "anthropic has no embeddings", provider: domain.AIProviderAnthropic, apiKey: "k", wantErr: true},
		{name: "invalid", provider: domain.AIProvider("nope"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(), nil)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			settings, _ := service.Get()
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.wantModel, settings.Embedding.Model)
			assert.Equal(t, tt.wantURL, settings.Embedding.BaseURL)
			assert.Equal(t, tt.wantDims, settings.Embedding.Dimensions)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider_PreservesExistingBaseURL(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("embedding.base_url", "http://gpu-box:11434")
	service := NewSettingsService(store, nil)

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

	settings, _ := service.Get()
	assert.Equal(t, "http://gpu-box:11434", settings.Embedding.BaseURL)
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "key"))
	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Empty(t, settings.LLM.BaseURL)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProvider("nope"), "", ""))
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.Validate())
	})

	t.Run("reports every problem", func(t *testing.T) {
		store := memory.NewConfigStore()
		_ = store.Set("chunker.overlap_chars", 5000)
		_ = store.Set("retrieval.top_k", 0)
		_ = store.Set("llm.provider", "openai")
		service := NewSettingsService(store, nil)

		err := service.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "overlap_chars")
		assert.Contains(t, err.Error(), "top_k")
		assert.Contains(t, err.Error(), "LLM provider")
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateConfigs(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates to validator", func(t *testing.T) {
		validator := &mockAIValidator{llmErr: errors.New("unreachable")}
		service := NewSettingsService(memory.NewConfigStore(), validator)

		assert.NoError(t, service.ValidateEmbeddingConfig())
		require.NotNil(t, validator.embedding)
		assert.Equal(t, domain.AIProviderLocal, validator.embedding.Provider)

		assert.EqualError(t, service.ValidateLLMConfig(), "unreachable")
	})
}
