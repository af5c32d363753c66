// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/tkrief1/doc-detective/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/tkrief1/doc-detective/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/tkrief1/doc-detective/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/tkrief1/doc-detective/internal/adapters/driven/llm/anthropic"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/llm/extractive"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/llm/grounded"
	ollamallm "github.com/tkrief1/doc-detective/internal/adapters/driven/llm/ollama"
	openaillm "github.com/tkrief1/doc-detective/internal/adapters/driven/llm/openai"
	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// fixHint is appended to provider errors.
const fixHint = "Run 'docdetective config show' to check the provider settings"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Generator        driven.AnswerGenerator
	LLMService       driven.LLMService  // Nil when answers are generated locally.
	PromptStore      driven.PromptStore // User-customisable prompt templates.
	Warnings         []string           // Non-fatal issues that caused fallback.
	FellBack         bool               // True if a provider fell back to local.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates the embedding service and answer generator from settings.
// A remote provider that cannot be created or reached is replaced by the
// local one and the reason is recorded in Warnings. When validate is false
// remote providers are not pinged.
func Init(settings *domain.AppSettings, prompts driven.PromptStore, validate bool) *InitResult {
	result := &InitResult{PromptStore: prompts}

	embedder, err := createEmbedding(&settings.Embedding, validate)
	if err != nil {
		logger.Warn("embedding provider %s unavailable: %v", settings.Embedding.Provider, err)
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
		embedder = localEmbedding(&settings.Embedding)
	}
	result.EmbeddingService = embedder

	llm, err := createLLM(&settings.LLM, validate)
	if err != nil {
		logger.Warn("llm provider %s unavailable: %v", settings.LLM.Provider, err)
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
		llm = nil
	}
	result.LLMService = llm
	result.Generator = CreateAnswerGenerator(llm, &settings.LLM, prompts)

	logger.Info("embedding: %s (%d dims), generator: %s",
		result.EmbeddingService.ModelName(), result.EmbeddingService.Dimensions(), result.Generator.Name())
	return result
}

func createEmbedding(settings *domain.EmbeddingSettings, validate bool) (driven.EmbeddingService, error) {
	if validate {
		svc, err := CreateAndValidateEmbeddingService(settings)
		if err == nil && svc == nil {
			err = fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
		}
		return svc, err
	}
	svc, err := CreateEmbeddingService(settings)
	if err == nil && svc == nil {
		err = fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
	}
	return svc, err
}

func createLLM(settings *domain.LLMSettings, validate bool) (driven.LLMService, error) {
	if settings.Provider == domain.AIProviderLocal {
		return nil, nil
	}
	var (
		svc driven.LLMService
		err error
	)
	if validate {
		svc, err = CreateAndValidateLLMService(settings)
	} else {
		svc, err = CreateLLMService(settings)
	}
	if err == nil && svc == nil {
		err = fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, settings.Provider)
	}
	return svc, err
}

// CreateAnswerGenerator returns the grounded generator for llm, or the
// local extractive generator when llm is nil.
func CreateAnswerGenerator(llm driven.LLMService, settings *domain.LLMSettings, prompts driven.PromptStore) driven.AnswerGenerator {
	if llm == nil {
		return extractive.New()
	}
	opts := []grounded.Option{}
	if settings != nil {
		opts = append(opts, grounded.WithMaxTokens(settings.MaxTokens))
	}
	if prompts != nil {
		opts = append(opts, grounded.WithPromptStore(prompts))
	}
	return grounded.New(llm, opts...)
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		return localEmbedding(settings), nil

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use local, ollama or openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured or answers locally.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderLocal:
		// The local provider has no LLM; answers are extracted.
		return nil, nil

	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// dimensionsFor returns the configured override or the model's known size.
func dimensionsFor(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// localEmbedding creates the built-in hashing embedding service. A dimension
// override is kept only when it was configured for the local provider.
func localEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := 0
	if settings != nil && settings.Provider == domain.AIProviderLocal {
		dimensions = settings.Dimensions
	}
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[domain.DefaultEmbeddingModels()[domain.AIProviderLocal]]
	}
	return hashing.NewEmbeddingService(hashing.Config{Dimensions: dimensions})
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := dimensionsFor(settings)
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensionsFor(settings),
	})
}

// createOllamaLLM creates an Ollama LLM service.
func createOllamaLLM(settings *domain.LLMSettings) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAILLM creates an OpenAI LLM service.
func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicLLM creates an Anthropic LLM service.
func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	return anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
