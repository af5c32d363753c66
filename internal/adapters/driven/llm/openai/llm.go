// Package openai provides an LLM service adapter using the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1/"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1/).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides chat completions using the OpenAI API.
type LLMService struct {
	client openai.Client
	model  string
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(0),
		),
		model: cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	messages := []driven.ChatMessage{
		{Role: "user", Content: prompt},
	}
	chatOpts := driven.ChatOptions{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	return s.chatCompletion(ctx, messages, chatOpts, opts.StopWords)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return s.chatCompletion(ctx, messages, opts, nil)
}

func (s *LLMService) chatCompletion(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
	stopWords []string,
) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}

	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if len(stopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: stopWords}
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
// This is a lightweight check that does not run inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

// classify marks client errors that retrying cannot fix as permanent.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
			http.StatusNotFound, http.StatusUnprocessableEntity:
			return fmt.Errorf("openai: %w: %w", domain.ErrPermanent, err)
		}
	}
	return fmt.Errorf("openai: %w", err)
}
