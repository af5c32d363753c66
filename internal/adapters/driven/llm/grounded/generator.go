// Package grounded adapts a raw LLMService into an AnswerGenerator that
// answers only from supplied evidence and tags claims with source refs.
package grounded

import (
	"context"
	"fmt"
	"strings"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Ensure Generator implements the interfaces.
var (
	_ driven.AnswerGenerator  = (*Generator)(nil)
	_ driven.PromptStoreAware = (*Generator)(nil)
)

// InsufficientMarker is the reply the prompt asks for when the evidence
// cannot answer the question.
const InsufficientMarker = "INSUFFICIENT_EVIDENCE"

// DefaultMaxTokens caps the answer length when none is configured.
const DefaultMaxTokens = 512

const defaultSystemPrompt = `Answer only from the evidence passages. Cite each sentence with the tag of its passage, e.g. [S1]. Never invent tags. If the evidence does not answer the question, reply with exactly: ` + InsufficientMarker

const defaultUserPrompt = "Evidence:\n%s\n\nQuestion: %s\n\nAnswer:"

// Generator produces grounded answers through an LLM.
type Generator struct {
	llm         driven.LLMService
	promptStore driven.PromptStore
	maxTokens   int
}

// Option configures the generator.
type Option func(*Generator)

// WithMaxTokens caps the generated answer length.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithPromptStore loads prompts from store instead of the built-in defaults.
func WithPromptStore(store driven.PromptStore) Option {
	return func(g *Generator) {
		g.promptStore = store
	}
}

// New creates a grounded generator over llm.
func New(llm driven.LLMService, opts ...Option) *Generator {
	g := &Generator{llm: llm, maxTokens: DefaultMaxTokens}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (g *Generator) SetPromptStore(store driven.PromptStore) {
	g.promptStore = store
}

// Name identifies the generator by its model.
func (g *Generator) Name() string {
	return "llm:" + g.llm.ModelName()
}

// Generate asks the LLM for a tagged answer. A reply that starts with the
// insufficient marker is reported as insufficient evidence. The tags in the
// reply are returned as-is for the caller to validate.
func (g *Generator) Generate(ctx context.Context, query string, evidence []domain.Evidence) (domain.Generation, error) {
	if len(evidence) == 0 {
		return domain.Generation{Insufficient: true}, nil
	}

	system := g.loadPrompt(driven.PromptGroundedAnswer, defaultSystemPrompt)
	user := fmt.Sprintf(g.loadPrompt(driven.PromptGroundedAnswerUser, defaultUserPrompt), EvidenceBlock(evidence), query)

	reply, err := g.llm.Chat(ctx, []driven.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}, driven.ChatOptions{MaxTokens: g.maxTokens})
	if err != nil {
		return domain.Generation{}, err
	}

	reply = strings.TrimSpace(reply)
	if strings.HasPrefix(strings.TrimLeft(reply, "*_` "), InsufficientMarker) {
		return domain.Generation{Insufficient: true}, nil
	}
	return domain.Generation{Text: reply}, nil
}

// EvidenceBlock renders evidence as tagged passages separated by blank lines.
func EvidenceBlock(evidence []domain.Evidence) string {
	var b strings.Builder
	for i, ev := range evidence {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s", ev.Ref, strings.TrimSpace(ev.Text))
	}
	return b.String()
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (g *Generator) loadPrompt(name, fallback string) string {
	if g.promptStore == nil {
		return fallback
	}
	prompt, err := g.promptStore.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}
