package eval

import (
	"context"
	"sync/atomic"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
)

// Calls is a snapshot of capability call counts.
type Calls struct {
	Embed      int64 `json:"embed"`
	EmbedBatch int64 `json:"embed_batch"`
	Generate   int64 `json:"generate"`
}

// Total returns the number of calls of any kind.
func (c Calls) Total() int64 {
	return c.Embed + c.EmbedBatch + c.Generate
}

// Sub returns the calls made since an earlier snapshot.
func (c Calls) Sub(earlier Calls) Calls {
	return Calls{
		Embed:      c.Embed - earlier.Embed,
		EmbedBatch: c.EmbedBatch - earlier.EmbedBatch,
		Generate:   c.Generate - earlier.Generate,
	}
}

// Counter counts calls to the embedding and generation capabilities.
// Wrapped services forward every call, including failed ones, and count
// it before forwarding. A nil Counter reports zero calls.
type Counter struct {
	embed      atomic.Int64
	embedBatch atomic.Int64
	generate   atomic.Int64
}

// NewCounter creates a zeroed counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Calls returns the current counts.
func (c *Counter) Calls() Calls {
	if c == nil {
		return Calls{}
	}
	return Calls{
		Embed:      c.embed.Load(),
		EmbedBatch: c.embedBatch.Load(),
		Generate:   c.generate.Load(),
	}
}

// WrapEmbedder returns an embedding service that counts Embed and
// EmbedBatch calls. A nil counter returns svc unwrapped.
func (c *Counter) WrapEmbedder(svc driven.EmbeddingService) driven.EmbeddingService {
	if svc == nil {
		return nil
	}
	if c == nil {
		return svc
	}
	return &countingEmbedder{EmbeddingService: svc, counter: c}
}

// WrapGenerator returns an answer generator that counts Generate calls.
// A nil counter returns gen unwrapped.
func (c *Counter) WrapGenerator(gen driven.AnswerGenerator) driven.AnswerGenerator {
	if gen == nil {
		return nil
	}
	if c == nil {
		return gen
	}
	return &countingGenerator{AnswerGenerator: gen, counter: c}
}

type countingEmbedder struct {
	driven.EmbeddingService
	counter *Counter
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.counter.embed.Add(1)
	return e.EmbeddingService.Embed(ctx, text)
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.counter.embedBatch.Add(1)
	return e.EmbeddingService.EmbedBatch(ctx, texts)
}

type countingGenerator struct {
	driven.AnswerGenerator
	counter *Counter
}

func (g *countingGenerator) Generate(ctx context.Context, query string, evidence []domain.Evidence) (domain.Generation, error) {
	g.counter.generate.Add(1)
	return g.AnswerGenerator.Generate(ctx, query, evidence)
}
