package services

import (
	"context"
	"fmt"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// Synthesizer turns retrieved sources into a cited answer.
type Synthesizer struct {
	generator driven.AnswerGenerator
	gate      *CapabilityGate
}

// NewSynthesizer creates a synthesizer around a text-generation capability.
func NewSynthesizer(generator driven.AnswerGenerator, gate *CapabilityGate) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		gate:      gate,
	}
}

// Synthesize answers query from the best maxSources of sources, which must
// already be in rank order. Generation is retried through the capability
// gate; when retries run out the error wraps domain.ErrGenerationFailed.
func (s *Synthesizer) Synthesize(
	ctx context.Context, query string, sources []domain.RetrievedSource, maxSources int,
) (*domain.Answer, error) {
	if maxSources <= 0 {
		return nil, fmt.Errorf("%w: max_sources must be positive, got %d", domain.ErrInvalidArgument, maxSources)
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, domain.ErrLLMUnavailable)
	}

	evidenceSet := sources[:min(maxSources, len(sources))]
	if len(evidenceSet) == 0 {
		return insufficientAnswer(0), nil
	}

	evidence := make([]domain.Evidence, len(evidenceSet))
	for i, src := range evidenceSet {
		evidence[i] = domain.Evidence{Ref: src.Ref, ChunkID: src.Chunk.ID, Text: src.Chunk.Content}
	}

	var gen domain.Generation
	err := s.gate.Do(ctx, "generate answer", func(ctx context.Context) error {
		out, err := s.generator.Generate(ctx, query, evidence)
		if err != nil {
			return err
		}
		gen = out
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrGenerationFailed, s.generator.Name(), err)
	}

	if gen.Insufficient {
		logger.Debug("Generator %s reported insufficient evidence", s.generator.Name())
		return insufficientAnswer(len(evidenceSet)), nil
	}

	text, citations := ParseCitations(gen.Text, evidenceSet)
	if text == "" {
		logger.Debug("Generator %s returned no answer text", s.generator.Name())
		return insufficientAnswer(len(evidenceSet)), nil
	}

	logger.Debug("Answer cites %d of %d evidence chunks", len(citations), len(evidenceSet))
	return &domain.Answer{
		Text:          text,
		Citations:     citations,
		EvidenceCount: len(evidenceSet),
	}, nil
}

func insufficientAnswer(evidenceCount int) *domain.Answer {
	return &domain.Answer{
		Text:          domain.InsufficientEvidenceAnswer,
		Citations:     []domain.Citation{},
		Insufficient:  true,
		EvidenceCount: evidenceCount,
	}
}
