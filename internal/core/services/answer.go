package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// AnswerService runs the query pipeline: retrieve, synthesize, score.
// Queries never take document locks; they read whichever index entry is
// current when retrieval starts.
type AnswerService struct {
	documents   driving.DocumentService
	indexer     driving.IndexService
	retriever   *RetrievalService
	synthesizer *Synthesizer
	settings    SettingsSource
	answerLog   driven.AnswerLog
	now         func() time.Time
}

// NewAnswerService creates a new answer service.
// The document and index services are only used when auto-indexing is on.
func NewAnswerService(
	documents driving.DocumentService,
	indexer driving.IndexService,
	retriever *RetrievalService,
	synthesizer *Synthesizer,
	settings SettingsSource,
) *AnswerService {
	return &AnswerService{
		documents:   documents,
		indexer:     indexer,
		retriever:   retriever,
		synthesizer: synthesizer,
		settings:    settings,
		now:         time.Now,
	}
}

// SetAnswerLog sets the audit log that records answered queries.
func (s *AnswerService) SetAnswerLog(log driven.AnswerLog) {
	s.answerLog = log
}

// Retrieve returns the top-k chunks for a query, best first.
func (s *AnswerService) Retrieve(
	ctx context.Context, documentID, queryText string, topK int,
) ([]domain.RetrievedSource, error) {
	return s.retriever.Retrieve(ctx, documentID, queryText, topK)
}

// Answer retrieves evidence, synthesizes a cited answer and scores it.
// Cancelling ctx abandons the query at the next stage boundary or inside
// the capability call in flight; no partial result is returned.
func (s *AnswerService) Answer(ctx context.Context, q domain.Query) (*domain.AnswerResult, error) {
	start := s.now()
	logger.Section("Answer")
	logger.Debug("Document: %s Query: %q top_k=%d max_sources=%d", q.DocumentID, q.Text, q.TopK, q.MaxSources)

	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidArgument)
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidArgument, q.TopK)
	}
	if q.MaxSources <= 0 {
		return nil, fmt.Errorf("%w: max_sources must be positive, got %d", domain.ErrInvalidArgument, q.MaxSources)
	}

	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if settings.Retrieval.AutoIndex {
		if err := s.ensureIndexed(ctx, q.DocumentID); err != nil {
			return nil, err
		}
	}

	sources, err := s.retriever.Retrieve(ctx, q.DocumentID, q.Text, q.TopK)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, q.Text, sources, q.MaxSources)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	answer.Confidence = ScoreConfidence(sources, answer, settings.Confidence)
	logger.Debug("Confidence %s (strength=%.3f coverage=%.3f)",
		answer.Confidence.Label, answer.Confidence.Strength, answer.Confidence.Coverage)

	result := buildResult(answer, sources, settings.Retrieval.PreviewChars)
	if settings.Audit.Enabled {
		s.record(ctx, q, answer, s.now().Sub(start))
	}
	return result, nil
}

// ensureIndexed chunks and embeds the document when its index is missing
// or stale. Status is read without locking so up-to-date documents never
// serialise concurrent queries.
func (s *AnswerService) ensureIndexed(ctx context.Context, documentID string) error {
	if s.documents == nil || s.indexer == nil {
		return nil
	}
	status, err := s.indexer.Status(ctx, documentID)
	if err != nil {
		return err
	}
	if status.Chunked && !status.Stale {
		return nil
	}

	logger.Debug("Index for %s is missing or stale, rebuilding", documentID)
	if _, err := s.documents.Chunk(ctx, documentID); err != nil {
		return err
	}
	_, err = s.indexer.Embed(ctx, documentID)
	return err
}

func (s *AnswerService) record(ctx context.Context, q domain.Query, answer *domain.Answer, latency time.Duration) {
	if s.answerLog == nil {
		return
	}
	cited := make([]string, len(answer.Citations))
	for i, c := range answer.Citations {
		cited[i] = c.ChunkID
	}
	err := s.answerLog.Record(ctx, domain.AnswerRecord{
		ID:              uuid.New().String(),
		DocumentID:      q.DocumentID,
		Query:           q.Text,
		AnswerText:      answer.Text,
		ConfidenceLabel: answer.Confidence.Label,
		CitedChunkIDs:   cited,
		Latency:         latency,
		CreatedAt:       s.now(),
	})
	if err != nil {
		logger.Warn("record answer: %v", err)
	}
}

// buildResult shapes an answer for the request surface.
func buildResult(answer *domain.Answer, sources []domain.RetrievedSource, previewChars int) *domain.AnswerResult {
	result := &domain.AnswerResult{
		AnswerText:      answer.Text,
		ConfidenceLabel: answer.Confidence.Label,
		Strength:        answer.Confidence.Strength,
		Coverage:        answer.Confidence.Coverage,
		Citations:       make([]domain.CitationView, len(answer.Citations)),
		Sources:         make([]domain.SourceView, len(sources)),
	}
	for i, c := range answer.Citations {
		result.Citations[i] = domain.CitationView{Ref: c.Ref, ChunkID: c.ChunkID, DocumentID: c.DocumentID}
	}
	for i, src := range sources {
		result.Sources[i] = src.View(previewChars)
	}
	return result
}
