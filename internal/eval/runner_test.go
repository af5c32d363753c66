package eval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// fakeDocuments implements driving.DocumentService for runner tests.
type fakeDocuments struct {
	ingested []string
	chunked  []string
	deleted  []string
	stored   []domain.Document
	chunkErr error
}

func (f *fakeDocuments) Ingest(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	f.ingested = append(f.ingested, raw.Filename)
	doc := domain.Document{ID: fmt.Sprintf("doc-%d", len(f.ingested)), Title: raw.Filename}
	f.stored = append(f.stored, doc)
	return &doc, nil
}

func (f *fakeDocuments) AddText(context.Context, string, string, []domain.Page) (*domain.Document, error) {
	return nil, errors.New("not used")
}

func (f *fakeDocuments) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeDocuments) List(context.Context) ([]domain.Document, error) {
	return append([]domain.Document(nil), f.stored...), nil
}

func (f *fakeDocuments) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	for i, d := range f.stored {
		if d.ID == id {
			f.stored = append(f.stored[:i], f.stored[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeDocuments) Find(context.Context, string, int) ([]domain.Document, error) {
	return nil, nil
}

func (f *fakeDocuments) Chunk(_ context.Context, id string) (*domain.ChunkSet, error) {
	if f.chunkErr != nil {
		return nil, f.chunkErr
	}
	f.chunked = append(f.chunked, id)
	return &domain.ChunkSet{DocumentID: id}, nil
}

func (f *fakeDocuments) Chunks(context.Context, string) (*domain.ChunkSet, error) {
	return nil, domain.ErrNotChunked
}

type fakeIndex struct{ embedded []string }

func (f *fakeIndex) Embed(_ context.Context, id string) (*domain.IndexEntry, error) {
	f.embedded = append(f.embedded, id)
	return &domain.IndexEntry{DocumentID: id}, nil
}

func (f *fakeIndex) Status(context.Context, string) (*domain.IndexStatus, error) {
	return nil, nil
}

// fakeAnswers answers from a table keyed by query and counts one
// generation per call through the shared counter.
type fakeAnswers struct {
	results map[string]*domain.AnswerResult
	gen     *Counter
	queries []domain.Query
}

func (f *fakeAnswers) Answer(ctx context.Context, q domain.Query) (*domain.AnswerResult, error) {
	f.queries = append(f.queries, q)
	if f.gen != nil {
		if _, err := f.gen.WrapGenerator(stubGenerator{}).Generate(ctx, q.Text, nil); err != nil {
			return nil, err
		}
	}
	res, ok := f.results[q.Text]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", q.DocumentID, domain.ErrEmptyIndex)
	}
	return res, nil
}

func (f *fakeAnswers) Retrieve(context.Context, string, string, int) ([]domain.RetrievedSource, error) {
	return nil, nil
}

func answerCiting(label domain.ConfidenceLabel, cited []int, sources ...int) *domain.AnswerResult {
	res := &domain.AnswerResult{ConfidenceLabel: label}
	for i, idx := range sources {
		res.Sources = append(res.Sources, domain.SourceView{
			Ref:        fmt.Sprintf("S%d", i+1),
			ChunkID:    domain.ChunkID("doc", idx),
			ChunkIndex: idx,
		})
	}
	for _, idx := range cited {
		res.Citations = append(res.Citations, domain.CitationView{ChunkID: domain.ChunkID("doc", idx)})
	}
	return res
}

func writeSuite(t *testing.T, yaml string) *Suite {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "france.txt"), []byte("Paris."), 0o600))
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	suite, err := LoadSuite(path)
	require.NoError(t, err)
	return suite
}

// stepClock advances by one second on every reading.
func stepClock() func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestRunner_Run(t *testing.T) {
	suite := writeSuite(t, `
cases:
  - name: capital
    document: france.txt
    query: capital?
    expected_citations: [0]
    expected_confidence: high
  - name: tower
    document: france.txt
    query: tower?
    expected_citations: [1, 2]
    expected_confidence: high
  - name: broken
    document_id: other
    query: unknown?
`)
	counter := NewCounter()
	docs := &fakeDocuments{}
	index := &fakeIndex{}
	answers := &fakeAnswers{
		gen: counter,
		results: map[string]*domain.AnswerResult{
			"capital?": answerCiting(domain.ConfidenceHigh, []int{0}, 0, 1),
			"tower?":   answerCiting(domain.ConfidenceMedium, []int{1, 3}, 1, 3, 2),
		},
	}

	runner := NewRunner(docs, index, answers, counter)
	runner.now = stepClock()

	report, err := runner.Run(context.Background(), suite)
	require.NoError(t, err)

	assert.Equal(t, []string{"france.txt"}, docs.ingested, "a shared document is ingested once")
	assert.Equal(t, []string{"doc-1"}, docs.chunked)
	assert.Equal(t, []string{"doc-1"}, index.embedded)

	require.Len(t, report.Results, 3)
	capital := report.Results[0]
	assert.Equal(t, "doc-1", capital.DocumentID)
	assert.Equal(t, []int{0}, capital.Cited)
	assert.InDelta(t, 1.0, capital.Precision, 1e-9)
	assert.InDelta(t, 1.0, capital.Recall, 1e-9)
	assert.True(t, capital.ConfidenceMatches())
	assert.Equal(t, time.Second, capital.Latency)
	assert.Equal(t, Calls{Generate: 1}, capital.Calls)

	tower := report.Results[1]
	assert.Equal(t, []int{1, 3}, tower.Cited)
	assert.InDelta(t, 0.5, tower.Precision, 1e-9)
	assert.InDelta(t, 0.5, tower.Recall, 1e-9)
	assert.False(t, tower.ConfidenceMatches())

	broken := report.Results[2]
	assert.Equal(t, "other", broken.DocumentID)
	assert.Contains(t, broken.Error, "empty index")

	assert.Equal(t, 2, report.Answered)
	assert.Equal(t, 1, report.Failed)
	assert.InDelta(t, 0.75, report.MeanPrecision, 1e-9)
	assert.InDelta(t, 0.75, report.MeanRecall, 1e-9)
	assert.Equal(t, time.Second, report.MeanLatency)
	assert.Equal(t, 1, report.LabelMatches)
	assert.Equal(t, 2, report.LabelChecks)
	assert.Equal(t, Calls{Generate: 3}, report.Calls)
	assert.Equal(t, "doc-1", answers.queries[0].DocumentID)
}

func TestRunner_Run_RetrievalDefaults(t *testing.T) {
	suite := writeSuite(t, `
cases:
  - document_id: doc-1
    query: capital?
  - document_id: doc-1
    query: capital?
    top_k: 2
`)
	answers := &fakeAnswers{results: map[string]*domain.AnswerResult{
		"capital?": answerCiting(domain.ConfidenceHigh, []int{0}, 0),
	}}
	runner := NewRunner(&fakeDocuments{}, nil, answers, nil)
	runner.SetRetrieval(domain.RetrievalSettings{TopK: 8, MaxSources: 4})

	_, err := runner.Run(context.Background(), suite)
	require.NoError(t, err)

	require.Len(t, answers.queries, 2)
	assert.Equal(t, 8, answers.queries[0].TopK)
	assert.Equal(t, 4, answers.queries[0].MaxSources)
	assert.Equal(t, 2, answers.queries[1].TopK)
	assert.Equal(t, 2, answers.queries[1].MaxSources, "max_sources never exceeds top_k")
}

func TestRunner_SetRetrieval_IgnoresNonPositive(t *testing.T) {
	runner := NewRunner(nil, nil, nil, nil)

	runner.SetRetrieval(domain.RetrievalSettings{})

	assert.Equal(t, domain.DefaultRetrievalSettings().TopK, runner.retrieval.TopK)
	assert.Equal(t, domain.DefaultRetrievalSettings().MaxSources, runner.retrieval.MaxSources)
}

func TestRunner_Run_WithoutIndexService(t *testing.T) {
	suite := writeSuite(t, "cases:\n  - document: france.txt\n    query: capital?\n")
	docs := &fakeDocuments{}
	answers := &fakeAnswers{results: map[string]*domain.AnswerResult{
		"capital?": answerCiting(domain.ConfidenceLow, nil, 0),
	}}

	report, err := NewRunner(docs, nil, answers, nil).Run(context.Background(), suite)
	require.NoError(t, err)

	assert.Empty(t, docs.chunked)
	require.Len(t, report.Results, 1)
	assert.Empty(t, report.Results[0].Cited)
	assert.InDelta(t, 1.0, report.Results[0].Precision, 1e-9)
	assert.InDelta(t, 1.0, report.Results[0].Recall, 1e-9)
}

func TestRunner_Run_LeavesLibraryUnchanged(t *testing.T) {
	suite := writeSuite(t, "cases:\n  - document: france.txt\n    query: capital?\n  - document: france.txt\n    query: tower?\n")
	docs := &fakeDocuments{stored: []domain.Document{{ID: "existing"}}}
	answers := &fakeAnswers{results: map[string]*domain.AnswerResult{
		"capital?": answerCiting(domain.ConfidenceHigh, []int{0}, 0),
	}}
	runner := NewRunner(docs, &fakeIndex{}, answers, nil)

	for run := 0; run < 3; run++ {
		_, err := runner.Run(context.Background(), suite)
		require.NoError(t, err)

		listed, err := docs.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []domain.Document{{ID: "existing"}}, listed, "run %d", run)
	}
	assert.Equal(t, []string{"doc-1", "doc-2", "doc-3"}, docs.deleted)
}

func TestRunner_Run_RemovesDocumentsOnFailure(t *testing.T) {
	suite := writeSuite(t, "cases:\n  - document: france.txt\n    query: q\n")
	docs := &fakeDocuments{chunkErr: domain.ErrEmptyDocument}

	_, err := NewRunner(docs, &fakeIndex{}, &fakeAnswers{}, nil).Run(context.Background(), suite)
	require.ErrorIs(t, err, domain.ErrEmptyDocument)

	assert.Equal(t, []string{"doc-1"}, docs.deleted)
	assert.Empty(t, docs.stored)
}

func TestRunner_Run_RemovesDocumentsOnCancel(t *testing.T) {
	suite := writeSuite(t, "cases:\n  - document: france.txt\n    query: q1\n  - document_id: d\n    query: q2\n")
	docs := &fakeDocuments{}
	ctx, cancel := context.WithCancel(context.Background())
	answers := &cancellingAnswers{cancel: cancel}

	_, err := NewRunner(docs, &fakeIndex{}, answers, nil).Run(ctx, suite)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"doc-1"}, docs.deleted)
	assert.Empty(t, docs.stored)
}

// cancellingAnswers cancels the run from inside the first answer.
type cancellingAnswers struct {
	fakeAnswers
	cancel context.CancelFunc
}

func (c *cancellingAnswers) Answer(ctx context.Context, _ domain.Query) (*domain.AnswerResult, error) {
	c.cancel()
	return nil, ctx.Err()
}

func TestRunner_Run_MissingDocument(t *testing.T) {
	suite := writeSuite(t, "cases:\n  - document: absent.txt\n    query: q\n")

	_, err := NewRunner(&fakeDocuments{}, nil, &fakeAnswers{}, nil).Run(context.Background(), suite)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunner_Run_Cancelled(t *testing.T) {
	suite := writeSuite(t, "cases:\n  - document_id: d\n    query: q\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(&fakeDocuments{}, nil, &fakeAnswers{}, nil).Run(ctx, suite)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrecisionRecall(t *testing.T) {
	tests := []struct {
		name          string
		cited         []int
		expected      []int
		wantPrecision float64
		wantRecall    float64
	}{
		{"exact", []int{0, 2}, []int{0, 2}, 1, 1},
		{"partial", []int{0, 1}, []int{0, 2}, 0.5, 0.5},
		{"duplicates count once", []int{0, 0, 0}, []int{0, 1}, 1, 0.5},
		{"nothing cited, nothing expected", nil, nil, 1, 1},
		{"nothing cited, something expected", nil, []int{3}, 0, 0},
		{"cited without expectation", []int{4}, nil, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, r := PrecisionRecall(tt.cited, tt.expected)
			assert.InDelta(t, tt.wantPrecision, p, 1e-9)
			assert.InDelta(t, tt.wantRecall, r, 1e-9)
		})
	}
}

func TestCitedChunks_IgnoresUnknownChunks(t *testing.T) {
	res := answerCiting(domain.ConfidenceMedium, []int{2, 7}, 2)
	assert.Equal(t, []int{2}, CitedChunks(res))
}
