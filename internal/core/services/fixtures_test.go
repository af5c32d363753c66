package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/adapters/driven/embedding/hashing"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/llm/extractive"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/storage/memory"
	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/postprocessors"
)

const (
	franceText     = "The capital of France is Paris. The Eiffel Tower is in Paris."
	franceQuestion = "What is the capital of France?"
)

var errEmbedderDown = errors.New("embedder down")

// mutableSettings is a SettingsSource tests can change between calls.
type mutableSettings struct {
	mu       sync.Mutex
	settings domain.AppSettings
}

func (m *mutableSettings) Get() (*domain.AppSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings
	return &s, nil
}

func (m *mutableSettings) update(fn func(*domain.AppSettings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.settings)
}

// testSettings returns fast settings: small chunks, no rate limit and
// retries without delay.
func testSettings() domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Chunker = domain.ChunkerSettings{MaxChunkChars: 40, OverlapChars: 5, BoundaryPreference: true}
	s.Embedding.BatchSize = 1
	s.Concurrency = domain.ConcurrencySettings{
		EmbedWorkers: 2,
		CallTimeout:  time.Second,
		MaxRetries:   2,
	}
	return s
}

// countingEmbedder wraps the hashing embedder with call counting and
// injectable failures.
type countingEmbedder struct {
	driven.EmbeddingService
	model      string
	batchCalls atomic.Int32
	queryCalls atomic.Int32
	failBatch  atomic.Bool
	failQuery  atomic.Bool
	shortBatch atomic.Bool
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{EmbeddingService: hashing.NewEmbeddingService(hashing.Config{})}
}

func (e *countingEmbedder) ModelName() string {
	if e.model != "" {
		return e.model
	}
	return e.EmbeddingService.ModelName()
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.queryCalls.Add(1)
	if e.failQuery.Load() {
		return nil, errEmbedderDown
	}
	return e.EmbeddingService.Embed(ctx, text)
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	if e.failBatch.Load() {
		return nil, errEmbedderDown
	}
	vectors, err := e.EmbeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if e.shortBatch.Load() {
		for i := range vectors {
			vectors[i] = vectors[i][:len(vectors[i])-1]
		}
	}
	return vectors, nil
}

// scriptedGenerator returns queued results, then repeats the last one.
type scriptedGenerator struct {
	mu       sync.Mutex
	results  []scriptedResult
	calls    int
	evidence []domain.Evidence
}

type scriptedResult struct {
	gen domain.Generation
	err error
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(ctx context.Context, _ string, evidence []domain.Evidence) (domain.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evidence = evidence
	i := min(g.calls, len(g.results)-1)
	g.calls++
	if err := ctx.Err(); err != nil {
		return domain.Generation{}, err
	}
	return g.results[i].gen, g.results[i].err
}

// blockingGenerator waits for its context to end.
type blockingGenerator struct {
	started chan struct{}
}

func (g *blockingGenerator) Name() string { return "blocking" }

func (g *blockingGenerator) Generate(ctx context.Context, _ string, _ []domain.Evidence) (domain.Generation, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return domain.Generation{}, ctx.Err()
}

// testEnv wires the services over in-memory stores.
type testEnv struct {
	settings   *mutableSettings
	docStore   *memory.DocumentStore
	indexStore *memory.IndexStore
	answerLog  *memory.AnswerLog
	embedder   *countingEmbedder
	docs       *DocumentService
	index      *IndexService
	retriever  *RetrievalService
	answers    *AnswerService
}

func newTestEnv(t *testing.T, generator driven.AnswerGenerator) *testEnv {
	t.Helper()

	if generator == nil {
		generator = extractive.New()
	}
	settings := &mutableSettings{settings: testSettings()}
	current, err := settings.Get()
	require.NoError(t, err)

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	env := &testEnv{
		settings:   settings,
		docStore:   memory.NewDocumentStore(),
		indexStore: memory.NewIndexStore(),
		answerLog:  memory.NewAnswerLog(),
		embedder:   newCountingEmbedder(),
	}
	gate := NewCapabilityGate(current.Concurrency)
	locks := NewDocumentLocks()

	env.docs = NewDocumentService(env.docStore, env.indexStore, nil, registry, settings, locks)
	env.index = NewIndexService(env.docStore, env.indexStore, env.embedder, gate, settings, locks)
	env.retriever = NewRetrievalService(env.indexStore, env.embedder, gate)
	env.answers = NewAnswerService(env.docs, env.index, env.retriever, NewSynthesizer(generator, gate), settings)
	env.answers.SetAnswerLog(env.answerLog)
	return env
}

// addIndexed stores text as a document, chunks and embeds it.
func (e *testEnv) addIndexed(t *testing.T, text string) *domain.Document {
	t.Helper()
	ctx := context.Background()

	doc, err := e.docs.AddText(ctx, "test", text, nil)
	require.NoError(t, err)
	_, err = e.docs.Chunk(ctx, doc.ID)
	require.NoError(t, err)
	_, err = e.index.Embed(ctx, doc.ID)
	require.NoError(t, err)
	return doc
}
