package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})

	return store
}

// createTestDocument creates a test document to satisfy foreign key constraints.
func createTestDocument(t *testing.T, store *Store, docID string, created time.Time) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:          docID,
		Title:       "Test Document " + docID,
		Filename:    docID + ".txt",
		ContentType: "text/plain",
		SizeBytes:   61,
		Content:     "The capital of France is Paris. The Eiffel Tower is in Paris.",
		CreatedAt:   created,
	}
	require.NoError(t, store.DocumentStore().SaveDocument(context.Background(), doc))
	return doc
}

func intPtr(v int) *int { return &v }

func testChunkSet(docID, fingerprint string, n int, created time.Time) *domain.ChunkSet {
	set := &domain.ChunkSet{
		DocumentID:  docID,
		Settings:    domain.ChunkerSettings{MaxChunkChars: 40, OverlapChars: 5, BoundaryPreference: true},
		Fingerprint: fingerprint,
		CreatedAt:   created,
	}
	for i := 0; i < n; i++ {
		c := domain.Chunk{
			ID:         domain.ChunkID(docID, i),
			DocumentID: docID,
			Index:      i,
			Start:      i * 30,
			End:        i*30 + 35,
			Content:    fmt.Sprintf("chunk %d of %s", i, fingerprint),
		}
		if i%2 == 1 {
			c.Page = intPtr(i)
		}
		set.Chunks = append(set.Chunks, c)
	}
	return set
}

func testIndexEntry(docID, fingerprint string, n int, built time.Time) *domain.IndexEntry {
	entry := &domain.IndexEntry{
		DocumentID:          docID,
		Model:               "hashing-blake2b",
		Dimensions:          3,
		ChunkSetFingerprint: fingerprint,
		BuiltAt:             built,
	}
	for _, c := range testChunkSet(docID, fingerprint, n, built).Chunks {
		entry.Entries = append(entry.Entries, domain.IndexedChunk{
			Chunk:     c,
			Embedding: domain.Embedding{Model: entry.Model, Vector: []float32{float32(c.Index), 0.5, -1.25}},
		})
	}
	return entry
}

// ==================== Store Creation and Initialization Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	_, err = os.Stat(store.Path())
	assert.NoError(t, err)

	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)

	store, err := NewStore(dir)
	require.NoError(t, err)
	createTestDocument(t, store, "doc-1", now)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	version, err := reopened.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	doc, err := reopened.DocumentStore().GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Test Document doc-1", doc.Title)
}

// ==================== Document Store Tests ====================

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	doc := &domain.Document{
		ID:          "doc-1",
		Title:       "Report",
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2048,
		Content:     "page one\fpage two",
		Pages:       []domain.Page{{Number: 1, Offset: 0}, {Number: 2, Offset: 9}},
		CreatedAt:   now,
	}
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, doc))

	got, err := store.DocumentStore().GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, doc.ContentType, got.ContentType)
	assert.Equal(t, doc.SizeBytes, got.SizeBytes)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Pages, got.Pages)
	assert.True(t, doc.CreatedAt.Equal(got.CreatedAt))
}

func TestDocumentStore_NoPages(t *testing.T) {
	store := setupTestStore(t)
	createTestDocument(t, store, "doc-1", time.Now().UTC())

	got, err := store.DocumentStore().GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Nil(t, got.Pages)
}

func TestDocumentStore_GetNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.DocumentStore().GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	base := time.Now().UTC().Truncate(time.Second)

	createTestDocument(t, store, "old", base)
	createTestDocument(t, store, "new", base.Add(time.Minute))
	createTestDocument(t, store, "mid", base.Add(30*time.Second))

	docs, err := store.DocumentStore().ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "mid", docs[1].ID)
	assert.Equal(t, "old", docs[2].ID)
}

func TestDocumentStore_ListEmpty(t *testing.T) {
	store := setupTestStore(t)

	docs, err := store.DocumentStore().ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentStore_ReplaceChunks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)

	first := testChunkSet("doc-1", "fp-1", 4, now)
	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, first))

	second := testChunkSet("doc-1", "fp-2", 2, now.Add(time.Second))
	second.Settings = domain.ChunkerSettings{MaxChunkChars: 100, OverlapChars: 10, BoundaryTolerance: 7}
	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, second))

	got, err := store.DocumentStore().GetChunkSet(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-2", got.Fingerprint)
	assert.Equal(t, second.Settings, got.Settings)
	assert.Equal(t, second.Chunks, got.Chunks)
	assert.True(t, second.CreatedAt.Equal(got.CreatedAt))
}

func TestDocumentStore_ReplaceChunksUnknownDocument(t *testing.T) {
	store := setupTestStore(t)

	err := store.DocumentStore().ReplaceChunks(context.Background(), testChunkSet("missing", "fp", 1, time.Now()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_GetChunkSetNotChunked(t *testing.T) {
	store := setupTestStore(t)
	createTestDocument(t, store, "doc-1", time.Now().UTC())

	_, err := store.DocumentStore().GetChunkSet(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteRemovesEverything(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)
	createTestDocument(t, store, "doc-2", now)

	require.NoError(t, store.DocumentStore().ReplaceChunks(ctx, testChunkSet("doc-1", "fp", 3, now)))
	require.NoError(t, store.IndexStore().Swap(ctx, testIndexEntry("doc-1", "fp", 3, now)))

	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, "doc-1"))

	_, err := store.DocumentStore().GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.DocumentStore().GetChunkSet(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.IndexStore().Load(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.DocumentStore().GetDocument(ctx, "doc-2")
	assert.NoError(t, err)
}

func TestDocumentStore_DeleteMissingIsNoop(t *testing.T) {
	store := setupTestStore(t)

	assert.NoError(t, store.DocumentStore().DeleteDocument(context.Background(), "missing"))
}

// ==================== Index Store Tests ====================

func TestIndexStore_LoadMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.IndexStore().Load(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexStore_SwapAndLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)

	entry := testIndexEntry("doc-1", "fp-1", 3, now)
	require.NoError(t, store.IndexStore().Swap(ctx, entry))

	got, err := store.IndexStore().Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Model, got.Model)
	assert.Equal(t, entry.Dimensions, got.Dimensions)
	assert.Equal(t, entry.ChunkSetFingerprint, got.ChunkSetFingerprint)
	assert.True(t, entry.BuiltAt.Equal(got.BuiltAt))
	assert.Equal(t, entry.Entries, got.Entries)
	assert.True(t, got.Matches("fp-1", "hashing-blake2b", 3))
}

func TestIndexStore_SwapReplacesWholeEntry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)

	require.NoError(t, store.IndexStore().Swap(ctx, testIndexEntry("doc-1", "fp-1", 5, now)))
	require.NoError(t, store.IndexStore().Swap(ctx, testIndexEntry("doc-1", "fp-2", 2, now)))

	got, err := store.IndexStore().Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-2", got.ChunkSetFingerprint)
	assert.Equal(t, 2, got.Len())
}

func TestIndexStore_SwapInvalid(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.IndexStore().Swap(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.IndexStore().Swap(ctx, &domain.IndexEntry{}), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.IndexStore().Swap(ctx, testIndexEntry("missing", "fp", 1, time.Now())), domain.ErrNotFound)
}

func TestIndexStore_FailedSwapKeepsPreviousEntry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)
	require.NoError(t, store.IndexStore().Swap(ctx, testIndexEntry("doc-1", "fp-1", 3, now)))

	// Duplicate positions violate the primary key partway through the insert.
	bad := testIndexEntry("doc-1", "fp-2", 3, now)
	bad.Entries[2].Chunk.Index = 0
	require.Error(t, store.IndexStore().Swap(ctx, bad))

	got, err := store.IndexStore().Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "fp-1", got.ChunkSetFingerprint)
	assert.Equal(t, 3, got.Len())
}

func TestIndexStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)
	require.NoError(t, store.IndexStore().Swap(ctx, testIndexEntry("doc-1", "fp", 2, now)))

	require.NoError(t, store.IndexStore().Delete(ctx, "doc-1"))

	_, err := store.IndexStore().Load(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.DocumentStore().GetDocument(ctx, "doc-1")
	assert.NoError(t, err)
}

func TestIndexStore_ReadersNeverSeeMixedEntries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)

	sizes := map[string]int{"fp-a": 6, "fp-b": 3}
	require.NoError(t, store.IndexStore().Swap(ctx, testIndexEntry("doc-1", "fp-a", 6, now)))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				entry, err := store.IndexStore().Load(ctx, "doc-1")
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, sizes[entry.ChunkSetFingerprint], entry.Len())
				for _, ic := range entry.Entries {
					assert.Contains(t, ic.Chunk.Content, entry.ChunkSetFingerprint)
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		fp := "fp-a"
		if i%2 == 0 {
			fp = "fp-b"
		}
		require.NoError(t, store.IndexStore().Swap(ctx, testIndexEntry("doc-1", fp, sizes[fp], now)))
	}
	close(stop)
	wg.Wait()
}

// ==================== Answer Log Tests ====================

func TestAnswerLog_RecordAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	log := store.AnswerLog()

	records := []domain.AnswerRecord{
		{ID: "a1", DocumentID: "doc-1", Query: "q1", AnswerText: "A1.", ConfidenceLabel: domain.ConfidenceHigh,
			CitedChunkIDs: []string{"doc-1:0"}, Latency: 1500 * time.Millisecond, CreatedAt: now},
		{ID: "a2", DocumentID: "doc-2", Query: "q2", ConfidenceLabel: domain.ConfidenceLow, CreatedAt: now},
		{ID: "a3", DocumentID: "doc-1", Query: "q3", AnswerText: "A3.", ConfidenceLabel: domain.ConfidenceMedium,
			CitedChunkIDs: []string{"doc-1:0", "doc-1:2"}, CreatedAt: now},
	}
	for _, r := range records {
		require.NoError(t, log.Record(ctx, r))
	}

	all, err := log.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a3", "a2", "a1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	doc1, err := log.List(ctx, "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, doc1, 2)
	assert.Equal(t, "a3", doc1[0].ID)
	assert.Equal(t, []string{"doc-1:0", "doc-1:2"}, doc1[0].CitedChunkIDs)
	assert.Equal(t, domain.ConfidenceMedium, doc1[0].ConfidenceLabel)
	assert.Equal(t, 1500*time.Millisecond, doc1[1].Latency)
	assert.True(t, now.Equal(doc1[1].CreatedAt))

	limited, err := log.List(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "a3", limited[0].ID)

	doc2, err := log.List(ctx, "doc-2", 0)
	require.NoError(t, err)
	require.Len(t, doc2, 1)
	assert.Empty(t, doc2[0].CitedChunkIDs)
}

func TestAnswerLog_SurvivesDocumentDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	createTestDocument(t, store, "doc-1", now)

	require.NoError(t, store.AnswerLog().Record(ctx, domain.AnswerRecord{
		ID: "a1", DocumentID: "doc-1", Query: "q", ConfidenceLabel: domain.ConfidenceLow, CreatedAt: now,
	}))
	require.NoError(t, store.DocumentStore().DeleteDocument(ctx, "doc-1"))

	records, err := store.AnswerLog().List(ctx, "doc-1", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

// ==================== Helper Function Tests ====================

func TestFloat32Conversion(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, bytesToFloat32Slice(nil))
	assert.Empty(t, float32SliceToBytes(nil))
}
