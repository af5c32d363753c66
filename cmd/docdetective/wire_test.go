package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/cli"
	"github.com/tkrief1/doc-detective/internal/core/domain"
)

const franceText = `The capital of France is Paris. Paris lies on the Seine.

The Eiffel Tower was completed in 1889 for the World's Fair.`

func TestWire_EphemeralEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, err := wire(ctx, cli.Options{DataDir: t.TempDir(), Ephemeral: true})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })

	doc, err := svc.Document.AddText(ctx, "france", franceText, nil)
	require.NoError(t, err)

	set, err := svc.Document.Chunk(ctx, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, set.Chunks)

	entry, err := svc.Index.Embed(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(set.Chunks), entry.Len())

	result, err := svc.Answer.Answer(ctx, domain.Query{
		DocumentID: doc.ID,
		Text:       "What is the capital of France?",
		TopK:       5,
		MaxSources: 3,
	})
	require.NoError(t, err)
	assert.True(t, result.ConfidenceLabel.IsValid())
	assert.NotEmpty(t, result.AnswerText)
	assert.NotEmpty(t, result.Sources)
	assert.Positive(t, svc.Calls.Calls().Total())

	found, err := svc.Document.Find(ctx, "Eiffel", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, doc.ID, found[0].ID)
}

func TestWire_PersistentStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	svc, err := wire(ctx, cli.Options{DataDir: dir})
	require.NoError(t, err)
	doc, err := svc.Document.AddText(ctx, "france", franceText, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	_, statErr := os.Stat(filepath.Join(dir, catalogDir))
	assert.NoError(t, statErr)

	reopened, err := wire(ctx, cli.Options{DataDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, reopened.Close()) })

	got, err := reopened.Document.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, franceText, got.Content)
}
