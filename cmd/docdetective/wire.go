package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tkrief1/doc-detective/internal/adapters/driven/ai"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/catalog"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/config/file"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/storage/memory"
	"github.com/tkrief1/doc-detective/internal/adapters/driven/storage/sqlite"
	"github.com/tkrief1/doc-detective/internal/adapters/driving/cli"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/core/services"
	"github.com/tkrief1/doc-detective/internal/eval"
	"github.com/tkrief1/doc-detective/internal/logger"
	"github.com/tkrief1/doc-detective/internal/normalisers"
	"github.com/tkrief1/doc-detective/internal/normalisers/docx"
	"github.com/tkrief1/doc-detective/internal/normalisers/markdown"
	"github.com/tkrief1/doc-detective/internal/normalisers/pdf"
	"github.com/tkrief1/doc-detective/internal/normalisers/plaintext"
	"github.com/tkrief1/doc-detective/internal/postprocessors"
)

// catalogDir is the bleve index directory under the data directory.
const catalogDir = "catalog.bleve"

// stores groups the persistence ports used by the services.
type stores struct {
	documents driven.DocumentStore
	indexes   driven.IndexStore
	answers   driven.AnswerLog
	close     func() error
}

// wire builds the services for one command run.
func wire(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	dir := opts.DataDir
	if dir == "" {
		d, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	promptStore, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	// Invalid settings stay fixable through the config command; the
	// operations that depend on them report the error when run.
	if err := settingsService.Validate(); err != nil {
		logger.Warn("settings: %v", err)
	}

	st, err := openStores(opts, dir)
	if err != nil {
		return nil, err
	}

	cat, err := openCatalog(ctx, opts, dir, st.documents)
	if err != nil {
		st.close() //nolint:errcheck // already failing
		return nil, err
	}

	providers := ai.Init(settings, promptStore, false)
	calls := eval.NewCounter()
	embedder := calls.WrapEmbedder(providers.EmbeddingService)
	generator := calls.WrapGenerator(providers.Generator)

	registry := normalisers.NewRegistry(plaintext.New(), markdown.New(), pdf.New(), docx.New())
	pipelines := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(pipelines)

	gate := services.NewCapabilityGate(settings.Concurrency)
	locks := services.NewDocumentLocks()

	documentService := services.NewDocumentService(st.documents, st.indexes, registry, pipelines, settingsService, locks)
	documentService.SetCatalog(cat)
	indexService := services.NewIndexService(st.documents, st.indexes, embedder, gate, settingsService, locks)
	retriever := services.NewRetrievalService(st.indexes, embedder, gate)
	synthesizer := services.NewSynthesizer(generator, gate)
	answerService := services.NewAnswerService(documentService, indexService, retriever, synthesizer, settingsService)
	answerService.SetAnswerLog(st.answers)

	return &cli.Services{
		Document: documentService,
		Index:    indexService,
		Answer:   answerService,
		Settings: settingsService,
		Calls:    calls,
		WatchConfig: func(ctx context.Context) error {
			w, err := file.NewWatcher(configStore, func() {
				logger.Debug("settings reloaded from %s", configStore.Path())
			})
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
		Close: func() error {
			providers.Close()
			return errors.Join(cat.Close(), st.close())
		},
	}, nil
}

// openStores opens SQLite under dir, or in-memory stores when ephemeral.
func openStores(opts cli.Options, dir string) (*stores, error) {
	if opts.Ephemeral {
		return &stores{
			documents: memory.NewDocumentStore(),
			indexes:   memory.NewIndexStore(),
			answers:   memory.NewAnswerLog(),
			close:     func() error { return nil },
		}, nil
	}

	db, err := sqlite.NewStore(filepath.Join(dir, "data"))
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	logger.Debug("Using database %s", db.Path())
	return &stores{
		documents: db.DocumentStore(),
		indexes:   db.IndexStore(),
		answers:   db.AnswerLog(),
		close:     db.Close,
	}, nil
}

// openCatalog opens the keyword catalog and backfills it when it is empty
// but documents already exist.
func openCatalog(ctx context.Context, opts cli.Options, dir string, docs driven.DocumentStore) (*catalog.Catalog, error) {
	path := filepath.Join(dir, catalogDir)
	if opts.Ephemeral {
		path = ""
	}
	cat, err := catalog.New(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	count, err := cat.Count()
	if err != nil || count > 0 {
		return cat, nil
	}
	existing, err := docs.ListDocuments(ctx)
	if err != nil || len(existing) == 0 {
		return cat, nil
	}
	logger.Info("Rebuilding catalog for %d documents", len(existing))
	if err := cat.Rebuild(ctx, existing); err != nil {
		logger.Warn("catalog rebuild failed: %v", err)
	}
	return cat, nil
}
