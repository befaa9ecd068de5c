package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askdocs/askdocs-go/internal/config"
	"github.com/askdocs/askdocs-go/internal/embedder"
	"github.com/askdocs/askdocs-go/internal/extract"
	"github.com/askdocs/askdocs-go/internal/indexer"
	"github.com/askdocs/askdocs-go/internal/rag"
	"github.com/askdocs/askdocs-go/internal/store"
	"github.com/askdocs/askdocs-go/internal/vecindex"
)

// components bundles everything a command needs to touch the corpus.
type components struct {
	settings config.Settings
	store    *store.SQLiteStore
	index    *vecindex.FlatIndex
	embedder rag.Embedder
	orch     *indexer.Orchestrator
}

// close releases the underlying store.
func (c *components) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

// openComponents resolves the settings and constructs the store, vector
// index, embedder, and orchestrator. The index is loaded (and repaired from
// the store if its file pair is corrupt) before returning.
func openComponents(ctx context.Context, log *slog.Logger) (*components, error) {
	settings := config.Resolve()

	embCfg := embedder.Config{
		Backend:           settings.EmbeddingProvider,
		Model:             settings.EmbeddingModel,
		Endpoint:          settings.EmbeddingEndpoint,
		APIKey:            settings.EmbeddingAPIKey,
		Dimensions:        settings.EmbeddingDimensions,
		RequestsPerSecond: settings.EmbeddingRPS,
	}
	if err := embedder.Validate(embCfg, log); err != nil {
		return nil, err
	}
	emb, err := embedder.New(embCfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(settings.DBPath)
	if err != nil {
		return nil, err
	}

	idx := vecindex.New(settings.IndexDir, log)
	orch, err := indexer.New(st, idx, emb, extract.NewRegistry(), log, indexer.Config{
		DocsDir:        settings.DocsDir,
		ChunkMaxSize:   settings.ChunkMaxSize,
		ChunkOverlap:   settings.ChunkOverlap,
		EmbeddingModel: settings.EmbeddingModel,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := orch.EnsureIndex(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("loading vector index: %w", err)
	}

	return &components{
		settings: settings,
		store:    st,
		index:    idx,
		embedder: emb,
		orch:     orch,
	}, nil
}
