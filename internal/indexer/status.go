package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/askdocs/askdocs-go/internal/vecindex"
)

// Status is a point-in-time snapshot of the store and index.
type Status struct {
	// Documents is the number of indexed documents.
	Documents int
	// Chunks is the total number of stored chunks.
	Chunks int
	// EmbeddedChunks is the number of chunks with an embedding.
	EmbeddedChunks int
	// IndexVectors is the number of vectors in the index.
	IndexVectors int
	// IndexDimension is the fixed vector dimension (0 if uninitialised).
	IndexDimension int
	// Drift reports whether the index disagrees with the store.
	Drift bool
}

// Status reports the current store and index counts without modifying
// anything.
func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	docs, err := o.store.DocumentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexer: count documents: %w", err)
	}
	chunks, err := o.store.ChunkCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexer: count chunks: %w", err)
	}
	embedded, err := o.store.CountChunksWithEmbedding(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexer: count embedded chunks: %w", err)
	}

	idx := o.index.Stats()
	return &Status{
		Documents:      docs,
		Chunks:         chunks,
		EmbeddedChunks: embedded,
		IndexVectors:   idx.VectorCount,
		IndexDimension: idx.Dimension,
		Drift:          idx.VectorCount != embedded,
	}, nil
}

// EnsureIndex loads the persisted index from disk. A corrupt file pair is
// reset and rebuilt from the store rather than surfaced as a fatal error.
func (o *Orchestrator) EnsureIndex(ctx context.Context) error {
	err := o.index.Load()
	if err == nil {
		return nil
	}
	if !errors.Is(err, vecindex.ErrCorruptIndex) {
		return fmt.Errorf("indexer: load index: %w", err)
	}

	o.log.Warn("persisted index is corrupt, rebuilding from store",
		slog.String("error", err.Error()),
	)
	if err := o.index.Reset(); err != nil {
		return fmt.Errorf("indexer: reset corrupt index: %w", err)
	}
	return o.RebuildIndex(ctx)
}
