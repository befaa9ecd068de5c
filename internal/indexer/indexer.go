// Package indexer orchestrates the document indexing pipeline. A reload
// scans the docs directory, diffs it against the metadata store by content
// hash, extracts and segments changed documents, embeds their chunks, and
// keeps the vector index consistent with the store: any divergence between
// index vector count and embedded chunk count triggers a rebuild from the
// store, which is the source of truth.
package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askdocs/askdocs-go/internal/extract"
	"github.com/askdocs/askdocs-go/internal/rag"
	"github.com/askdocs/askdocs-go/internal/segment"
	"github.com/askdocs/askdocs-go/internal/store"
	"github.com/askdocs/askdocs-go/internal/vecindex"
)

// embedBatchSize is the number of chunk texts sent per embed request.
const embedBatchSize = 16

// Config holds the orchestrator settings.
type Config struct {
	// DocsDir is the directory scanned for documents.
	DocsDir string

	// ChunkMaxSize is the maximum chunk size in characters.
	// Defaults to segment.DefaultMaxSize if zero.
	ChunkMaxSize int

	// ChunkOverlap is the overlap for oversized-paragraph windows.
	// Defaults to segment.DefaultOverlap if zero or invalid.
	ChunkOverlap int

	// EmbeddingModel is recorded on each chunk for provenance.
	EmbeddingModel string
}

// Options alters the behaviour of a single reload run.
type Options struct {
	// Full wipes the store and the index first, then reindexes every
	// document from scratch. This is the recovery path after changing the
	// embedding model: the rebuilt index takes its dimension from the new
	// embeddings.
	Full bool
}

// RunStats summarises one reload run.
type RunStats struct {
	DocsDiscovered int
	DocsNew        int
	DocsModified   int
	DocsUnchanged  int
	DocsRemoved    int
	DocsFailed     int
	ChunksIndexed  int
	ChunksFailed   int
	IndexRebuilt   bool
	Duration       time.Duration
}

// Orchestrator coordinates the store, the vector index, the extractor
// registry, and the embedder. It processes documents sequentially; runs are
// not safe to execute concurrently.
type Orchestrator struct {
	store    *store.SQLiteStore
	index    *vecindex.FlatIndex
	embedder rag.Embedder
	registry *extract.Registry
	log      *slog.Logger
	cfg      Config
}

// New constructs an Orchestrator from its dependencies.
func New(st *store.SQLiteStore, idx *vecindex.FlatIndex, emb rag.Embedder, reg *extract.Registry, log *slog.Logger, cfg Config) (*Orchestrator, error) {
	if st == nil {
		return nil, fmt.Errorf("indexer: store must not be nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("indexer: index must not be nil")
	}
	if emb == nil {
		return nil, fmt.Errorf("indexer: embedder must not be nil")
	}
	if reg == nil {
		reg = extract.NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.ChunkMaxSize <= 0 {
		cfg.ChunkMaxSize = segment.DefaultMaxSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkMaxSize {
		cfg.ChunkOverlap = segment.DefaultOverlap
	}
	return &Orchestrator{
		store:    st,
		index:    idx,
		embedder: emb,
		registry: reg,
		log:      log,
		cfg:      cfg,
	}, nil
}

// Reload synchronises the store and index with the docs directory. The run
// proceeds document by document; a failure on one document is logged and
// counted but does not abort the run, except for an embedding dimension
// mismatch, which is a configuration error and fails the whole run. Drift
// between the index and the store is reconciled before and after processing;
// a full reload wipes both and reindexes from scratch instead.
func (o *Orchestrator) Reload(ctx context.Context, opts Options) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{}

	if opts.Full {
		// Start from nothing so stale embeddings cannot survive the run.
		// Resetting the index also clears its dimension, which is what lets
		// a full reload adopt a new embedding model.
		o.log.Info("full reload: wiping store and index")
		if err := o.store.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("indexer: wipe store: %w", err)
		}
		if err := o.index.Reset(); err != nil {
			return nil, fmt.Errorf("indexer: reset index: %w", err)
		}
	} else {
		// Reconcile up front so retrieval done during a long run is not
		// serving results from an index that already disagrees with the
		// store.
		rebuilt, err := o.ReconcileDrift(ctx)
		if err != nil {
			return nil, err
		}
		stats.IndexRebuilt = rebuilt
	}

	files, err := o.discover()
	if err != nil {
		return nil, err
	}
	stats.DocsDiscovered = len(files)

	seen := make(map[string]bool, len(files))
	indexDirty := false

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("indexer: reload cancelled: %w", err)
		}
		seen[path] = true

		outcome, err := o.processFile(ctx, path, stats)
		if err != nil {
			if errors.Is(err, vecindex.ErrDimensionMismatch) {
				// A configuration error, not a bad document: every further
				// embed call would produce the same wrong size. Abort instead
				// of silently persisting an index the new embeddings can
				// never join.
				return nil, fmt.Errorf("indexer: %s: %w (embedding model changed? run a full reload)", path, err)
			}
			stats.DocsFailed++
			o.log.Error("document indexing failed",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		switch outcome {
		case outcomeNew:
			stats.DocsNew++
		case outcomeModified:
			stats.DocsModified++
			indexDirty = true
		case outcomeUnchanged:
			stats.DocsUnchanged++
		}
	}

	removed, err := o.removeMissing(ctx, seen)
	if err != nil {
		return nil, err
	}
	stats.DocsRemoved = removed
	if removed > 0 {
		indexDirty = true
	}

	// Modified and removed documents leave stale vectors behind; the index
	// is append-only, so removal means rebuilding from the store.
	if indexDirty {
		if err := o.RebuildIndex(ctx); err != nil {
			return nil, err
		}
		stats.IndexRebuilt = true
	} else {
		if rebuilt, err := o.ReconcileDrift(ctx); err != nil {
			return nil, err
		} else if rebuilt {
			stats.IndexRebuilt = true
		}
		if err := o.index.Persist(); err != nil {
			return nil, err
		}
	}

	stats.Duration = time.Since(start)
	o.log.Info("reload complete",
		slog.Int("discovered", stats.DocsDiscovered),
		slog.Int("new", stats.DocsNew),
		slog.Int("modified", stats.DocsModified),
		slog.Int("unchanged", stats.DocsUnchanged),
		slog.Int("removed", stats.DocsRemoved),
		slog.Int("failed", stats.DocsFailed),
		slog.Int("chunks_indexed", stats.ChunksIndexed),
		slog.Int("chunks_failed", stats.ChunksFailed),
		slog.Bool("index_rebuilt", stats.IndexRebuilt),
		slog.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// ReconcileDrift compares the index vector count with the number of embedded
// chunks in the store and rebuilds the index from the store when they
// disagree. Returns true when a rebuild happened.
func (o *Orchestrator) ReconcileDrift(ctx context.Context) (bool, error) {
	embedded, err := o.store.CountChunksWithEmbedding(ctx)
	if err != nil {
		return false, fmt.Errorf("indexer: count embedded chunks: %w", err)
	}
	vectors := o.index.Stats().VectorCount
	if vectors == embedded {
		return false, nil
	}

	o.log.Warn("index drift detected, rebuilding from store",
		slog.Int("index_vectors", vectors),
		slog.Int("store_embedded", embedded),
	)
	if err := o.RebuildIndex(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RebuildIndex discards the vector index and repopulates it from every
// embedded chunk in the store, then persists the result.
func (o *Orchestrator) RebuildIndex(ctx context.Context) error {
	err := o.index.Rebuild(func() ([]vecindex.Entry, error) {
		embedded, err := o.store.EmbeddedChunks(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]vecindex.Entry, len(embedded))
		for i, ec := range embedded {
			entries[i] = vecindex.Entry{Key: ec.ChunkID, Vector: ec.Vector}
		}
		return entries, nil
	})
	if err != nil {
		return fmt.Errorf("indexer: rebuild index: %w", err)
	}
	return o.index.Persist()
}

type fileOutcome int

const (
	outcomeNew fileOutcome = iota
	outcomeModified
	outcomeUnchanged
)

// processFile diffs one file against the store and indexes it when new or
// modified.
func (o *Orchestrator) processFile(ctx context.Context, path string, stats *RunStats) (fileOutcome, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(raw))

	existing, err := o.store.GetDocumentByPath(ctx, path)
	switch {
	case err == nil:
		if existing.ContentHash == hash {
			return outcomeUnchanged, nil
		}
		// Re-index from scratch: stale chunks go first so a crash mid-way
		// leaves missing chunks rather than duplicated ones.
		if _, err := o.store.DeleteChunksForDocument(ctx, existing.ID); err != nil {
			return 0, fmt.Errorf("delete stale chunks: %w", err)
		}
		if err := o.indexDocument(ctx, path, hash, stats); err != nil {
			return 0, err
		}
		return outcomeModified, nil

	case errors.Is(err, store.ErrDocumentNotFound):
		if err := o.indexDocument(ctx, path, hash, stats); err != nil {
			return 0, err
		}
		return outcomeNew, nil

	default:
		return 0, fmt.Errorf("look up document: %w", err)
	}
}

// indexDocument runs extract → segment → persist → embed → index for one
// file. Embedding failures are partial: chunks stay in the store without an
// embedding and are picked up by a later reload or rebuild.
func (o *Orchestrator) indexDocument(ctx context.Context, path, hash string, stats *RunStats) error {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, err := o.registry.Lookup(ext)
	if err != nil {
		return err
	}

	sections, err := extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	var chunks []string
	for _, section := range sections {
		chunks = append(chunks, segment.Segment(section, o.cfg.ChunkMaxSize, o.cfg.ChunkOverlap)...)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no extractable text in %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat file: %w", err)
	}

	doc := &store.Document{
		ID:          uuid.NewString(),
		Path:        path,
		Name:        filepath.Base(path),
		Type:        strings.TrimPrefix(ext, "."),
		SizeBytes:   info.Size(),
		ModifiedAt:  info.ModTime().UTC(),
		IndexedAt:   time.Now().UTC(),
		ContentHash: hash,
	}
	docID, err := o.store.UpsertDocument(ctx, doc)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if err := o.store.SaveRawContent(ctx, docID, strings.Join(sections, "\n\n")); err != nil {
		return fmt.Errorf("save raw content: %w", err)
	}

	saved := make([]store.Chunk, len(chunks))
	for i, text := range chunks {
		saved[i] = store.Chunk{
			ID:             uuid.NewString(),
			DocumentID:     docID,
			Ordinal:        i,
			Text:           text,
			TokenEstimate:  segment.EstimateTokens(text),
			EmbeddingModel: o.cfg.EmbeddingModel,
		}
		if err := o.store.SaveChunk(ctx, &saved[i]); err != nil {
			return fmt.Errorf("save chunk %d: %w", i, err)
		}
	}

	entries := o.embedChunks(ctx, saved, stats)
	if len(entries) > 0 {
		if _, err := o.index.AddBatch(entries); err != nil {
			return fmt.Errorf("add vectors: %w", err)
		}
	}

	o.log.Debug("document indexed",
		slog.String("path", path),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}

// embedChunks embeds saved chunks in batches and records the embeddings in
// the store. Failed batches are logged and skipped; successful ones are
// returned as index entries.
func (o *Orchestrator) embedChunks(ctx context.Context, chunks []store.Chunk, stats *RunStats) []vecindex.Entry {
	var entries []vecindex.Entry
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := o.embedder.Embed(ctx, texts)
		if err != nil || len(vectors) != len(batch) {
			if err == nil {
				err = fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vectors))
			}
			stats.ChunksFailed += len(batch)
			o.log.Warn("embedding batch failed, chunks left unembedded",
				slog.Int("chunks", len(batch)),
				slog.String("error", err.Error()),
			)
			continue
		}

		for i, c := range batch {
			if err := o.store.SetEmbedding(ctx, c.ID, vectors[i], c.EmbeddingModel); err != nil {
				stats.ChunksFailed++
				o.log.Warn("saving embedding failed",
					slog.String("chunk_id", c.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			entries = append(entries, vecindex.Entry{Key: c.ID, Vector: vectors[i]})
			stats.ChunksIndexed++
		}
	}
	return entries
}

// discover walks the docs directory and returns the paths of supported
// files, sorted by the walk order. Hidden files and directories are skipped.
func (o *Orchestrator) discover() ([]string, error) {
	var files []string
	err := filepath.WalkDir(o.cfg.DocsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != o.cfg.DocsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if o.registry.Supports(strings.ToLower(filepath.Ext(name))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("indexer: scan %s: %w", o.cfg.DocsDir, err)
	}
	return files, nil
}

// removeMissing deletes documents whose files no longer exist on disk.
func (o *Orchestrator) removeMissing(ctx context.Context, seen map[string]bool) (int, error) {
	docs, err := o.store.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("indexer: list documents: %w", err)
	}
	removed := 0
	for _, doc := range docs {
		if seen[doc.Path] {
			continue
		}
		if err := o.store.DeleteDocument(ctx, doc.ID); err != nil {
			return removed, fmt.Errorf("indexer: delete document %s: %w", doc.ID, err)
		}
		removed++
		o.log.Info("document removed from index", slog.String("path", doc.Path))
	}
	return removed, nil
}
