package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askdocs/askdocs-go/internal/store"
	"github.com/askdocs/askdocs-go/internal/vecindex"
)

// DefaultTopK is the number of results returned when the caller passes 0.
const DefaultTopK = 5

// DefaultMaxDistance is the squared-L2 cutoff above which hits are dropped.
// Hits at exactly the cutoff are kept.
const DefaultMaxDistance float32 = 1.2

// Engine retrieves relevant chunks for a query by embedding it, searching
// the vector index, and resolving hits through the metadata store.
// It is safe for concurrent use as long as its dependencies are.
type Engine struct {
	embedder Embedder
	index    Searcher
	source   ChunkSource
	log      *slog.Logger

	// topK is the fallback result count when Retrieve is called with k=0.
	topK int
	// maxDistance drops hits further than this squared-L2 distance.
	maxDistance float32
}

// Option customises an Engine at construction time.
type Option func(*Engine)

// WithTopK sets the fallback result count used when a caller passes k=0.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithMaxDistance sets the distance cutoff. Zero or negative disables the
// filter entirely.
func WithMaxDistance(d float32) Option {
	return func(e *Engine) { e.maxDistance = d }
}

// NewEngine constructs a retrieval engine over the given embedder, vector
// index, and chunk source.
func NewEngine(embedder Embedder, index Searcher, source ChunkSource, log *slog.Logger, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("rag: chunk source must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		embedder:    embedder,
		index:       index,
		source:      source,
		log:         log,
		topK:        DefaultTopK,
		maxDistance: DefaultMaxDistance,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Retrieve embeds the query and returns up to k results ordered by ascending
// distance. k=0 uses the engine default. An empty index yields no results
// rather than an error.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("rag: query must not be empty")
	}

	embeddings, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("rag: embedder returned no vector for query")
	}

	return e.RetrieveVector(ctx, embeddings[0], k)
}

// RetrieveVector searches the index with a pre-computed query vector. Hits
// beyond the distance cutoff are dropped; hits whose chunk or document no
// longer exists in the metadata store are skipped and logged, since the
// index can momentarily trail the store between reloads.
func (e *Engine) RetrieveVector(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if k <= 0 {
		k = e.topK
	}

	hits, err := e.index.Search(vector, k)
	if err != nil {
		if errors.Is(err, vecindex.ErrEmptyIndex) {
			return nil, nil
		}
		return nil, fmt.Errorf("rag: vector search: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if e.maxDistance > 0 && hit.Distance > e.maxDistance {
			// Hits arrive in ascending distance order, everything after
			// the first miss is also too far.
			break
		}

		chunk, err := e.source.GetChunk(ctx, hit.Key)
		if err != nil {
			if errors.Is(err, store.ErrChunkNotFound) {
				e.log.Debug("skipping stale index entry", slog.String("chunk_id", hit.Key))
				continue
			}
			return nil, fmt.Errorf("rag: resolve chunk %s: %w", hit.Key, err)
		}

		doc, err := e.source.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				e.log.Debug("skipping chunk of removed document",
					slog.String("chunk_id", hit.Key),
					slog.String("document_id", chunk.DocumentID),
				)
				continue
			}
			return nil, fmt.Errorf("rag: resolve document %s: %w", chunk.DocumentID, err)
		}

		results = append(results, Result{
			Chunk:    *chunk,
			Document: *doc,
			Distance: hit.Distance,
		})
	}
	return results, nil
}

// FormatContext renders results as a prompt context block: one section per
// result, labelled with the source document name and chunk position.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s (part %d)\n%s", i+1, r.Document.Name, r.Chunk.Ordinal+1, r.Chunk.Text)
	}
	return b.String()
}
