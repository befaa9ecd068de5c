// Package rag implements retrieval over the indexed document corpus: it
// embeds a query, searches the vector index, resolves the hits back to
// chunks and documents in the metadata store, and filters by a distance
// threshold. The retrieval layer depends on interfaces so the engine never
// binds to a specific embedding backend.
package rag

import (
	"context"

	"github.com/askdocs/askdocs-go/internal/store"
	"github.com/askdocs/askdocs-go/internal/vecindex"
)

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the vector-search surface the engine needs from the index.
type Searcher interface {
	// Search returns the k nearest neighbours of query in ascending
	// distance order.
	Search(query []float32, k int) ([]vecindex.Hit, error)
}

// ChunkSource resolves search hits back to chunk and document records.
type ChunkSource interface {
	GetChunk(ctx context.Context, id string) (*store.Chunk, error)
	GetDocument(ctx context.Context, id string) (*store.Document, error)
}

// Result is one retrieved chunk with its parent document and the distance
// the index assigned to it. Smaller distances mean closer matches.
type Result struct {
	Chunk    store.Chunk
	Document store.Document
	Distance float32
}
