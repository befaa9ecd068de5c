package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// insertTestDocument creates and stores a document for the given path.
func insertTestDocument(t *testing.T, s *SQLiteStore, path string) *Document {
	t.Helper()
	doc := &Document{
		ID:          uuid.New().String(),
		Path:        path,
		Name:        "doc.txt",
		Type:        "txt",
		SizeBytes:   42,
		ModifiedAt:  time.Now().Truncate(time.Second),
		IndexedAt:   time.Now().Truncate(time.Second),
		ContentHash: "abc123",
	}
	id, err := s.UpsertDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("upsert document: %v", err)
	}
	doc.ID = id
	return doc
}

func Test_Store_UpsertAndGetByPath(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc := insertTestDocument(t, s, "/docs/a.txt")

	got, err := s.GetDocumentByPath(ctx, "/docs/a.txt")
	if err != nil {
		t.Fatalf("get by path: %v", err)
	}
	if got.ID != doc.ID || got.ContentHash != "abc123" {
		t.Errorf("got %+v, want id %s hash abc123", got, doc.ID)
	}

	if _, err := s.GetDocumentByPath(ctx, "/docs/missing.txt"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("want ErrDocumentNotFound, got %v", err)
	}
}

func Test_Store_UpsertSamePathKeepsOneDocument(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	first := insertTestDocument(t, s, "/docs/a.txt")

	second := &Document{
		ID:          uuid.New().String(),
		Path:        "/docs/a.txt",
		Name:        "a.txt",
		Type:        "txt",
		SizeBytes:   100,
		ModifiedAt:  time.Now(),
		IndexedAt:   time.Now(),
		ContentHash: "def456",
	}
	id, err := s.UpsertDocument(ctx, second)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if id != first.ID {
		t.Errorf("upsert on same path must keep the original id, got %s want %s", id, first.ID)
	}

	n, err := s.DocumentCount(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("want 1 document, got %d", n)
	}

	got, err := s.GetDocumentByPath(ctx, "/docs/a.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ContentHash != "def456" {
		t.Errorf("hash not updated: %s", got.ContentHash)
	}
}

func Test_Store_SaveChunkAndSetEmbedding(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc := insertTestDocument(t, s, "/docs/a.txt")
	chunk := &Chunk{
		ID:            uuid.New().String(),
		DocumentID:    doc.ID,
		Ordinal:       0,
		Text:          "hello world",
		TokenEstimate: 2,
	}
	if err := s.SaveChunk(ctx, chunk); err != nil {
		t.Fatalf("save chunk: %v", err)
	}

	vec := []float32{0.125, -1.5, 3.25}
	if err := s.SetEmbedding(ctx, chunk.ID, vec, "test-embed-v1"); err != nil {
		t.Fatalf("set embedding: %v", err)
	}

	got, err := s.GetChunk(ctx, chunk.ID)
	if err != nil {
		t.Fatalf("get chunk: %v", err)
	}
	if got.EmbeddingModel != "test-embed-v1" {
		t.Errorf("model: got %q", got.EmbeddingModel)
	}
	if len(got.Embedding) != len(vec) {
		t.Fatalf("embedding length: got %d want %d", len(got.Embedding), len(vec))
	}
	for i := range vec {
		if math.Abs(float64(got.Embedding[i]-vec[i])) > 1e-6 {
			t.Errorf("embedding[%d]: got %v want %v", i, got.Embedding[i], vec[i])
		}
	}
}

func Test_Store_SetEmbeddingUnknownChunk(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	err := s.SetEmbedding(context.Background(), "no-such-chunk", []float32{1}, "m")
	if !errors.Is(err, ErrChunkNotFound) {
		t.Errorf("want ErrChunkNotFound, got %v", err)
	}
}

func Test_Store_DeleteDocumentCascades(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc := insertTestDocument(t, s, "/docs/a.txt")
	for i := range 3 {
		c := &Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Ordinal:    i,
			Text:       "chunk",
		}
		if err := s.SaveChunk(ctx, c); err != nil {
			t.Fatalf("save chunk %d: %v", i, err)
		}
		if err := s.SetEmbedding(ctx, c.ID, []float32{float32(i)}, "m"); err != nil {
			t.Fatalf("set embedding %d: %v", i, err)
		}
	}
	if err := s.SaveRawContent(ctx, doc.ID, "raw text"); err != nil {
		t.Fatalf("save raw: %v", err)
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("delete document: %v", err)
	}

	n, err := s.ChunkCount(ctx)
	if err != nil {
		t.Fatalf("chunk count: %v", err)
	}
	if n != 0 {
		t.Errorf("chunks not cascaded: %d remain", n)
	}
	embedded, err := s.CountChunksWithEmbedding(ctx)
	if err != nil {
		t.Fatalf("count embedded: %v", err)
	}
	if embedded != 0 {
		t.Errorf("embedded count after cascade: %d", embedded)
	}
}

func Test_Store_ListChunksOrdinalOrder(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc := insertTestDocument(t, s, "/docs/a.txt")
	// Insert out of order on purpose.
	for _, ordinal := range []int{2, 0, 1} {
		c := &Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Ordinal:    ordinal,
			Text:       "chunk",
		}
		if err := s.SaveChunk(ctx, c); err != nil {
			t.Fatalf("save chunk: %v", err)
		}
	}

	chunks, err := s.ListChunksForDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list chunks: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Ordinal != i {
			t.Errorf("chunks[%d].Ordinal = %d", i, c.Ordinal)
		}
	}
}

func Test_Store_CountChunksWithEmbedding(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc := insertTestDocument(t, s, "/docs/a.txt")
	withEmbedding := &Chunk{ID: uuid.New().String(), DocumentID: doc.ID, Ordinal: 0, Text: "a"}
	withoutEmbedding := &Chunk{ID: uuid.New().String(), DocumentID: doc.ID, Ordinal: 1, Text: "b"}
	if err := s.SaveChunk(ctx, withEmbedding); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveChunk(ctx, withoutEmbedding); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEmbedding(ctx, withEmbedding.ID, []float32{1, 2}, "m"); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountChunksWithEmbedding(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("want 1 embedded chunk, got %d", n)
	}

	pairs, err := s.EmbeddedChunks(ctx)
	if err != nil {
		t.Fatalf("embedded chunks: %v", err)
	}
	if len(pairs) != 1 || pairs[0].ChunkID != withEmbedding.ID {
		t.Errorf("unexpected embedded pairs: %+v", pairs)
	}
	if len(pairs[0].Vector) != 2 {
		t.Errorf("vector length: %d", len(pairs[0].Vector))
	}
}

func Test_Store_DeleteChunksForDocument(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc := insertTestDocument(t, s, "/docs/a.txt")
	other := insertTestDocument(t, s, "/docs/b.txt")
	for i := range 2 {
		if err := s.SaveChunk(ctx, &Chunk{ID: uuid.New().String(), DocumentID: doc.ID, Ordinal: i, Text: "x"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SaveChunk(ctx, &Chunk{ID: uuid.New().String(), DocumentID: other.ID, Ordinal: 0, Text: "y"}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.DeleteChunksForDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("delete chunks: %v", err)
	}
	if removed != 2 {
		t.Errorf("want 2 removed, got %d", removed)
	}
	n, _ := s.ChunkCount(ctx)
	if n != 1 {
		t.Errorf("other document's chunk should survive, count=%d", n)
	}
}

func TestVectorCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	vec := []float32{0, 1, -1, 0.5, float32(math.Pi), -123.456}
	decoded, err := DecodeVector(EncodeVector(vec))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(vec) {
		t.Fatalf("length: got %d want %d", len(decoded), len(vec))
	}
	for i := range vec {
		if decoded[i] != vec[i] {
			t.Errorf("decoded[%d] = %v, want %v", i, decoded[i], vec[i])
		}
	}
}

func TestVectorCodec_InvalidBlob(t *testing.T) {
	t.Parallel()

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("want error for blob not multiple of 4")
	}
	got, err := DecodeVector(nil)
	if err != nil || got != nil {
		t.Errorf("nil blob: got %v, %v", got, err)
	}
}
