// Package store provides the SQLite-backed metadata store for indexed
// documents and their chunks. It records which documents have been embedded
// (keyed by content hash) and holds each chunk's serialised embedding, so the
// vector index can always be rebuilt from this store alone.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrDocumentNotFound is returned when a document lookup matches no row.
var ErrDocumentNotFound = errors.New("store: document not found")

// ErrChunkNotFound is returned when a chunk lookup or embedding update
// matches no row.
var ErrChunkNotFound = errors.New("store: chunk not found")

// Document is the relational record of one indexed source file. Identity is
// per source path; a changed content hash replaces the document and all of
// its chunks.
type Document struct {
	// ID is the unique identifier of the document record.
	ID string
	// Path is the absolute source path on disk. At most one live document
	// exists per path.
	Path string
	// Name is the display name (base name of the source file).
	Name string
	// Type is the document-type tag (file extension without dot).
	Type string
	// SizeBytes is the source file size at indexing time.
	SizeBytes int64
	// ModifiedAt is the source file's modification time at indexing time.
	ModifiedAt time.Time
	// IndexedAt is when the document was indexed.
	IndexedAt time.Time
	// ContentHash is the SHA-256 digest of the raw file bytes. A hash change
	// is the sole trigger for reindexing the document.
	ContentHash string
}

// Chunk is one bounded segment of a document's text, the unit of embedding
// and retrieval. Ordinals are contiguous and zero-based within a document.
type Chunk struct {
	// ID is the unique identifier of the chunk.
	ID string
	// DocumentID references the owning document.
	DocumentID string
	// Ordinal is the chunk's stable zero-based position within the document.
	Ordinal int
	// Text is the raw chunk text.
	Text string
	// TokenEstimate is an approximate token count for prompt budgeting.
	TokenEstimate int
	// Embedding is the chunk's embedding vector, nil until embedded. A chunk
	// without an embedding is not eligible for retrieval.
	Embedding []float32
	// EmbeddingModel identifies the model that produced the embedding.
	EmbeddingModel string
}

// EmbeddedChunk pairs a chunk identity with its stored embedding vector.
// It is the unit the vector index consumes when rebuilding from the store.
type EmbeddedChunk struct {
	// ChunkID is the chunk identity.
	ChunkID string
	// Vector is the decoded embedding.
	Vector []float32
}

// SQLiteStore is the metadata store backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the metadata database,
// ~/.askdocs/metadata.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".askdocs")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "metadata.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves read performance; foreign keys enforce the
	// document→chunk cascade at the engine level.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Single writer connection avoids SQLITE_BUSY under interleaved writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS documents (
    id            TEXT    PRIMARY KEY,
    path          TEXT    NOT NULL UNIQUE,
    name          TEXT    NOT NULL,
    type          TEXT    NOT NULL,
    size_bytes    INTEGER NOT NULL,
    modified_at   INTEGER NOT NULL,  -- Unix timestamp (seconds)
    indexed_at    INTEGER NOT NULL,  -- Unix timestamp (seconds)
    content_hash  TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
    id              TEXT    PRIMARY KEY,
    document_id     TEXT    NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    ordinal         INTEGER NOT NULL,
    text            TEXT    NOT NULL,
    token_estimate  INTEGER NOT NULL,
    embedding       BLOB,
    embedding_model TEXT,
    UNIQUE (document_id, ordinal)
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id);
CREATE TABLE IF NOT EXISTS raw_contents (
    document_id  TEXT    PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
    content      TEXT    NOT NULL,
    stored_at    INTEGER NOT NULL   -- Unix timestamp (seconds)
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// UpsertDocument inserts the document, or updates the existing record for the
// same path. It returns the id of the stored record, which may differ from
// doc.ID when a record for the path already existed.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *Document) (string, error) {
	const q = `
INSERT INTO documents (id, path, name, type, size_bytes, modified_at, indexed_at, content_hash)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    name = excluded.name,
    type = excluded.type,
    size_bytes = excluded.size_bytes,
    modified_at = excluded.modified_at,
    indexed_at = excluded.indexed_at,
    content_hash = excluded.content_hash`

	_, err := s.db.ExecContext(ctx, q,
		doc.ID, doc.Path, doc.Name, doc.Type, doc.SizeBytes,
		doc.ModifiedAt.Unix(), doc.IndexedAt.Unix(), doc.ContentHash)
	if err != nil {
		return "", fmt.Errorf("store: upsert document %s: %w", doc.Path, err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM documents WHERE path = ?`, doc.Path).Scan(&id); err != nil {
		return "", fmt.Errorf("store: upsert document %s: read back id: %w", doc.Path, err)
	}
	return id, nil
}

// GetDocument returns the document with the given id, or ErrDocumentNotFound.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	return s.getDocument(ctx, `SELECT id, path, name, type, size_bytes, modified_at, indexed_at, content_hash
FROM documents WHERE id = ?`, id)
}

// GetDocumentByPath returns the document indexed from the given source path,
// or ErrDocumentNotFound.
func (s *SQLiteStore) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	return s.getDocument(ctx, `SELECT id, path, name, type, size_bytes, modified_at, indexed_at, content_hash
FROM documents WHERE path = ?`, path)
}

func (s *SQLiteStore) getDocument(ctx context.Context, query string, arg any) (*Document, error) {
	var d Document
	var modified, indexed int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&d.ID, &d.Path, &d.Name, &d.Type, &d.SizeBytes, &modified, &indexed, &d.ContentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document: %w", err)
	}
	d.ModifiedAt = time.Unix(modified, 0)
	d.IndexedAt = time.Unix(indexed, 0)
	return &d, nil
}

// ListDocuments returns all documents ordered by path.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]Document, error) {
	const q = `SELECT id, path, name, type, size_bytes, modified_at, indexed_at, content_hash
FROM documents ORDER BY path`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var modified, indexed int64
		if err := rows.Scan(&d.ID, &d.Path, &d.Name, &d.Type, &d.SizeBytes, &modified, &indexed, &d.ContentHash); err != nil {
			return nil, fmt.Errorf("store: list documents scan: %w", err)
		}
		d.ModifiedAt = time.Unix(modified, 0)
		d.IndexedAt = time.Unix(indexed, 0)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list documents rows: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; its chunks and raw content cascade.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// SaveChunk inserts the chunk, or updates its text and token estimate when a
// chunk with the same id already exists.
func (s *SQLiteStore) SaveChunk(ctx context.Context, c *Chunk) error {
	const q = `
INSERT INTO chunks (id, document_id, ordinal, text, token_estimate, embedding, embedding_model)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    text = excluded.text,
    token_estimate = excluded.token_estimate`

	var blob []byte
	var model any
	if len(c.Embedding) > 0 {
		blob = EncodeVector(c.Embedding)
		model = c.EmbeddingModel
	}
	if _, err := s.db.ExecContext(ctx, q, c.ID, c.DocumentID, c.Ordinal, c.Text, c.TokenEstimate, blob, model); err != nil {
		return fmt.Errorf("store: save chunk %s: %w", c.ID, err)
	}
	return nil
}

// SetEmbedding attaches an embedding vector and its model identifier to an
// existing chunk. Returns ErrChunkNotFound when the chunk does not exist.
func (s *SQLiteStore) SetEmbedding(ctx context.Context, chunkID string, vec []float32, model string) error {
	const q = `UPDATE chunks SET embedding = ?, embedding_model = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, EncodeVector(vec), model, chunkID)
	if err != nil {
		return fmt.Errorf("store: set embedding for chunk %s: %w", chunkID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrChunkNotFound
	}
	return nil
}

// GetChunk returns the chunk with the given id, or ErrChunkNotFound.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	const q = `SELECT id, document_id, ordinal, text, token_estimate, embedding, embedding_model
FROM chunks WHERE id = ?`

	var c Chunk
	var blob []byte
	var model sql.NullString
	err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &c.TokenEstimate, &blob, &model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChunkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get chunk %s: %w", id, err)
	}
	vec, err := DecodeVector(blob)
	if err != nil {
		return nil, err
	}
	c.Embedding = vec
	c.EmbeddingModel = model.String
	return &c, nil
}

// ListChunksForDocument returns the document's chunks in ordinal order.
func (s *SQLiteStore) ListChunksForDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	const q = `SELECT id, document_id, ordinal, text, token_estimate, embedding, embedding_model
FROM chunks WHERE document_id = ? ORDER BY ordinal`

	rows, err := s.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks for %s: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		var model sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &c.TokenEstimate, &blob, &model); err != nil {
			return nil, fmt.Errorf("store: list chunks scan: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		c.Embedding = vec
		c.EmbeddingModel = model.String
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list chunks rows: %w", err)
	}
	return chunks, nil
}

// DeleteChunksForDocument removes all of a document's chunks and returns the
// number removed.
func (s *SQLiteStore) DeleteChunksForDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("store: delete chunks for %s: %w", documentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete chunks for %s: rows affected: %w", documentID, err)
	}
	return n, nil
}

// SaveRawContent stores (or replaces) the extracted raw text of a document.
func (s *SQLiteStore) SaveRawContent(ctx context.Context, documentID, content string) error {
	const q = `
INSERT INTO raw_contents (document_id, content, stored_at) VALUES (?, ?, ?)
ON CONFLICT(document_id) DO UPDATE SET content = excluded.content, stored_at = excluded.stored_at`
	if _, err := s.db.ExecContext(ctx, q, documentID, content, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: save raw content for %s: %w", documentID, err)
	}
	return nil
}

// CountChunksWithEmbedding returns the number of chunks carrying an
// embedding. The vector index is in sync iff its vector count equals this.
func (s *SQLiteStore) CountChunksWithEmbedding(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count embedded chunks: %w", err)
	}
	return n, nil
}

// DocumentCount returns the number of indexed documents.
func (s *SQLiteStore) DocumentCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count documents: %w", err)
	}
	return n, nil
}

// ChunkCount returns the total number of stored chunks.
func (s *SQLiteStore) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count chunks: %w", err)
	}
	return n, nil
}

// EmbeddedChunks returns the (chunk id, vector) pairs of every chunk carrying
// an embedding, in document/ordinal order. This is the rebuild source for the
// vector index.
func (s *SQLiteStore) EmbeddedChunks(ctx context.Context) ([]EmbeddedChunk, error) {
	const q = `SELECT id, embedding FROM chunks WHERE embedding IS NOT NULL ORDER BY document_id, ordinal`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: embedded chunks: %w", err)
	}
	defer rows.Close()

	var out []EmbeddedChunk
	for rows.Next() {
		var e EmbeddedChunk
		var blob []byte
		if err := rows.Scan(&e.ChunkID, &blob); err != nil {
			return nil, fmt.Errorf("store: embedded chunks scan: %w", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		e.Vector = vec
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: embedded chunks rows: %w", err)
	}
	return out, nil
}

// DeleteAll removes every document, chunk, and raw-content record. Used by
// the full reindex cycle.
func (s *SQLiteStore) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("store: delete all: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
