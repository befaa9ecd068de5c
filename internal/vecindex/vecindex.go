// Package vecindex implements a flat, exact nearest-neighbour index over
// fixed-dimension float32 vectors, persisted as a pair of files: a binary
// vector file and a JSON sidecar holding the key↔position mapping. The two
// files are only valid together; loading a half-present pair fails with
// ErrCorruptIndex and the caller is expected to rebuild from its source of
// truth.
//
// The index is append-only: entries are added in batches and never removed
// individually. Removal is expressed as a full rebuild from a caller-supplied
// source, mirroring how flat similarity structures behave.
package vecindex

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index's fixed dimension. It indicates a configuration error (for example
// the embedding model changed) and is fatal to the batch containing it.
var ErrDimensionMismatch = errors.New("vecindex: vector dimension mismatch")

// ErrEmptyIndex is returned by Search when the index holds no vectors.
// Callers should treat it as "no results", not as a fatal error.
var ErrEmptyIndex = errors.New("vecindex: index is empty")

// ErrCorruptIndex is returned when the persisted vector file and mapping
// sidecar are inconsistent with each other. The caller must treat the index
// as empty and rebuild it.
var ErrCorruptIndex = errors.New("vecindex: persisted index files are inconsistent")

const (
	// vectorsFile holds the similarity structure: header + raw float32 data.
	vectorsFile = "vectors.bin"
	// mappingFile is the sidecar holding the position-ordered key list.
	mappingFile = "mapping.json"

	// fileMagic identifies the vector file format.
	fileMagic = "ADVI"
	// fileVersion is the current vector file format version.
	fileVersion = 1
)

// Entry is one (key, vector) pair to be added to the index.
type Entry struct {
	// Key is the chunk identity the vector belongs to.
	Key string
	// Vector is the embedding, which must match the index dimension.
	Vector []float32
}

// Hit is one nearest-neighbour search result.
type Hit struct {
	// Key is the chunk identity of the matched vector.
	Key string
	// Distance is the squared Euclidean distance to the query; smaller is
	// more similar.
	Distance float32
}

// Stats summarises the index state.
type Stats struct {
	// VectorCount is the number of vectors currently held.
	VectorCount int
	// Dimension is the fixed vector dimension, 0 until the first add.
	Dimension int
	// Initialized reports whether the dimension has been fixed.
	Initialized bool
}

// FlatIndex is an exact L2 index over float32 vectors with a bidirectional
// key↔position mapping. It is not safe for concurrent use; the indexing
// pipeline is sequential by design.
type FlatIndex struct {
	// dir is the directory holding the persisted file pair.
	dir string
	// log is the structured logger for load/persist/rebuild events.
	log *slog.Logger

	// dim is the fixed vector dimension; 0 while uninitialised. The first
	// added vector fixes it for the index lifetime (until Reset).
	dim int
	// data holds all vectors row-major: vector i is data[i*dim:(i+1)*dim].
	data []float32
	// keys maps position → key.
	keys []string
	// pos maps key → position.
	pos map[string]int
}

// New constructs an empty FlatIndex rooted at dir. Call Load to restore
// previously persisted state.
func New(dir string, log *slog.Logger) *FlatIndex {
	if log == nil {
		log = slog.Default()
	}
	return &FlatIndex{
		dir: dir,
		log: log,
		pos: make(map[string]int),
	}
}

// Load restores the index from disk. A directory with neither file present
// loads as an empty index. A directory where only one of the pair exists, or
// where the two disagree, fails with ErrCorruptIndex; the in-memory index is
// left empty so the caller can rebuild.
func (x *FlatIndex) Load() error {
	x.reset()

	vecPath := filepath.Join(x.dir, vectorsFile)
	mapPath := filepath.Join(x.dir, mappingFile)

	vecExists := fileExists(vecPath)
	mapExists := fileExists(mapPath)

	switch {
	case !vecExists && !mapExists:
		return nil
	case vecExists != mapExists:
		return fmt.Errorf("%w: have %s=%v %s=%v", ErrCorruptIndex, vectorsFile, vecExists, mappingFile, mapExists)
	}

	dim, data, err := readVectors(vecPath)
	if err != nil {
		return err
	}
	keys, err := readMapping(mapPath)
	if err != nil {
		return err
	}

	count := 0
	if dim > 0 {
		count = len(data) / dim
	}
	if count != len(keys) {
		return fmt.Errorf("%w: %d vectors but %d keys", ErrCorruptIndex, count, len(keys))
	}

	x.dim = dim
	x.data = data
	x.keys = keys
	for i, k := range keys {
		x.pos[k] = i
	}

	x.log.Debug("vector index loaded",
		slog.Int("vectors", count),
		slog.Int("dimension", dim),
	)
	return nil
}

// AddBatch appends the given entries and returns the assigned key→position
// mapping for the entries actually added. Entries whose key is already
// present are skipped, making re-adds idempotent. The first vector of an
// uninitialised index fixes the dimension; any vector of a different length
// fails the whole batch with ErrDimensionMismatch before the index is
// mutated.
func (x *FlatIndex) AddBatch(entries []Entry) (map[string]int, error) {
	added := make(map[string]int)
	if len(entries) == 0 {
		return added, nil
	}

	// Validate the whole batch up front so a mid-batch mismatch cannot leave
	// the index partially mutated.
	dim := x.dim
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return nil, fmt.Errorf("%w: empty vector for key %s", ErrDimensionMismatch, e.Key)
		}
		if dim == 0 {
			dim = len(e.Vector)
		}
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("%w: key %s has dimension %d, index has %d", ErrDimensionMismatch, e.Key, len(e.Vector), dim)
		}
	}
	x.dim = dim

	for _, e := range entries {
		if _, exists := x.pos[e.Key]; exists {
			continue
		}
		position := len(x.keys)
		x.data = append(x.data, e.Vector...)
		x.keys = append(x.keys, e.Key)
		x.pos[e.Key] = position
		added[e.Key] = position
	}
	return added, nil
}

// Search returns the k nearest neighbours of query in ascending distance
// order. Fewer than k hits are returned when the index holds fewer vectors.
// An empty index fails with ErrEmptyIndex; a query of the wrong length fails
// with ErrDimensionMismatch.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if len(x.keys) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Hit, len(x.keys))
	for i := range x.keys {
		hits[i] = Hit{
			Key:      x.keys[i],
			Distance: l2Squared(query, x.data[i*x.dim:(i+1)*x.dim]),
		}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Rebuild discards the current structure and repopulates it from the entries
// returned by source — the only supported way to remove vectors. The
// dimension is re-derived from the source, so a rebuild adopts vectors from a
// new embedding model; an empty source keeps the established dimension. On
// source failure the index is left empty rather than half-populated.
func (x *FlatIndex) Rebuild(source func() ([]Entry, error)) error {
	entries, err := source()
	if err != nil {
		x.reset()
		return fmt.Errorf("vecindex: rebuild source: %w", err)
	}

	prevDim := x.dim
	x.reset()
	if len(entries) == 0 {
		// Nothing to derive a dimension from; keep the old one so the empty
		// index still rejects vectors of the wrong size later.
		x.dim = prevDim
	}

	if _, err := x.AddBatch(entries); err != nil {
		x.reset()
		return err
	}

	x.log.Info("vector index rebuilt",
		slog.Int("vectors", len(x.keys)),
		slog.Int("dimension", x.dim),
	)
	return nil
}

// Persist writes the vector file and the mapping sidecar. Each file is
// written to a temporary name then renamed, so a crash cannot leave a
// half-written file in place of a previously valid one.
func (x *FlatIndex) Persist() error {
	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("vecindex: create %s: %w", x.dir, err)
	}
	if err := writeVectors(filepath.Join(x.dir, vectorsFile), x.dim, x.data); err != nil {
		return err
	}
	if err := writeMapping(filepath.Join(x.dir, mappingFile), x.keys); err != nil {
		return err
	}
	x.log.Debug("vector index persisted",
		slog.Int("vectors", len(x.keys)),
		slog.String("dir", x.dir),
	)
	return nil
}

// Reset clears the in-memory state and removes both persisted files,
// returning the index to the uninitialised state.
func (x *FlatIndex) Reset() error {
	x.reset()
	for _, name := range []string{vectorsFile, mappingFile} {
		if err := os.Remove(filepath.Join(x.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("vecindex: remove %s: %w", name, err)
		}
	}
	return nil
}

// Stats returns the current vector count, dimension, and whether the
// dimension has been fixed.
func (x *FlatIndex) Stats() Stats {
	return Stats{
		VectorCount: len(x.keys),
		Dimension:   x.dim,
		Initialized: x.dim > 0,
	}
}

// Contains reports whether a key is present in the index.
func (x *FlatIndex) Contains(key string) bool {
	_, ok := x.pos[key]
	return ok
}

// reset clears the in-memory state only.
func (x *FlatIndex) reset() {
	x.dim = 0
	x.data = nil
	x.keys = nil
	x.pos = make(map[string]int)
}

// l2Squared returns the squared Euclidean distance between two equal-length
// vectors.
func l2Squared(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// fileExists reports whether path exists as a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// vectorFileHeader is the fixed-size header of the vector file.
type vectorFileHeader struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Count   uint32
}

// writeVectors writes the binary vector file: header followed by the raw
// little-endian float32 payload.
func writeVectors(path string, dim int, data []float32) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".vectors-*")
	if err != nil {
		return fmt.Errorf("vecindex: create temp vector file: %w", err)
	}
	defer os.Remove(tmp.Name())

	count := 0
	if dim > 0 {
		count = len(data) / dim
	}
	header := vectorFileHeader{
		Version: fileVersion,
		Dim:     uint32(dim),
		Count:   uint32(count),
	}
	copy(header.Magic[:], fileMagic)

	if err := binary.Write(tmp, binary.LittleEndian, &header); err != nil {
		tmp.Close()
		return fmt.Errorf("vecindex: write vector header: %w", err)
	}

	payload := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("vecindex: write vector payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vecindex: close temp vector file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("vecindex: rename vector file: %w", err)
	}
	return nil
}

// readVectors reads the binary vector file and returns its dimension and
// flat payload.
func readVectors(path string) (int, []float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, nil, fmt.Errorf("vecindex: read %s: %w", path, err)
	}

	const headerSize = 16
	if len(raw) < headerSize {
		return 0, nil, fmt.Errorf("%w: vector file too short (%d bytes)", ErrCorruptIndex, len(raw))
	}
	if string(raw[:4]) != fileMagic {
		return 0, nil, fmt.Errorf("%w: bad vector file magic", ErrCorruptIndex)
	}
	version := binary.LittleEndian.Uint32(raw[4:])
	if version != fileVersion {
		return 0, nil, fmt.Errorf("%w: unsupported vector file version %d", ErrCorruptIndex, version)
	}
	dim := int(binary.LittleEndian.Uint32(raw[8:]))
	count := int(binary.LittleEndian.Uint32(raw[12:]))

	payload := raw[headerSize:]
	if len(payload) != dim*count*4 {
		return 0, nil, fmt.Errorf("%w: vector payload is %d bytes, want %d", ErrCorruptIndex, len(payload), dim*count*4)
	}

	data := make([]float32, dim*count)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return dim, data, nil
}

// indexMapping is the JSON shape of the mapping sidecar. Position i in Keys
// is the key of vector i; the inverse mapping is derived on load.
type indexMapping struct {
	Keys []string `json:"keys"`
}

// writeMapping writes the JSON sidecar via temp-and-rename.
func writeMapping(path string, keys []string) error {
	payload, err := json.Marshal(indexMapping{Keys: keys})
	if err != nil {
		return fmt.Errorf("vecindex: marshal mapping: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mapping-*")
	if err != nil {
		return fmt.Errorf("vecindex: create temp mapping file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("vecindex: write mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vecindex: close temp mapping file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("vecindex: rename mapping file: %w", err)
	}
	return nil
}

// readMapping reads the JSON sidecar.
func readMapping(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vecindex: read %s: %w", path, err)
	}
	var m indexMapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: mapping sidecar is not valid JSON: %v", ErrCorruptIndex, err)
	}
	return m.Keys, nil
}
