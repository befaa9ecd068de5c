// Package extract turns source documents into ordered sequences of raw text
// segments. Each supported file format has its own Extractor implementation;
// a Registry maps lowercase file extensions to extractors so that adding a
// new format is a registry entry, not a type switch.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedType is returned when no extractor is registered for a file's
// extension. Callers should reject the file before segmentation.
var ErrUnsupportedType = errors.New("extract: unsupported document type")

// Extractor produces the raw text segments of a single document.
// Implementations must not mutate the file.
type Extractor interface {
	// Extract reads the document at path and returns its text content as an
	// ordered sequence of segments (pages, sections, or the whole body).
	Extract(path string) ([]string, error)
}

// Registry maps lowercase file extensions (without the leading dot) to
// extractors. The zero value is not usable; construct with NewRegistry.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry pre-populated with the built-in extractors:
// txt, md (plain text), pdf, and docx.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register("txt", &PlainText{})
	r.Register("md", &PlainText{})
	r.Register("pdf", &PDF{})
	r.Register("docx", &DOCX{})
	return r
}

// Register associates an extractor with a file extension. The extension is
// normalised to lowercase without a leading dot. Registering an existing
// extension replaces the previous extractor.
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[normaliseExt(ext)] = e
}

// Lookup returns the extractor for the given file path, keyed by its
// extension. It returns ErrUnsupportedType when no extractor is registered.
func (r *Registry) Lookup(path string) (Extractor, error) {
	ext := normaliseExt(filepath.Ext(path))
	e, ok := r.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return e, nil
}

// Supports reports whether the registry can extract the file at path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.extractors[normaliseExt(filepath.Ext(path))]
	return ok
}

// Extensions returns the sorted list of registered extensions.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// normaliseExt lowercases an extension and strips the leading dot.
func normaliseExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}
