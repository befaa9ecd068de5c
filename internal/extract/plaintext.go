package extract

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// PlainText extracts the content of UTF-8 text files (txt, md) as a single
// segment. Invalid byte sequences are replaced rather than rejected so a
// stray encoding problem does not block indexing of the rest of the file.
type PlainText struct{}

// Extract reads the whole file and returns it as one segment. Empty files
// yield an empty slice.
func (PlainText) Extract(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return []string{text}, nil
}
