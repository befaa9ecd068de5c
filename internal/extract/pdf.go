package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts text from PDF documents, one segment per page. Pages with no
// extractable text (scanned images, vector-only pages) are skipped.
type PDF struct{}

// Extract opens the PDF at path and returns the plain text of each page in
// page order.
func (PDF) Extract(path string) ([]string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open pdf %s: %w", path, err)
	}
	defer f.Close()

	var segments []string
	for i := 1; i <= rdr.NumPage(); i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// One unreadable page should not discard the rest of the document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		segments = append(segments, text)
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("extract: pdf %s contains no extractable text", path)
	}
	return segments, nil
}
