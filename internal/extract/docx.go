package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DOCX extracts text from Office Open XML word-processing documents by
// reading word/document.xml inside the ZIP container. Each non-empty
// paragraph becomes one segment.
type DOCX struct{}

// wordDocument mirrors the parts of word/document.xml we care about:
// body → paragraphs → runs → text elements.
type wordDocument struct {
	Body struct {
		Paragraphs []wordParagraph `xml:"p"`
	} `xml:"body"`
}

type wordParagraph struct {
	Runs []wordRun `xml:"r"`
}

type wordRun struct {
	Text []wordText `xml:"t"`
}

type wordText struct {
	Content string `xml:",chardata"`
}

// Extract opens the DOCX container at path and returns its paragraphs in
// document order.
func (DOCX) Extract(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open docx %s: %w", path, err)
	}
	defer zr.Close()

	var payload []byte
	for _, file := range zr.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("extract: docx %s: open document.xml: %w", path, err)
		}
		payload, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("extract: docx %s: read document.xml: %w", path, err)
		}
		break
	}
	if payload == nil {
		return nil, fmt.Errorf("extract: docx %s has no word/document.xml", path)
	}

	var doc wordDocument
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("extract: docx %s: parse document.xml: %w", path, err)
	}

	var segments []string
	for _, para := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				sb.WriteString(t.Content)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			segments = append(segments, text)
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("extract: docx %s contains no text", path)
	}
	return segments, nil
}
