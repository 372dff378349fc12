package pdfextract

import (
	"fmt"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

// Document is the page-wise extraction result for one PDF file.
// TextByPage maps 1-based page numbers to raw page text; pages with no
// extractable text are omitted.
type Document struct {
	FileName   string
	TotalPages int
	TextByPage map[int]string
}

// Extractor pulls per-page plain text out of PDF files. Password
// protected or corrupted files fail the whole document.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s failed: %w", filepath.Base(path), err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make(map[int]string, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s failed: %w", i, filepath.Base(path), err)
		}
		if text != "" {
			pages[i] = text
		}
	}

	return &Document{
		FileName:   filepath.Base(path),
		TotalPages: total,
		TextByPage: pages,
	}, nil
}
