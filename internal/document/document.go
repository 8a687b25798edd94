// Package document is the rendering collaborator: it opens a PDF and
// answers its page count and page sizes. Rasterisation happens in the
// webview; the Go side only needs dimensions to size the overlays.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdfviewer/internal/domain"
)

// Document is an opened PDF.
type Document struct {
	Path  string            `json:"path"`
	Pages []domain.PageDims `json:"pages"`
}

// Open reads the page dimensions of the PDF at path. Every failure wraps
// domain.ErrDocumentLoad.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentLoad, err)
	}
	doc, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Read reads the page dimensions of a PDF from rs.
func Read(rs io.ReadSeeker) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	dims, err := api.PageDims(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: page dimensions: %v", domain.ErrDocumentLoad, err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrDocumentLoad)
	}

	pages := make([]domain.PageDims, len(dims))
	for i, d := range dims {
		pages[i] = domain.PageDims{Page: i + 1, Width: d.Width, Height: d.Height}
	}
	return &Document{Pages: pages}, nil
}

// NumPages returns the number of pages.
func (d *Document) NumPages() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Page returns the dimensions of the 1-based page n.
func (d *Document) Page(n int) (domain.PageDims, bool) {
	if d == nil || n < 1 || n > len(d.Pages) {
		return domain.PageDims{}, false
	}
	return d.Pages[n-1], true
}
