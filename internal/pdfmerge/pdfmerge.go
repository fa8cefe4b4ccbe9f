// Package pdfmerge validates source PDFs and concatenates them into one document.
package pdfmerge

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	pdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrNotPDF is returned for data without a PDF header.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrCorrupt is returned when the document structure cannot be decoded.
	ErrCorrupt = errors.New("corrupt or unreadable PDF")
	// ErrEmpty is returned by WriteTo when nothing was appended.
	ErrEmpty = errors.New("no documents to merge")
)

// HasMagic reports whether data starts with the "%PDF-" header.
func HasMagic(data []byte) bool {
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount decodes the page tree and returns the number of pages. The
// document is also parsed by the merge writer so that anything accepted here
// can be merged later.
func PageCount(data []byte) (n int, err error) {
	if !HasMagic(data) {
		return 0, ErrNotPDF
	}
	defer func() {
		// the reader panics on some malformed cross-reference tables
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	n = r.NumPage()
	if n <= 0 {
		return 0, fmt.Errorf("%w: document has no pages", ErrCorrupt)
	}

	writerPages, err := api.PageCount(bytes.NewReader(data), newConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if writerPages != n {
		return 0, fmt.Errorf("%w: page tree disagreement (%d vs %d)", ErrCorrupt, n, writerPages)
	}
	return n, nil
}

// Merger accumulates validated documents in order. It is not safe for concurrent use.
type Merger struct {
	parts [][]byte
	pages int
	bytes int64
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Append validates data and adds its pages after those already appended.
// A rejected document leaves the Merger unchanged.
func (m *Merger) Append(data []byte) (int, error) {
	n, err := PageCount(data)
	if err != nil {
		return 0, err
	}
	m.parts = append(m.parts, data)
	m.pages += n
	m.bytes += int64(len(data))
	return n, nil
}

// Documents returns how many documents were appended.
func (m *Merger) Documents() int { return len(m.parts) }

// Pages returns the total page count of the appended documents.
func (m *Merger) Pages() int { return m.pages }

// WriteTo writes the consolidated PDF to w.
func (m *Merger) WriteTo(w io.Writer) (int64, error) {
	if len(m.parts) == 0 {
		return 0, ErrEmpty
	}
	cw := &countingWriter{w: w}
	if len(m.parts) == 1 {
		_, err := cw.Write(m.parts[0])
		return cw.n, err
	}

	rsc := make([]io.ReadSeeker, len(m.parts))
	for i, p := range m.parts {
		rsc[i] = bytes.NewReader(p)
	}
	if err := api.MergeRaw(rsc, cw, false, newConfig()); err != nil {
		return cw.n, fmt.Errorf("merge %d documents: %w", len(m.parts), err)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
