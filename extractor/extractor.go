// Package extractor converts uploaded files to plain text. The extractor is
// chosen by the lowercase file extension only; content is never sniffed, so a
// mislabeled file yields wrong or empty text.
package extractor

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Itish41/DocIntel/apperrors"
)

// Extractor converts one document to plain text. Empty input yields "".
type Extractor interface {
	Extract(r io.Reader) (string, error)
}

// Func adapts a function to Extractor.
type Func func(r io.Reader) (string, error)

func (f Func) Extract(r io.Reader) (string, error) { return f(r) }

// Registry dispatches on file extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a Registry with the PDF, DOCX, XLSX and TXT extractors.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".pdf", Func(ExtractPDF))
	r.Register(".docx", Func(ExtractDOCX))
	r.Register(".xlsx", Func(ExtractXLSX))
	r.Register(".txt", Func(ExtractTXT))
	return r
}

// Register binds ext (with or without the leading dot, any case) to e.
func (r *Registry) Register(ext string, e Extractor) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.byExt[ext] = e
}

// For returns the extractor for path's extension.
func (r *Registry) For(path string) (Extractor, bool) {
	e, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Extract reads src with the extractor registered for path's extension.
// Unsupported extensions yield "" and no error. Parse errors and parser
// panics are reported as ErrExtractionFailure.
func (r *Registry) Extract(path string, src io.Reader) (text string, err error) {
	e, ok := r.For(path)
	if !ok {
		return "", nil
	}

	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = apperrors.New(apperrors.ErrExtractionFailure, "extract "+filepath.Base(path), fmt.Errorf("parser panic: %v", p))
		}
	}()

	text, err = e.Extract(src)
	if err != nil {
		return "", apperrors.New(apperrors.ErrExtractionFailure, "extract "+filepath.Base(path), err)
	}
	return text, nil
}
