// Package extract defines the document-text extraction boundary.
//
// An Extractor turns an uploaded file into the plain text the analysis
// pipeline consumes. Scanned pages that required OCR are reported by index so
// callers can flag lower-confidence input.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Sentinel errors returned by Extract implementations. Wrap with
// fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrUnsupportedFileType indicates the file extension or magic bytes are
	// not handled by this extractor.
	ErrUnsupportedFileType = errors.New("extract: unsupported file type")

	// ErrParseFailure indicates the file matched a supported type but could
	// not be parsed into text.
	ErrParseFailure = errors.New("extract: parse failure")
)

// Document is the result of a successful extraction.
type Document struct {
	// Text is the full extracted text in reading order.
	Text string

	// OCRPages lists the zero-based page indexes whose text came from OCR
	// rather than an embedded text layer. Empty for born-digital documents.
	OCRPages []int
}

// Extractor converts one named file into a Document.
type Extractor interface {
	// Extract reads r to completion and returns the extracted text. name is
	// the original filename and is used for type detection.
	Extract(ctx context.Context, name string, r io.Reader) (Document, error)
}

// Plaintext extracts .txt and .md files verbatim. PDF and DOCX extraction
// live behind the same interface in external collaborators.
type Plaintext struct {
	// MaxBytes caps the input size. Zero means no limit.
	MaxBytes int64
}

var _ Extractor = (*Plaintext)(nil)

// Extract implements Extractor.
func (p *Plaintext) Extract(ctx context.Context, name string, r io.Reader) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".text", ".markdown":
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(name))
	}

	if p.MaxBytes > 0 {
		r = io.LimitReader(r, p.MaxBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("extract: read %s: %w", name, err)
	}
	if !utf8.Valid(data) {
		return Document{}, fmt.Errorf("%w: %s is not valid UTF-8", ErrParseFailure, name)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return Document{}, fmt.Errorf("%w: %s contains no text", ErrParseFailure, name)
	}
	return Document{Text: text}, nil
}
