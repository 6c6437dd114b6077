// Package document extracts plain text from PDF files.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when a PDF has pages but none of them yield text
// (for example a scanned document without a text layer).
var ErrNoText = errors.New("pdf contains no extractable text")

// Extractor pulls text out of a PDF.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// PDF implements Extractor with github.com/ledongthuc/pdf.
type PDF struct{}

// NewPDF creates a PDF extractor.
func NewPDF() *PDF { return &PDF{} }

// ExtractText returns the text of all pages joined by newlines.
// Pages that fail to decode are skipped.
func (PDF) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	// The pdf package panics on some malformed object streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	total := r.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			slog.Warn("skipping unreadable pdf page", "page", i, "error", err)
			continue
		}
		pages = append(pages, pageText)
	}

	full := strings.Join(pages, "\n")
	if strings.TrimSpace(full) == "" {
		return "", ErrNoText
	}
	slog.Debug("pdf text extracted", "pages", total, "chars", len(full))
	return full, nil
}

// Truncate returns at most maxChars characters (runes) of text.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i]
		}
		n++
	}
	return text
}
