// Package pdf extracts per-page text from PDF files.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/logger"
	"github.com/tkrief1/doc-detective/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the PDF content type.
const MIMEType = "application/pdf"

// pageSeparator joins the text of consecutive pages.
const pageSeparator = "\n\n"

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise extracts the text of every page. Pages without text are
// skipped; the rest are joined with a blank line and each page's start
// offset is recorded so chunks can report their page.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (result *driven.NormaliseResult, err error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("pdf: %w: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("pdf: %w: %v", domain.ErrInvalidInput, err)
	}

	var (
		content strings.Builder
		pages   []domain.Page
	)
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("pdf: page %d of %s: %v", i, raw.Filename, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if content.Len() > 0 {
			content.WriteString(pageSeparator)
		}
		pages = append(pages, domain.Page{Number: i, Offset: content.Len()})
		content.WriteString(text)
	}

	logger.Debug("pdf: %s has %d pages, %d with text", raw.Filename, reader.NumPage(), len(pages))

	return &driven.NormaliseResult{
		Document: domain.Document{
			Title:   extractTitle(reader, raw.Filename),
			Content: content.String(),
			Pages:   pages,
		},
	}, nil
}

// extractTitle reads the document info title or falls back to the filename.
func extractTitle(reader *pdf.Reader, filename string) string {
	if title := strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()); title != "" {
		return title
	}
	return normalisers.TitleFromFilename(filename)
}
