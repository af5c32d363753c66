package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/normalisers"
	"github.com/tkrief1/doc-detective/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	codeFence     = regexp.MustCompile("(?m)^\\s*```[^\\n]*\\n?")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquote    = regexp.MustCompile(`(?m)^>\s?`)
	hr            = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	tableRule     = regexp.MustCompile(`(?m)^\|?[\s:|-]+\|[\s:|-]*$`)
	listMarkers   = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	numberedList  = regexp.MustCompile(`(?m)^(\s*)\d+\.\s+`)
	emphasis      = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser, higher than plaintext
}

// Normalise converts a markdown document to plain text.
// Code block contents are kept; only the fences are removed.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	rawContent := plaintext.Clean(raw.Content)

	return &driven.NormaliseResult{
		Document: domain.Document{
			Title:   extractMarkdownTitle(rawContent, raw.Filename),
			Content: stripMarkdown(rawContent),
		},
	}, nil
}

// extractMarkdownTitle returns the first H1 heading or falls back to the filename.
func extractMarkdownTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return normalisers.TitleFromFilename(filename)
}

// stripMarkdown removes common markdown formatting for plain text content.
func stripMarkdown(content string) string {
	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = numberedList.ReplaceAllString(content, "$1")
	content = emphasis.ReplaceAllString(content, "$2")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
