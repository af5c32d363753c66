package plaintext

import (
	"context"
	"strings"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/html",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise decodes the file as UTF-8 text. Invalid byte sequences are
// dropped and line endings are normalised to \n.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			Title:   normalisers.TitleFromFilename(raw.Filename),
			Content: Clean(raw.Content),
		},
	}, nil
}

// Clean converts raw bytes to text: it strips a UTF-8 byte order mark,
// drops invalid sequences and converts CRLF and CR line endings to LF.
func Clean(b []byte) string {
	s := strings.TrimPrefix(string(b), "\uFEFF")
	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
