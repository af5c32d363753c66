package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the DOCX content type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
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

// Normalise extracts paragraph text from a DOCX document. Non-empty
// paragraphs are joined with newlines.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	// Open as ZIP archive
	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("docx: %w: %v", domain.ErrInvalidInput, err)
	}

	content, err := extractDocumentText(reader)
	if err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Document: domain.Document{
			Title:   extractTitle(reader, raw.Filename),
			Content: content,
		},
	}, nil
}

// readZipFile returns the contents of name, or nil when it is absent.
func readZipFile(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("docx: open %s: %w: %v", name, domain.ErrInvalidInput, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("docx: read %s: %w: %v", name, domain.ErrInvalidInput, err)
		}
		return content, nil
	}
	return nil, nil
}

// extractDocumentText extracts text from word/document.xml.
func extractDocumentText(reader *zip.Reader) (string, error) {
	content, err := readZipFile(reader, "word/document.xml")
	if err != nil || content == nil {
		return "", err
	}
	return parseDocumentXML(content)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML extracts text content from the document XML.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("docx: parse document.xml: %w: %v", domain.ErrInvalidInput, err)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range para.Runs {
			for _, text := range run.Text {
				b.WriteString(text.Content)
			}
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle extracts the title from docProps/core.xml or falls back to filename.
func extractTitle(reader *zip.Reader, filename string) string {
	content, err := readZipFile(reader, "docProps/core.xml")
	if err == nil && content != nil {
		var core coreXML
		if err := xml.Unmarshal(content, &core); err == nil && strings.TrimSpace(core.Title) != "" {
			return strings.TrimSpace(core.Title)
		}
	}
	return normalisers.TitleFromFilename(filename)
}
