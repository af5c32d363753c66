package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driven"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extMIMETypes maps file extensions to MIME types missing from the system table.
var extMIMETypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".pdf":      "application/pdf",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Registry dispatches raw documents to the highest-priority normaliser
// registered for their MIME type.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry with the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// SupportedMIMETypes returns all MIME types that can be normalised, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var types []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Normalise transforms a raw document using the best matching normaliser.
// An empty MIME type is detected from the filename and content first.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := raw.MIMEType
	if mimeType == "" {
		mimeType = DetectMIMEType(raw.Filename, raw.Content)
	}

	n := r.lookup(mimeType)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}

	logger.Debug("normalising %s as %s (priority %d)", raw.Filename, mimeType, n.Priority())
	withType := *raw
	withType.MIMEType = mimeType
	result, err := n.Normalise(ctx, &withType)
	if err != nil {
		return nil, err
	}
	if result.Document.ContentType == "" {
		result.Document.ContentType = mimeType
	}
	return result, nil
}

// lookup returns the highest-priority normaliser for a MIME type. Parameters
// such as charset are ignored, and any text/* type falls back to a
// normaliser registered for text/plain.
func (r *Registry) lookup(mimeType string) driven.Normaliser {
	base := BaseMIMEType(mimeType)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if t == base {
				return n
			}
		}
	}
	if strings.HasPrefix(base, "text/") {
		for _, n := range r.normalisers {
			for _, t := range n.SupportedMIMETypes() {
				if t == "text/plain" {
					return n
				}
			}
		}
	}
	return nil
}

// BaseMIMEType strips parameters and normalises case.
func BaseMIMEType(mimeType string) string {
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// DetectMIMEType guesses a MIME type from the file extension, falling back
// to content sniffing.
func DetectMIMEType(filename string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return BaseMIMEType(t)
	}
	return BaseMIMEType(http.DetectContentType(content))
}
