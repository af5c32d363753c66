// Package eval runs golden question sets against the answer pipeline and
// reports citation precision, recall, confidence and cost.
package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// Case is one golden question.
type Case struct {
	// Name labels the case in reports. Defaults to the query.
	Name string `yaml:"name"`

	// Document is a file to ingest, relative to the suite file.
	Document string `yaml:"document"`

	// DocumentID refers to an already ingested document instead.
	DocumentID string `yaml:"document_id"`

	// Query is the question to ask.
	Query string `yaml:"query"`

	// ExpectedCitations are the chunk indices a correct answer cites.
	ExpectedCitations []int `yaml:"expected_citations"`

	// ExpectedConfidence is the expected label. Empty skips the check.
	ExpectedConfidence string `yaml:"expected_confidence"`

	// TopK overrides the retrieval depth for this case.
	TopK int `yaml:"top_k"`
}

// Validate reports ErrInvalidInput when the case cannot be run.
func (c Case) Validate() error {
	switch {
	case strings.TrimSpace(c.Query) == "":
		return fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	case c.Document == "" && c.DocumentID == "":
		return fmt.Errorf("%w: one of document or document_id is required", domain.ErrInvalidInput)
	case c.Document != "" && c.DocumentID != "":
		return fmt.Errorf("%w: document and document_id are mutually exclusive", domain.ErrInvalidInput)
	case c.TopK < 0:
		return fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidInput)
	}
	for _, idx := range c.ExpectedCitations {
		if idx < 0 {
			return fmt.Errorf("%w: expected_citations must be chunk indices, got %d", domain.ErrInvalidInput, idx)
		}
	}
	if c.ExpectedConfidence != "" && !domain.ConfidenceLabel(c.ExpectedConfidence).IsValid() {
		return fmt.Errorf("%w: unknown expected_confidence %q", domain.ErrInvalidInput, c.ExpectedConfidence)
	}
	return nil
}

// Suite is a set of golden cases loaded from one YAML file.
type Suite struct {
	Cases []Case `yaml:"cases"`

	dir string
}

// LoadSuite reads and validates a suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	return ParseSuite(data, filepath.Dir(path))
}

// ParseSuite decodes a suite whose document paths are relative to dir.
func ParseSuite(data []byte, dir string) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parse suite: %v", domain.ErrInvalidInput, err)
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("%w: suite has no cases", domain.ErrInvalidInput)
	}
	for i := range s.Cases {
		if err := s.Cases[i].Validate(); err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}
		if s.Cases[i].Name == "" {
			s.Cases[i].Name = s.Cases[i].Query
		}
	}
	s.dir = dir
	return &s, nil
}

// DocumentPath resolves a case's document file.
func (s *Suite) DocumentPath(c Case) string {
	if c.Document == "" || filepath.IsAbs(c.Document) {
		return c.Document
	}
	return filepath.Join(s.dir, c.Document)
}
