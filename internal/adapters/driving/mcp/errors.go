// Package mcp provides an MCP (Model Context Protocol) server adapter for docdetective.
// It lets AI assistants ask cited questions about ingested documents.
package mcp

import (
	"errors"
	"fmt"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")

// toolError prefixes err with its taxonomy kind so clients can branch on it.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", domain.ErrorKind(err), err)
}
