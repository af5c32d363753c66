package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docdetective resources.
	uriScheme = "docdetective://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Template for document text.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Extracted text of an ingested document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)

	// Template for a document's chunks.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/chunks",
		Name:        "document-chunks",
		Description: "Current chunks of an ingested document",
		MIMEType:    "text/plain",
	}, s.handleDocumentChunksResource)
}

// handleDocumentContentResource returns the text of a specific document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     doc.Content,
		}},
	}, nil
}

// handleDocumentChunksResource returns a document's chunks, one block per chunk.
func (s *Server) handleDocumentChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractChunksDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	set, err := s.ports.Document.Chunks(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNotChunked) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting chunks: %w", err)
	}

	var b strings.Builder
	for _, c := range set.Chunks {
		fmt.Fprintf(&b, "--- %s [%d:%d]", c.ID, c.Start, c.End)
		if c.Page != nil {
			fmt.Fprintf(&b, " page %d", *c.Page)
		}
		b.WriteString("\n")
		b.WriteString(c.Content)
		b.WriteString("\n")
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     b.String(),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like docdetective://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractChunksDocumentID extracts the document ID from a URI like
// docdetective://documents/{documentId}/chunks.
func extractChunksDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/chunks"

	if !strings.HasPrefix(uri, prefix) || !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(strings.TrimPrefix(uri, prefix), suffix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
