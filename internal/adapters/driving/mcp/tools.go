package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	DocumentID string `json:"document_id" jsonschema:"the ID of the document to answer from"`
	Query      string `json:"query" jsonschema:"the question to answer"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from config)"`
	MaxSources int    `json:"max_sources,omitempty" jsonschema:"number of chunks offered as evidence (default from config)"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	DocumentID string `json:"document_id" jsonschema:"the ID of the document to search"`
	Query      string `json:"query" jsonschema:"the text to rank chunks against"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of chunks to return (default from config)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Sources []domain.SourceView `json:"sources"`
	Count   int                 `json:"count"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Query string `json:"query,omitempty" jsonschema:"optional keyword filter on title and content"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 50)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes one document.
type DocumentOutput struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	Pages       int       `json:"pages,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const defaultListLimit = 50

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "answer",
		Description: "Answer a question from one document. Returns the answer text, " +
			"a confidence label, citations and the retrieved sources.",
	}, s.handleAnswer)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the document chunks most similar to a query, best first",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List ingested documents, optionally filtered by keywords",
	}, s.handleListDocuments)
}

// handleAnswer handles the answer tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, domain.AnswerResult, error) {
	defaults := s.ports.retrievalDefaults()
	query := domain.Query{
		DocumentID: input.DocumentID,
		Text:       input.Query,
		TopK:       orDefault(input.TopK, defaults.TopK),
		MaxSources: orDefault(input.MaxSources, defaults.MaxSources),
	}

	result, err := s.ports.Answer.Answer(ctx, query)
	if err != nil {
		return nil, domain.AnswerResult{}, toolError(err)
	}
	return nil, *result, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	defaults := s.ports.retrievalDefaults()
	topK := orDefault(input.TopK, defaults.TopK)

	sources, err := s.ports.Answer.Retrieve(ctx, input.DocumentID, input.Query, topK)
	if err != nil {
		return nil, RetrieveOutput{}, toolError(err)
	}

	output := RetrieveOutput{
		Sources: make([]domain.SourceView, len(sources)),
		Count:   len(sources),
	}
	for i, src := range sources {
		output.Sources[i] = src.View(defaults.PreviewChars)
	}
	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	limit := orDefault(input.Limit, defaultListLimit)

	var (
		docs []domain.Document
		err  error
	)
	if input.Query != "" {
		docs, err = s.ports.Document.Find(ctx, input.Query, limit)
	} else {
		docs, err = s.ports.Document.List(ctx)
	}
	if err != nil {
		return nil, ListDocumentsOutput{}, toolError(err)
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = DocumentOutput{
			ID:          docs[i].ID,
			Title:       docs[i].Title,
			Filename:    docs[i].Filename,
			ContentType: docs[i].ContentType,
			SizeBytes:   docs[i].SizeBytes,
			Pages:       len(docs[i].Pages),
			CreatedAt:   docs[i].CreatedAt,
		}
	}
	return nil, output, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
