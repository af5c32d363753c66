package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:     "doc",
	Aliases: []string{"document"},
	Short:   "Manage ingested documents",
	Long:    `Add, list, inspect, index and remove documents.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [file...]",
	Short: "Ingest one or more files",
	Long: `Extracts text from each file and stores it as a new document.

Supported formats are PDF, DOCX, Markdown and plain text. A file name of
"-" reads plain text from stdin. By default each document is chunked and
embedded straight away so it can be queried.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentAdd,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentRemoveCmd = &cobra.Command{
	Use:     "rm [doc-id]",
	Aliases: []string{"remove"},
	Short:   "Remove a document with its chunks and index",
	Args:    cobra.ExactArgs(1),
	RunE:    runDocumentRemove,
}

var documentFindCmd = &cobra.Command{
	Use:   "find [query]",
	Short: "Find documents by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocumentFind,
}

var documentChunkCmd = &cobra.Command{
	Use:   "chunk [doc-id]",
	Short: "Chunk a document with the current settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChunk,
}

var documentEmbedCmd = &cobra.Command{
	Use:   "embed [doc-id]",
	Short: "Build the vector index of a chunked document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentEmbed,
}

var documentStatusCmd = &cobra.Command{
	Use:   "status [doc-id]",
	Short: "Show chunking and indexing status",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentStatus,
}

// Flags for document commands.
var (
	addNoIndex   bool
	showContent  bool
	findLimit    int
	chunkVerbose bool
)

func init() {
	documentAddCmd.Flags().BoolVar(&addNoIndex, "no-index", false, "skip chunking and embedding")
	documentShowCmd.Flags().BoolVar(&showContent, "content", false, "print the extracted text")
	documentFindCmd.Flags().IntVarP(&findLimit, "limit", "n", 10, "maximum number of results")
	documentChunkCmd.Flags().BoolVar(&chunkVerbose, "show", false, "print every chunk")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentRemoveCmd)
	documentCmd.AddCommand(documentFindCmd)
	documentCmd.AddCommand(documentChunkCmd)
	documentCmd.AddCommand(documentEmbedCmd)
	documentCmd.AddCommand(documentStatusCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if err := requireServices("document"); err != nil {
		return err
	}
	if !addNoIndex {
		if err := requireServices("index"); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	for _, path := range args {
		doc, err := ingestPath(cmd, path)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		cmd.Printf("Added %s  %s (%s, %s)\n", doc.ID, doc.Title, doc.ContentType, formatBytes(doc.SizeBytes))

		if addNoIndex {
			continue
		}
		set, err := documentService.Chunk(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", doc.ID, err)
		}
		entry, err := indexService.Embed(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("embed %s: %w", doc.ID, err)
		}
		cmd.Printf("  Indexed %d chunks with %s\n", len(set.Chunks), entry.Model)
	}
	return nil
}

// ingestPath stores a file, or stdin text when path is "-".
func ingestPath(cmd *cobra.Command, path string) (*domain.Document, error) {
	if path == "-" {
		text, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return documentService.AddText(cmd.Context(), "stdin", string(text), nil)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return documentService.Ingest(cmd.Context(), &domain.RawDocument{
		Filename: filepath.Base(path),
		Content:  content,
	})
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := requireServices("document"); err != nil {
		return err
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents. Add one with 'docdetective doc add <file>'.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Title:   %s\n", docs[i].Title)
		if docs[i].Filename != "" {
			cmd.Printf("    File:    %s (%s)\n", docs[i].Filename, formatBytes(docs[i].SizeBytes))
		}
		cmd.Printf("    Added:   %s\n", docs[i].CreatedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if err := requireServices("document"); err != nil {
		return err
	}

	ctx := cmd.Context()
	doc, err := documentService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if showContent {
		cmd.Println(doc.Content)
		return nil
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:    %s\n", doc.Title)
	cmd.Printf("  File:     %s\n", doc.Filename)
	cmd.Printf("  Type:     %s\n", doc.ContentType)
	cmd.Printf("  Size:     %s\n", formatBytes(doc.SizeBytes))
	cmd.Printf("  Text:     %d characters\n", len(doc.Content))
	if len(doc.Pages) > 0 {
		cmd.Printf("  Pages:    %d with text\n", len(doc.Pages))
	}
	cmd.Printf("  Added:    %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))

	if indexService != nil {
		status, err := indexService.Status(ctx, doc.ID)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		cmd.Println()
		printStatus(cmd, status)
	}
	return nil
}

func runDocumentRemove(cmd *cobra.Command, args []string) error {
	if err := requireServices("document"); err != nil {
		return err
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	cmd.Printf("Document %s removed.\n", args[0])
	return nil
}

func runDocumentFind(cmd *cobra.Command, args []string) error {
	if err := requireServices("document"); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	docs, err := documentService.Find(cmd.Context(), query, findLimit)
	if err != nil {
		return fmt.Errorf("find failed: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  [%d] %s  %s\n", i+1, docs[i].ID, docs[i].Title)
	}
	return nil
}

func runDocumentChunk(cmd *cobra.Command, args []string) error {
	if err := requireServices("document"); err != nil {
		return err
	}

	set, err := documentService.Chunk(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to chunk document: %w", err)
	}

	cmd.Printf("Chunked %s into %d chunks (max %d, overlap %d)\n",
		set.DocumentID, len(set.Chunks), set.Settings.MaxChunkChars, set.Settings.OverlapChars)
	cmd.Printf("Fingerprint: %s\n", set.Fingerprint)

	if chunkVerbose {
		for _, c := range set.Chunks {
			cmd.Printf("\n--- %s [%d:%d]", c.ID, c.Start, c.End)
			if c.Page != nil {
				cmd.Printf(" page %d", *c.Page)
			}
			cmd.Println()
			cmd.Println(c.Content)
		}
	}
	return nil
}

func runDocumentEmbed(cmd *cobra.Command, args []string) error {
	if err := requireServices("index"); err != nil {
		return err
	}

	entry, err := indexService.Embed(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}

	cmd.Printf("Indexed %d chunks of %s with %s (%d dimensions)\n",
		entry.Len(), entry.DocumentID, entry.Model, entry.Dimensions)
	return nil
}

func runDocumentStatus(cmd *cobra.Command, args []string) error {
	if err := requireServices("index"); err != nil {
		return err
	}

	status, err := indexService.Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	printStatus(cmd, status)
	return nil
}

func printStatus(cmd *cobra.Command, status *domain.IndexStatus) {
	if !status.Chunked {
		cmd.Println("  Index:    not chunked")
		return
	}
	cmd.Printf("  Chunks:   %d\n", status.ChunkCount)
	if status.Embedded == 0 {
		cmd.Println("  Index:    not embedded")
		return
	}
	state := "current"
	if status.Stale {
		state = "stale, rebuilt on next embed"
	}
	cmd.Printf("  Index:    %d chunks with %s (%s)\n", status.Embedded, status.Model, state)
}
