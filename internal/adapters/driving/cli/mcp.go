package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/mcp"
	"github.com/tkrief1/doc-detective/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Tools: answer, retrieve, list_documents.
Resources: docdetective://documents/{id} and docdetective://documents/{id}/chunks.

The config file is watched while the server runs, so changes to retrieval
defaults and confidence thresholds apply without a restart.

Examples:
  # Stdio mode (default, for Claude Desktop)
  docdetective mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  docdetective mcp serve --port 8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "docdetective": {
        "command": "/path/to/docdetective",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Answer:   answerService,
		Document: documentService,
		Settings: settingsService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if services != nil && services.WatchConfig != nil {
		go func() {
			if err := services.WatchConfig(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				logger.Warn("config watcher stopped: %v", err)
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
