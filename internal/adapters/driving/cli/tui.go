package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tkrief1/doc-detective/internal/adapters/driving/tui"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for docdetective.

The TUI lists your documents, shows their text and chunks, indexes them and
answers questions with the cited sources highlighted.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Ask / Select
  Esc      - Back / Cancel
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// tuiPorts builds the TUI ports from the configured services.
func tuiPorts() *tui.Ports {
	return &tui.Ports{
		Document: documentService,
		Index:    indexService,
		Answer:   answerService,
		Settings: settingsService,
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(tuiPorts())
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The TUI is long-running, so settings edits on disk apply live.
	if services != nil && services.WatchConfig != nil {
		go func() {
			if err := services.WatchConfig(ctx); err != nil && !errors.Is(err, ctx.Err()) {
				logger.Warn("config watcher stopped: %v", err)
			}
		}()
	}

	app.WithContext(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
