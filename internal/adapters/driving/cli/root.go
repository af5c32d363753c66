// Package cli implements the docdetective command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkrief1/doc-detective/internal/core/domain"
	"github.com/tkrief1/doc-detective/internal/core/ports/driving"
	"github.com/tkrief1/doc-detective/internal/eval"
	"github.com/tkrief1/doc-detective/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Options are the global flags handed to the bootstrap function.
type Options struct {
	// DataDir overrides ~/.docdetective for config, prompts and data.
	DataDir string

	// Ephemeral keeps documents and indexes in memory only.
	Ephemeral bool
}

// Services are the driving ports the commands run against.
type Services struct {
	Document driving.DocumentService
	Index    driving.IndexService
	Answer   driving.AnswerService
	Settings driving.SettingsService

	// Calls counts capability calls for the eval command. Optional.
	Calls *eval.Counter

	// WatchConfig reloads configuration on file changes until ctx ends.
	// Optional; used by long-running commands.
	WatchConfig func(ctx context.Context) error

	// Close releases stores and providers. Optional.
	Close func() error
}

// BootstrapFunc builds the services for the given options.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

var (
	bootstrap BootstrapFunc
	services  *Services

	documentService driving.DocumentService
	indexService    driving.IndexService
	answerService   driving.AnswerService
	settingsService driving.SettingsService
	callCounter     *eval.Counter
)

// Global flags.
var (
	verbose   bool
	dataDir   string
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:   "docdetective",
	Short: "Ask cited questions about your documents",
	Long: `docdetective ingests PDF, DOCX, Markdown and text files, indexes them
locally and answers questions with citations to the exact passages used.

Every answer carries a confidence label derived from retrieval strength and
citation coverage. When the document does not support an answer, it says so.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for config and data (default ~/.docdetective)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep documents in memory only")
}

// SetBootstrap sets the function that builds services before a command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly, bypassing bootstrap.
func SetServices(s *Services) {
	services = s
	if s == nil {
		documentService, indexService, answerService, settingsService, callCounter = nil, nil, nil, nil, nil
		return
	}
	documentService = s.Document
	indexService = s.Index
	answerService = s.Answer
	settingsService = s.Settings
	callCounter = s.Calls
}

// Execute runs the root command. Errors are printed as "kind: reason".
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// setup enables logging and builds services once per process.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if services != nil || bootstrap == nil || !needsServices(cmd) {
		return nil
	}

	s, err := bootstrap(cmd.Context(), Options{DataDir: dataDir, Ephemeral: ephemeral})
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(s)
	return nil
}

// teardown closes services built by bootstrap.
func teardown(_ *cobra.Command, _ []string) error {
	if services == nil || services.Close == nil || bootstrap == nil {
		return nil
	}
	err := services.Close()
	SetServices(nil)
	return err
}

// needsServices reports whether the command touches stores or providers.
func needsServices(cmd *cobra.Command) bool {
	return cmd != versionCmd && cmd.Name() != "help" && cmd.Name() != "completion"
}

// formatError renders err with its taxonomy kind unless it is a usage error.
func formatError(err error) string {
	kind := domain.ErrorKind(err)
	if kind == "Internal" || errors.Is(err, context.Canceled) {
		return "Error: " + err.Error()
	}
	return kind + ": " + err.Error()
}

// requireServices returns an error naming the first missing service.
func requireServices(names ...string) error {
	for _, name := range names {
		var missing bool
		switch name {
		case "document":
			missing = documentService == nil
		case "index":
			missing = indexService == nil
		case "answer":
			missing = answerService == nil
		case "settings":
			missing = settingsService == nil
		}
		if missing {
			return fmt.Errorf("%s service not configured", name)
		}
	}
	return nil
}
