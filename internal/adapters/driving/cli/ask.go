package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

var (
	askJSON       bool
	askTopK       int
	askMaxSources int
)

var askCmd = &cobra.Command{
	Use:   "ask [doc-id] [question]",
	Short: "Ask a question about a document",
	Long: `Retrieves the passages most similar to the question, generates an answer
grounded in them and labels it with a confidence level.

Citations refer to the sources by ref (S1 is the best match). Sources
marked with * were cited by the answer.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().IntVar(&askMaxSources, "max-sources", 0, "number of chunks offered as evidence (default from config)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireServices("answer"); err != nil {
		return err
	}

	query := domain.Query{
		DocumentID: args[0],
		Text:       strings.Join(args[1:], " "),
		TopK:       askTopK,
		MaxSources: askMaxSources,
	}
	applyRetrievalDefaults(&query)

	result, err := answerService.Answer(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	newPrinter(cmd).answer(result)
	return nil
}

// applyRetrievalDefaults fills unset limits from settings.
func applyRetrievalDefaults(q *domain.Query) {
	defaults := domain.DefaultRetrievalSettings()
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			defaults = settings.Retrieval
		}
	}
	if q.TopK <= 0 {
		q.TopK = defaults.TopK
	}
	if q.MaxSources <= 0 {
		q.MaxSources = defaults.MaxSources
	}
}
