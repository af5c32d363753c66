package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkrief1/doc-detective/internal/eval"
)

var evalJSON bool

var evalCmd = &cobra.Command{
	Use:   "eval [suite.yaml]",
	Short: "Score answers against a golden question set",
	Long: `Runs every case in a YAML suite through the answer pipeline and reports
citation precision and recall, the confidence label, latency and the number
of embedding and generation calls made.

Suite format:

  cases:
    - name: capital
      document: docs/france.txt     # relative to the suite file
      query: What is the capital of France?
      expected_citations: [0]       # chunk indices
      expected_confidence: high     # optional

Use document_id instead of document to query an already ingested document.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "print the report as JSON")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	if err := requireServices("document", "answer"); err != nil {
		return err
	}

	suite, err := eval.LoadSuite(args[0])
	if err != nil {
		return err
	}

	runner := eval.NewRunner(documentService, indexService, answerService, callCounter)
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			runner.SetRetrieval(s.Retrieval)
		}
	}
	report, err := runner.Run(cmd.Context(), suite)
	if err != nil {
		return err
	}

	if evalJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printReport(newPrinter(cmd), report)
	return nil
}

func printReport(p *printer, report *eval.Report) {
	for _, r := range report.Results {
		if r.Error != "" {
			p.printf("%s %s\n    %s\n", p.render(p.styles.Error, "FAIL"), r.Name, r.Error)
			continue
		}

		status := p.render(p.styles.Success, "ok  ")
		if !r.ConfidenceMatches() || r.Recall < 1 {
			status = p.render(p.styles.Warning, "miss")
		}
		label := string(r.Confidence)
		if r.ExpectedConfidence != "" && !r.ConfidenceMatches() {
			label = fmt.Sprintf("%s (want %s)", r.Confidence, r.ExpectedConfidence)
		}
		p.printf("%s %s\n", status, r.Name)
		p.printf("    cited %v want %v  precision %.2f recall %.2f\n", r.Cited, r.Expected, r.Precision, r.Recall)
		p.printf("    confidence %s  latency %v  calls %d embed, %d batch, %d generate\n",
			label, r.Latency.Round(time.Millisecond), r.Calls.Embed, r.Calls.EmbedBatch, r.Calls.Generate)
	}

	p.printf("\n%s\n", p.render(p.styles.Subtitle, "Summary"))
	p.printf("  Cases: %d answered, %d failed\n", report.Answered, report.Failed)
	p.printf("  Mean precision: %.2f\n", report.MeanPrecision)
	p.printf("  Mean recall: %.2f\n", report.MeanRecall)
	if report.LabelChecks > 0 {
		p.printf("  Confidence labels: %d/%d matched\n", report.LabelMatches, report.LabelChecks)
	}
	p.printf("  Mean latency: %v\n", report.MeanLatency.Round(time.Millisecond))
	p.printf("  Capability calls: %d\n", report.Calls.Total())
}
