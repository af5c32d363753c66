package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tkrief1/doc-detective/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"settings"},
	Short:   "Manage application settings",
	Long: `View and configure chunking, retrieval, confidence thresholds and AI providers.

Settings live in ~/.docdetective/config.toml and can also be edited by hand.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsChunkerCmd = &cobra.Command{
	Use:   "chunker",
	Short: "Set chunking parameters",
	Long: `Set how documents are split into chunks. Documents are re-chunked and
re-embedded the next time they are indexed or queried.`,
	RunE: runSettingsChunker,
}

var settingsConfidenceCmd = &cobra.Command{
	Use:   "confidence",
	Short: "Set confidence thresholds",
	Long: `Set the strength and coverage thresholds that map answers to labels.

An answer is high when strength and coverage both reach the high bars, low
when either falls below the low bars or nothing is cited, and medium otherwise.`,
	RunE: runSettingsConfidence,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index documents and queries.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to write grounded answers.`,
	RunE:  runSettingsLLM,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the configured providers are reachable",
	RunE:  runSettingsValidate,
}

func init() {
	f := settingsChunkerCmd.Flags()
	f.Int("max-chunk-chars", 0, "maximum chunk length")
	f.Int("overlap-chars", 0, "characters shared by consecutive chunks")
	f.Bool("boundary", true, "prefer paragraph and sentence boundaries")
	f.Int("boundary-tolerance", 0, "how far back from the limit to look for a boundary")

	f = settingsConfidenceCmd.Flags()
	f.Float64("high-strength", 0, "minimum top score for high confidence")
	f.Float64("high-coverage", 0, "minimum citation coverage for high confidence")
	f.Float64("low-strength", 0, "top score below which confidence is low")
	f.Float64("low-coverage", 0, "citation coverage below which confidence is low")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsChunkerCmd)
	settingsCmd.AddCommand(settingsConfidenceCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireServices("settings"); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Max chunk chars: %d\n", settings.Chunker.MaxChunkChars)
	cmd.Printf("  Overlap chars: %d\n", settings.Chunker.OverlapChars)
	cmd.Printf("  Boundary preference: %t (tolerance %d)\n",
		settings.Chunker.BoundaryPreference, settings.Chunker.Tolerance())
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Max sources: %d\n", settings.Retrieval.MaxSources)
	cmd.Printf("  Preview chars: %d\n", settings.Retrieval.PreviewChars)
	cmd.Printf("  Auto index: %t\n", settings.Retrieval.AutoIndex)
	cmd.Println()

	cmd.Println("[Confidence]")
	cmd.Printf("  High: strength >= %.2f and coverage >= %.2f\n",
		settings.Confidence.HighStrength, settings.Confidence.HighCoverage)
	cmd.Printf("  Low: strength < %.2f or coverage < %.2f\n",
		settings.Confidence.LowStrength, settings.Confidence.LowCoverage)
	cmd.Println()

	// Embedding settings
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	// LLM settings
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Concurrency]")
	cmd.Printf("  Embed workers: %d\n", settings.Concurrency.EmbedWorkers)
	cmd.Printf("  Rate limit: %.1f/s (burst %d)\n",
		settings.Concurrency.RequestsPerSecond, settings.Concurrency.Burst)
	cmd.Printf("  Call timeout: %v\n", settings.Concurrency.CallTimeout)
	cmd.Printf("  Retries: %d (backoff %v to %v)\n", settings.Concurrency.MaxRetries,
		settings.Concurrency.InitialBackoff, settings.Concurrency.MaxBackoff)
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docdetective config --help' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsChunker(cmd *cobra.Command, _ []string) error {
	if err := requireServices("settings"); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	chunker := settings.Chunker
	f := cmd.Flags()
	if f.Changed("max-chunk-chars") {
		chunker.MaxChunkChars, _ = f.GetInt("max-chunk-chars") //nolint:errcheck // flag is registered
	}
	if f.Changed("overlap-chars") {
		chunker.OverlapChars, _ = f.GetInt("overlap-chars") //nolint:errcheck // flag is registered
	}
	if f.Changed("boundary") {
		chunker.BoundaryPreference, _ = f.GetBool("boundary") //nolint:errcheck // flag is registered
	}
	if f.Changed("boundary-tolerance") {
		chunker.BoundaryTolerance, _ = f.GetInt("boundary-tolerance") //nolint:errcheck // flag is registered
	}

	if err := settingsService.SetChunker(chunker); err != nil {
		return fmt.Errorf("failed to set chunker: %w", err)
	}

	cmd.Printf("Chunker set: max %d, overlap %d, boundary preference %t\n",
		chunker.MaxChunkChars, chunker.OverlapChars, chunker.BoundaryPreference)
	return nil
}

func runSettingsConfidence(cmd *cobra.Command, _ []string) error {
	if err := requireServices("settings"); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	thresholds := settings.Confidence
	f := cmd.Flags()
	for name, target := range map[string]*float64{
		"high-strength": &thresholds.HighStrength,
		"high-coverage": &thresholds.HighCoverage,
		"low-strength":  &thresholds.LowStrength,
		"low-coverage":  &thresholds.LowCoverage,
	} {
		if f.Changed(name) {
			*target, _ = f.GetFloat64(name) //nolint:errcheck // flag is registered
		}
	}

	if err := settingsService.SetConfidence(thresholds); err != nil {
		return fmt.Errorf("failed to set confidence thresholds: %w", err)
	}

	cmd.Printf("Confidence thresholds set: high %.2f/%.2f, low %.2f/%.2f\n",
		thresholds.HighStrength, thresholds.HighCoverage, thresholds.LowStrength, thresholds.LowCoverage)
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if err := requireServices("settings"); err != nil {
		return err
	}

	cmd.Print("Embedding provider... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Print("LLM provider... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if err := requireServices("settings"); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if err := requireServices("settings"); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	return configureLLMProvider(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func displayAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
