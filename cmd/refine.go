package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/issue-kb/internal/llm"
	"github.com/dt-pm-tools/issue-kb/internal/pipeline"
)

var (
	issuesFile    string
	outputFile    string
	markdownFile  string
	batchSize     int
	maxWorkers    int
	minConfidence float64
	temperature   float64
	maxTokens     int
)

var refineCmd = &cobra.Command{
	Use:   "refine --issues-file <file> --model <model>",
	Short: "Refine saved issues into question/answer pairs with a language model",
	Long: `Loads a saved issues file, asks the model for one question/answer pair per issue,
keeps the pairs that pass the quality filter and writes them as JSON and Markdown.

Issues are processed in batches; within a batch at most --max-workers requests run
at once, and a short pause separates batches. A failed request becomes an error
record and is dropped by the filter.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		applyCommonFlags(cmd)

		rcfg := refineConfig(appConfig)
		fopts := filterOptions(appConfig)
		flags := cmd.Flags()
		if flags.Changed("batch-size") {
			rcfg.BatchSize = batchSize
		}
		if flags.Changed("max-workers") {
			rcfg.MaxWorkers = maxWorkers
		}
		if flags.Changed("temperature") {
			rcfg.Temperature = temperature
		}
		if flags.Changed("max-tokens") {
			rcfg.MaxTokens = maxTokens
		}
		if flags.Changed("min-confidence") {
			if minConfidence < 0 || minConfidence > 1 {
				return fmt.Errorf("--min-confidence must be within [0, 1], got %g", minConfidence)
			}
			fopts.MinConfidence = minConfidence
		}
		if rcfg.BatchSize <= 0 || rcfg.MaxWorkers <= 0 {
			return fmt.Errorf("--batch-size and --max-workers must be positive")
		}

		router, err := llm.NewRouter(llmConfig(appConfig))
		if err != nil {
			return fmt.Errorf("setting up model providers: %w", err)
		}
		p := pipeline.New(nil, router, logger, keyLookup(appConfig))

		sum, err := p.RefineFile(cmd.Context(), pipeline.RefineOptions{
			IssuesFile:   issuesFile,
			Model:        appConfig.Model,
			OutputFile:   outputFile,
			MarkdownFile: markdownFile,
			Refine:       rcfg,
			Filter:       fopts,
		})
		if err != nil {
			return err
		}

		printSummary(sum)
		fmt.Fprintf(os.Stderr, "Refined %d issues, kept %d\n", sum.Refined, sum.Kept)
		return nil
	},
}

func init() {
	refineCmd.Flags().StringVar(&issuesFile, "issues-file", "", "saved GitHub issues JSON file")
	refineCmd.Flags().StringVar(&modelName, "model", "", "model identifier, e.g. gpt-3.5-turbo or volcengine/<endpoint-id>")
	refineCmd.Flags().StringVar(&outputFile, "output-file", "", "output JSON file (default output/llm_qa_YYYY-MM-DD.json)")
	refineCmd.Flags().StringVar(&markdownFile, "markdown-file", "", "output Markdown file (default: output file with .md)")
	refineCmd.Flags().IntVar(&batchSize, "batch-size", 10, "issues per batch")
	refineCmd.Flags().IntVar(&maxWorkers, "max-workers", 5, "concurrent requests per batch")
	refineCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.7, "minimum confidence to keep a pair")
	refineCmd.Flags().Float64Var(&temperature, "temperature", 0.1, "model temperature")
	refineCmd.Flags().IntVar(&maxTokens, "max-tokens", 1500, "maximum tokens per response")
	_ = refineCmd.MarkFlagRequired("issues-file")
	_ = refineCmd.MarkFlagRequired("model")
	rootCmd.AddCommand(refineCmd)
}
