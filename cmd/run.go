package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/issue-kb/internal/github"
	"github.com/dt-pm-tools/issue-kb/internal/llm"
	"github.com/dt-pm-tools/issue-kb/internal/pipeline"
)

var (
	repoURL     string
	jsonFile    string
	githubToken string
	outputDir   string
	useLLM      bool
	modelName   string
	maxIssues   int
)

var runCmd = &cobra.Command{
	Use:   "run (--url <repo-url> | --json <issues-file>)",
	Short: "Fetch issues and build the knowledge base",
	Long: `Fetches every issue of a GitHub repository (or loads a previously saved issues
file), exports the raw issues, question/answer pairs, organized discussions and a
Markdown knowledge base, and optionally refines the pairs with a language model.

Loading an issues file with --json always runs the language model step. A failure
in that step is reported and skipped; the other outputs are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		applyCommonFlags(cmd)

		p, err := newPipeline(cmd)
		if err != nil {
			return err
		}

		sum, err := p.Run(cmd.Context(), pipeline.Options{
			RepoURL:    repoURL,
			IssuesFile: jsonFile,
			OutputDir:  appConfig.OutputDir,
			UseLLM:     useLLM,
			Model:      appConfig.Model,
			MaxIssues:  maxIssues,
			Fetch:      github.DefaultFetchOptions(),
			Refine:     refineConfig(appConfig),
			Filter:     filterOptions(appConfig),
		})
		if err != nil {
			return err
		}

		printSummary(sum)
		if sum.RefineErr != nil {
			fmt.Fprintf(os.Stderr, "Language model step failed and was skipped: %v\n", sum.RefineErr)
		}
		fmt.Fprintf(os.Stderr, "All outputs saved to %s\n", appConfig.OutputDir)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&repoURL, "url", "", "GitHub repository URL, e.g. https://github.com/owner/repo")
	runCmd.Flags().StringVar(&jsonFile, "json", "", "load issues from a saved JSON file instead of fetching")
	runCmd.Flags().StringVar(&githubToken, "token", "", "GitHub API token (overrides GITHUB_TOKEN and config)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default from config, \"output\")")
	runCmd.Flags().BoolVar(&useLLM, "use-llm", false, "refine question/answer pairs with a language model")
	runCmd.Flags().StringVar(&modelName, "model", "", "model identifier, e.g. gpt-3.5-turbo or volcengine/<endpoint-id> (default from config)")
	runCmd.Flags().IntVar(&maxIssues, "max-issues", 0, "maximum number of issues to fetch (0 means all)")
	runCmd.MarkFlagsMutuallyExclusive("url", "json")
	runCmd.MarkFlagsOneRequired("url", "json")
	rootCmd.AddCommand(runCmd)
}

// applyCommonFlags copies explicitly set flags over the loaded config.
func applyCommonFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("token") {
		appConfig.GitHubToken = githubToken
	}
	if flags.Changed("output-dir") {
		appConfig.OutputDir = outputDir
	}
	if flags.Changed("model") {
		appConfig.Model = modelName
	}
}

// newPipeline builds the pipeline with a GitHub client and the model router.
func newPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	fetcher := github.NewClient(cmd.Context(), appConfig.GitHubToken, logger)

	router, err := llm.NewRouter(llmConfig(appConfig))
	if err != nil {
		return nil, fmt.Errorf("setting up model providers: %w", err)
	}
	return pipeline.New(fetcher, router, logger, keyLookup(appConfig)), nil
}

func printSummary(sum *pipeline.Summary) {
	for _, f := range sum.Files {
		fmt.Fprintf(os.Stderr, "Written to %s\n", f)
	}
	if sum.Quarantined > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d malformed issue entries\n", sum.Quarantined)
	}
	if sum.Refined > 0 {
		fmt.Fprintf(os.Stderr, "Kept %d of %d refined question/answer pairs\n", sum.Kept, sum.Refined)
	}
}
