package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dt-pm-tools/issue-kb/internal/github"
	"github.com/dt-pm-tools/issue-kb/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch --url <repo-url>",
	Short: "Fetch a repository's issues and save them as JSON",
	Long:  `Fetches every issue of a GitHub repository with its comments and writes them to <output-dir>/github_issues_YYYY-MM-DD.json. Pull requests are skipped. The file can be fed back with 'run --json' or 'refine'.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		applyCommonFlags(cmd)

		p := pipeline.New(github.NewClient(cmd.Context(), appConfig.GitHubToken, logger), nil, logger, nil)
		sum, err := p.Fetch(cmd.Context(), pipeline.Options{
			RepoURL:   repoURL,
			OutputDir: appConfig.OutputDir,
			MaxIssues: maxIssues,
			Fetch:     github.DefaultFetchOptions(),
		})
		if err != nil {
			return err
		}

		printSummary(sum)
		fmt.Fprintf(os.Stderr, "Fetched %d issues\n", sum.Issues)
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&repoURL, "url", "", "GitHub repository URL, e.g. https://github.com/owner/repo")
	fetchCmd.Flags().StringVar(&githubToken, "token", "", "GitHub API token (overrides GITHUB_TOKEN and config)")
	fetchCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory (default from config, \"output\")")
	fetchCmd.Flags().IntVar(&maxIssues, "max-issues", 0, "maximum number of issues to fetch (0 means all)")
	_ = fetchCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(fetchCmd)
}
