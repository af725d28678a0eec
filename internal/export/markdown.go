package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dt-pm-tools/issue-kb/internal/qa"
	"github.com/dt-pm-tools/issue-kb/internal/refine"
)

// KnowledgeBaseMeta describes the repository a knowledge base was built from.
type KnowledgeBaseMeta struct {
	Owner     string
	Repo      string
	RepoURL   string
	Generated time.Time
	RunID     string
}

// RefinedMeta describes a refined knowledge base.
type RefinedMeta struct {
	Model     string
	Generated time.Time
	RunID     string
}

type kbFrontMatter struct {
	Repository string `yaml:"repository"`
	URL        string `yaml:"url,omitempty"`
	Generated  string `yaml:"generated"`
	RunID      string `yaml:"run_id,omitempty"`
	Questions  int    `yaml:"questions"`
}

type refinedFrontMatter struct {
	Model     string `yaml:"model"`
	Generated string `yaml:"generated"`
	RunID     string `yaml:"run_id,omitempty"`
	Questions int    `yaml:"questions"`
}

// MarshalKnowledgeBase renders the extracted question and answer pairs as a
// Markdown knowledge base with YAML front matter.
func MarshalKnowledgeBase(pairs []qa.QAPair, meta KnowledgeBaseMeta) (string, error) {
	var b strings.Builder

	err := writeFrontMatter(&b, kbFrontMatter{
		Repository: meta.Owner + "/" + meta.Repo,
		URL:        meta.RepoURL,
		Generated:  meta.Generated.UTC().Format(time.RFC3339),
		RunID:      meta.RunID,
		Questions:  len(pairs),
	})
	if err != nil {
		return "", err
	}

	fmt.Fprintf(&b, "# %s knowledge base\n\n", meta.Repo)
	fmt.Fprintf(&b, "Generated from GitHub repository [%s/%s](%s)\n\n", meta.Owner, meta.Repo, meta.RepoURL)
	fmt.Fprintf(&b, "Generated: %s\n\n", meta.Generated.Format("2006-01-02 15:04:05"))
	b.WriteString("---\n\n")

	for _, pair := range pairs {
		heading, _, _ := strings.Cut(pair.Question, "\n")
		fmt.Fprintf(&b, "## %d. %s\n\n", pair.IssueNumber, heading)

		if len(pair.Answers) == 0 {
			b.WriteString("*No answers yet*\n\n")
		}
		for i, a := range pair.Answers {
			prefix := fmt.Sprintf("**Answer %d**", i+1)
			if a.IsAccepted {
				prefix = "**Accepted answer**"
			}
			fmt.Fprintf(&b, "%s by [%s](%s)\n\n%s\n\n", prefix, a.Author, a.AuthorURL, a.Content)
		}

		fmt.Fprintf(&b, "[View on GitHub](%s)\n\n---\n\n", pair.IssueURL)
	}

	return b.String(), nil
}

// MarshalRefinedKnowledgeBase renders refined records as a Markdown
// knowledge base. Records are numbered from 1 in the given order.
func MarshalRefinedKnowledgeBase(records []refine.RefinedQA, meta RefinedMeta) (string, error) {
	var b strings.Builder

	err := writeFrontMatter(&b, refinedFrontMatter{
		Model:     meta.Model,
		Generated: meta.Generated.UTC().Format(time.RFC3339),
		RunID:     meta.RunID,
		Questions: len(records),
	})
	if err != nil {
		return "", err
	}

	b.WriteString("# GitHub knowledge base\n\n")
	b.WriteString("*Question and answer pairs extracted automatically from GitHub issues*\n\n")
	b.WriteString("---\n\n")

	for i, r := range records {
		fmt.Fprintf(&b, "## Q%d: %s\n\n", i+1, r.ExtractedQuestion)
		fmt.Fprintf(&b, "%s\n\n", r.ExtractedAnswer)
		if r.IssueURL != "" {
			fmt.Fprintf(&b, "[View original discussion](%s)\n\n", r.IssueURL)
		}
		b.WriteString("---\n\n")
	}

	return b.String(), nil
}

func writeFrontMatter(b *strings.Builder, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding front matter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(data)
	b.WriteString("---\n\n")
	return nil
}
