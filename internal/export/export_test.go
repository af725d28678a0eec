package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dt-pm-tools/issue-kb/internal/qa"
	"github.com/dt-pm-tools/issue-kb/internal/refine"
)

var generated = time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

func splitFrontMatter(t *testing.T, doc string) (map[string]any, string) {
	t.Helper()
	require.True(t, strings.HasPrefix(doc, "---\n"), "document starts with front matter")
	rest := doc[len("---\n"):]
	idx := strings.Index(rest, "\n---\n")
	require.GreaterOrEqual(t, idx, 0, "front matter is closed")

	var fm map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rest[:idx]), &fm))
	return fm, strings.TrimLeft(rest[idx+len("\n---\n"):], "\n")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "github_issues_2024-03-05.json", DatedName(IssuesPrefix, generated))
	assert.Equal(t, "github_discussions_2024-03-05.json", DatedName(DiscussionsPrefix, generated))
	assert.Equal(t, "knowledge_base_20240305_140709.md", StampedName(KnowledgeBasePrefix, "md", generated))
	assert.Equal(t, "llm_qa_20240305_140709.json", StampedName(RefinedQAPrefix, "json", generated))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	records := []map[string]string{{"question": "Warum? <b>&</b>"}}

	require.NoError(t, WriteJSON(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "  {\n    \"question\": \"Warum? <b>&</b>\"\n  }")

	var back []map[string]string
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, records, back)
}

func TestWriteJSON_EmptySlice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, WriteJSON(path, refine.Filter(nil, refine.DefaultFilterOptions())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestMarshalKnowledgeBase(t *testing.T) {
	pairs := []qa.QAPair{
		{
			Question:    "Crash on startup\n\nApp crashes immediately",
			IssueNumber: 42,
			IssueURL:    "https://github.com/o/r/issues/42",
			Answers: []qa.Answer{
				{Author: "alice", AuthorURL: "https://github.com/alice", Content: "same here"},
				{Author: "bob", AuthorURL: "https://github.com/bob", Content: "Fixed in v2.1", IsAccepted: true},
			},
		},
		{
			Question:    "Feature request\n\n",
			IssueNumber: 43,
			IssueURL:    "https://github.com/o/r/issues/43",
			Answers:     []qa.Answer{},
		},
	}

	doc, err := MarshalKnowledgeBase(pairs, KnowledgeBaseMeta{
		Owner:     "o",
		Repo:      "r",
		RepoURL:   "https://github.com/o/r",
		Generated: generated,
		RunID:     "run-1",
	})
	require.NoError(t, err)

	fm, body := splitFrontMatter(t, doc)
	assert.Equal(t, "o/r", fm["repository"])
	assert.Equal(t, "run-1", fm["run_id"])
	assert.Equal(t, 2, fm["questions"])

	assert.True(t, strings.HasPrefix(body, "# r knowledge base\n\n"))
	assert.Contains(t, body, "[o/r](https://github.com/o/r)")
	assert.Contains(t, body, "Generated: 2024-03-05 14:07:09")
	assert.Contains(t, body, "## 42. Crash on startup\n\n")
	assert.NotContains(t, body, "App crashes immediately")
	assert.Contains(t, body, "**Answer 1** by [alice](https://github.com/alice)\n\nsame here\n\n")
	assert.Contains(t, body, "**Accepted answer** by [bob](https://github.com/bob)\n\nFixed in v2.1\n\n")
	assert.Contains(t, body, "## 43. Feature request\n\n*No answers yet*\n\n[View on GitHub](https://github.com/o/r/issues/43)\n\n---\n\n")
}

func TestMarshalRefinedKnowledgeBase(t *testing.T) {
	c := 0.9
	records := []refine.RefinedQA{
		{ExtractedQuestion: "Why does it crash?", ExtractedAnswer: "Upgrade to v2.1", Confidence: &c, IssueURL: "https://github.com/o/r/issues/42"},
		{ExtractedQuestion: "How to configure X?", ExtractedAnswer: "Set Y"},
	}

	doc, err := MarshalRefinedKnowledgeBase(records, RefinedMeta{Model: "gpt-4o-mini", Generated: generated})
	require.NoError(t, err)

	fm, body := splitFrontMatter(t, doc)
	assert.Equal(t, "gpt-4o-mini", fm["model"])
	assert.Equal(t, 2, fm["questions"])
	assert.NotContains(t, fm, "run_id")

	assert.Contains(t, body, "## Q1: Why does it crash?\n\nUpgrade to v2.1\n\n[View original discussion](https://github.com/o/r/issues/42)\n\n---\n\n")
	assert.Contains(t, body, "## Q2: How to configure X?\n\nSet Y\n\n---\n\n")
	assert.NotContains(t, body, "Q3")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "kb.md")
	require.NoError(t, WriteFile(path, "# kb\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# kb\n", string(data))
}
