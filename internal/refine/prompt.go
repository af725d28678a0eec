package refine

import (
	"fmt"
	"strings"

	"github.com/dt-pm-tools/issue-kb/internal/issue"
)

// NoClearAnswer is the answer the model is told to give when the discussion
// does not resolve the question. Filter drops records carrying it.
const NoClearAnswer = "No clear answer found"

const promptTemplate = `You are an expert at extracting knowledge from technical discussions.
Extract one high-quality question and answer pair from the GitHub issue discussion below.

Issue title: %s

Issue description:
%s

Discussion comments:%s

Analyse the content above and extract the most valuable question and answer:
1. Write one clear, concise question that is complete and carries the context needed to understand it.
2. Write the best answer. If several comments contain useful answers, merge them into one.
3. If the original question is unclear but can be inferred from the discussion, rephrase it.
4. Ignore off-topic discussion, thanks, and other non-technical content.
5. If there is no clear answer, set extracted_answer to exactly "%s".

Output format (JSON):
{
  "extracted_question": "the clear, complete question",
  "extracted_answer": "the best or merged answer",
  "confidence": a number between 0 and 1 rating the extraction quality,
  "multiple_answers": true/false,
  "needs_more_info": true/false
}

Return only the JSON object and no other text.
`

// BuildPrompt renders the extraction prompt for one issue. Every comment is
// numbered from 1, including empty ones.
func BuildPrompt(iss issue.Issue) string {
	var comments strings.Builder
	for i, c := range iss.Comments {
		author := c.User.Login
		if author == "" {
			author = "unknown"
		}
		fmt.Fprintf(&comments, "\n\nComment %d (author: %s):\n%s", i+1, author, c.Body)
	}
	return fmt.Sprintf(promptTemplate, iss.Title, iss.Body, comments.String(), NoClearAnswer)
}
