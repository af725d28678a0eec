package qa

import (
	"strings"

	"github.com/dt-pm-tools/issue-kb/internal/issue"
)

// questionSeparator joins the issue title and body.
const questionSeparator = "\n\n"

// Extract builds the QAPair for a single issue.
//
// Comments with an empty or whitespace-only body produce no Answer. When the
// issue is closed and the last remaining answer comes from a maintainer, that
// answer is marked accepted. This is a heuristic: GitHub's own answer marker
// is not consulted.
func Extract(iss issue.Issue) QAPair {
	pair := QAPair{
		Question:    iss.Title + questionSeparator + iss.Body,
		Answers:     []Answer{},
		IssueNumber: iss.Number,
		IssueURL:    iss.HTMLURL,
		CreatedAt:   iss.CreatedAt,
		UpdatedAt:   iss.UpdatedAt,
		State:       iss.State,
		Labels:      iss.LabelNames(),
	}

	for _, c := range iss.Comments {
		if strings.TrimSpace(c.Body) == "" {
			continue
		}
		pair.Answers = append(pair.Answers, Answer{
			Author:           c.User.Login,
			AuthorURL:        c.User.HTMLURL,
			Content:          c.Body,
			CreatedAt:        c.CreatedAt,
			UpdatedAt:        c.UpdatedAt,
			IsClarification:  c.User.Login == iss.User.Login,
			IsFromMaintainer: c.IsMaintainer(),
		})
	}

	if n := len(pair.Answers); iss.State == issue.StateClosed && n > 0 && pair.Answers[n-1].IsFromMaintainer {
		pair.Answers[n-1].IsAccepted = true
		pair.HasAcceptedAnswer = true
	}

	return pair
}

// ExtractAll builds one QAPair per issue, in input order, skipping pull requests.
func ExtractAll(issues []issue.Issue) []QAPair {
	pairs := make([]QAPair, 0, len(issues))
	for _, iss := range issues {
		if iss.IsPullRequest() {
			continue
		}
		pairs = append(pairs, Extract(iss))
	}
	return pairs
}
