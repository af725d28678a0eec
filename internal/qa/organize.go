package qa

import "github.com/dt-pm-tools/issue-kb/internal/issue"

// Organize reshapes an issue into a topic and its ordered responses.
func Organize(iss issue.Issue) OrganizedIssue {
	org := OrganizedIssue{
		IssueNumber: iss.Number,
		IssueURL:    iss.HTMLURL,
		Title:       iss.Title,
		CreatedAt:   iss.CreatedAt,
		UpdatedAt:   iss.UpdatedAt,
		ClosedAt:    iss.ClosedAt,
		State:       iss.State,
		Labels:      iss.LabelNames(),
		Topic: Topic{
			Author:    iss.User.Login,
			AuthorURL: iss.User.HTMLURL,
			Content:   iss.Body,
			CreatedAt: iss.CreatedAt,
		},
		Responses: make([]Response, 0, len(iss.Comments)),
	}

	for _, c := range iss.Comments {
		org.Responses = append(org.Responses, Response{
			Author:    c.User.Login,
			AuthorURL: c.User.HTMLURL,
			Content:   c.Body,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}

	return org
}

// OrganizeAll organizes every non-pull-request issue, in input order.
func OrganizeAll(issues []issue.Issue) []OrganizedIssue {
	out := make([]OrganizedIssue, 0, len(issues))
	for _, iss := range issues {
		if iss.IsPullRequest() {
			continue
		}
		out = append(out, Organize(iss))
	}
	return out
}
