package github

import (
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/dt-pm-tools/issue-kb/internal/issue"
)

func convertIssue(in *gh.Issue) issue.Issue {
	out := issue.Issue{
		Number:    in.GetNumber(),
		Title:     in.GetTitle(),
		Body:      in.GetBody(),
		State:     in.GetState(),
		CreatedAt: in.GetCreatedAt().Time,
		UpdatedAt: in.GetUpdatedAt().Time,
		User:      convertUser(in.User),
		Labels:    []issue.Label{},
		HTMLURL:   in.GetHTMLURL(),
	}
	if in.ClosedAt != nil {
		closed := in.ClosedAt.Time
		out.ClosedAt = &closed
	}
	for _, l := range in.Labels {
		out.Labels = append(out.Labels, issue.Label{Name: l.GetName()})
	}
	if in.PullRequestLinks != nil {
		out.PullRequest = &issue.PullRequestLinks{
			URL:     in.PullRequestLinks.GetURL(),
			HTMLURL: in.PullRequestLinks.GetHTMLURL(),
		}
	}
	return out
}

func convertComment(in *gh.IssueComment) issue.Comment {
	return issue.Comment{
		User:              convertUser(in.User),
		Body:              in.GetBody(),
		CreatedAt:         timeOf(in.CreatedAt),
		UpdatedAt:         timeOf(in.UpdatedAt),
		AuthorAssociation: in.GetAuthorAssociation(),
		HTMLURL:           in.GetHTMLURL(),
	}
}

func convertUser(in *gh.User) issue.User {
	return issue.User{
		Login:   in.GetLogin(),
		HTMLURL: in.GetHTMLURL(),
	}
}

func timeOf(ts *gh.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.Time
}
