// Package issue holds the typed issue and comment records shared by the
// fetcher, the extractors and the refiner. The JSON shape follows the GitHub
// REST API so that files written by this tool (or by older exports) load back
// unchanged.
package issue

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Issue states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

// Author associations that mark a comment as coming from a maintainer.
const (
	AssociationOwner        = "OWNER"
	AssociationMember       = "MEMBER"
	AssociationCollaborator = "COLLABORATOR"
)

// ErrInvalidIssue is returned by Validate for records missing required fields.
var ErrInvalidIssue = errors.New("invalid issue")

// Issue represents a GitHub issue with its comments attached.
type Issue struct {
	Number      int               `json:"number"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	State       string            `json:"state"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ClosedAt    *time.Time        `json:"closed_at"`
	User        User              `json:"user"`
	Labels      []Label           `json:"labels"`
	HTMLURL     string            `json:"html_url"`
	Comments    []Comment         `json:"comment_data"`
	PullRequest *PullRequestLinks `json:"pull_request,omitempty"`
}

// User is the author of an issue or comment.
type User struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// Label is a repository label attached to an issue.
type Label struct {
	Name string `json:"name"`
}

// PullRequestLinks is present only on records that are pull requests.
type PullRequestLinks struct {
	URL     string `json:"url,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
}

// Comment is a single issue comment.
type Comment struct {
	User              User      `json:"user"`
	Body              string    `json:"body"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	AuthorAssociation string    `json:"author_association,omitempty"`
	HTMLURL           string    `json:"html_url,omitempty"`
}

// IsPullRequest reports whether the record carries a pull-request marker.
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// LabelNames returns the label names in their stored order.
func (i Issue) LabelNames() []string {
	names := make([]string, 0, len(i.Labels))
	for _, l := range i.Labels {
		names = append(names, l.Name)
	}
	return names
}

// IsMaintainer reports whether the comment author is an owner, member or
// collaborator of the repository.
func (c Comment) IsMaintainer() bool {
	switch c.AuthorAssociation {
	case AssociationOwner, AssociationMember, AssociationCollaborator:
		return true
	}
	return false
}

// Validate checks the fields downstream stages rely on.
func (i Issue) Validate() error {
	if i.Number <= 0 {
		return fmt.Errorf("%w: missing or non-positive number", ErrInvalidIssue)
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("%w: #%d has no title", ErrInvalidIssue, i.Number)
	}
	if i.State != StateOpen && i.State != StateClosed {
		return fmt.Errorf("%w: #%d has state %q", ErrInvalidIssue, i.Number, i.State)
	}
	if i.User.Login == "" {
		return fmt.Errorf("%w: #%d has no author", ErrInvalidIssue, i.Number)
	}
	for n, c := range i.Comments {
		if c.User.Login == "" {
			return fmt.Errorf("%w: #%d comment %d has no author", ErrInvalidIssue, i.Number, n+1)
		}
	}
	return nil
}

// WithoutPullRequests returns the issues that are not pull requests, in order.
func WithoutPullRequests(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, iss := range issues {
		if iss.IsPullRequest() {
			continue
		}
		out = append(out, iss)
	}
	return out
}
