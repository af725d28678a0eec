// Package github fetches a repository's issues and their comments from the
// GitHub REST API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dt-pm-tools/issue-kb/internal/issue"
)

// FetchOptions controls listing and pacing.
type FetchOptions struct {
	// State is open, closed or all.
	State   string
	PerPage int
	// MaxIssues stops fetching once this many issues are collected. Zero means no limit.
	MaxIssues int
	// IssuePause follows every issue's comment fetch.
	IssuePause time.Duration
	// PagePause follows every full page of issues.
	PagePause time.Duration
}

// DefaultFetchOptions lists all issues, 100 per page, oldest first, pausing
// 0.5s per issue and 1s per page.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		State:      "all",
		PerPage:    100,
		IssuePause: 500 * time.Millisecond,
		PagePause:  time.Second,
	}
}

// Client wraps the GitHub API client.
type Client struct {
	gh     *gh.Client
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewClient creates a client. An empty token makes unauthenticated requests,
// which GitHub rate-limits heavily.
func NewClient(ctx context.Context, token string, logger *zap.Logger) *Client {
	var hc *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(ctx, ts)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		gh:     gh.NewClient(hc),
		logger: logger,
		sleep:  sleepContext,
	}
}

// FetchIssues lists the repository's issues oldest first with their
// comments attached. Pull requests are skipped. A failed issue listing
// aborts the fetch; a failed comment listing leaves that issue without
// comments.
func (c *Client) FetchIssues(ctx context.Context, owner, repo string, opts FetchOptions) ([]issue.Issue, error) {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultFetchOptions().PerPage
	}
	if opts.State == "" {
		opts.State = "all"
	}

	list := &gh.IssueListByRepoOptions{
		State:       opts.State,
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{Page: 1, PerPage: opts.PerPage},
	}

	var issues []issue.Issue
	for {
		page, _, err := c.gh.Issues.ListByRepo(ctx, owner, repo, list)
		if err != nil {
			return nil, fmt.Errorf("listing issues for %s/%s (page %d): %w", owner, repo, list.Page, err)
		}
		c.logger.Debug("fetched issue page", zap.Int("page", list.Page), zap.Int("count", len(page)))

		for _, ghIssue := range page {
			if ghIssue.IsPullRequest() {
				continue
			}

			iss := convertIssue(ghIssue)
			comments, err := c.fetchComments(ctx, owner, repo, iss.Number)
			if err != nil {
				c.logger.Warn("fetching comments failed", zap.Int("issue", iss.Number), zap.Error(err))
				comments = []issue.Comment{}
			}
			iss.Comments = comments
			issues = append(issues, iss)

			if opts.MaxIssues > 0 && len(issues) >= opts.MaxIssues {
				return issues, nil
			}
			if err := c.pause(ctx, opts.IssuePause); err != nil {
				return nil, err
			}
		}

		if len(page) < opts.PerPage {
			break
		}
		list.Page++
		if err := c.pause(ctx, opts.PagePause); err != nil {
			return nil, err
		}
	}

	return issues, nil
}

func (c *Client) fetchComments(ctx context.Context, owner, repo string, number int) ([]issue.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	comments := []issue.Comment{}
	for {
		page, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments: %w", err)
		}
		for _, cm := range page {
			comments = append(comments, convertComment(cm))
		}
		if resp == nil || resp.NextPage == 0 {
			return comments, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if err := c.sleep(ctx, d); err != nil {
		return fmt.Errorf("fetch interrupted: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
