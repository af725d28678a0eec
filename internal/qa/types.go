// Package qa turns issue threads into question/answer records and into
// topic/response discussion records.
package qa

import "time"

// QAPair is the heuristic question/answer view of one issue.
type QAPair struct {
	Question          string    `json:"question"`
	Answers           []Answer  `json:"answers"`
	IssueNumber       int       `json:"issue_number"`
	IssueURL          string    `json:"issue_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	State             string    `json:"state"`
	Labels            []string  `json:"labels"`
	HasAcceptedAnswer bool      `json:"has_accepted_answer"`
}

// Answer is a non-empty comment on the issue.
type Answer struct {
	Author           string    `json:"author"`
	AuthorURL        string    `json:"author_url"`
	Content          string    `json:"content"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	IsClarification  bool      `json:"is_clarification"`
	IsFromMaintainer bool      `json:"is_from_maintainer"`
	IsAccepted       bool      `json:"is_accepted,omitempty"`
}

// OrganizedIssue keeps the full conversation of an issue: the opening post
// and every comment, empty ones included.
type OrganizedIssue struct {
	IssueNumber int        `json:"issue_number"`
	IssueURL    string     `json:"issue_url"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	State       string     `json:"state"`
	Labels      []string   `json:"labels"`
	Topic       Topic      `json:"topic"`
	Responses   []Response `json:"responses"`
}

// Topic is the opening post of an issue.
type Topic struct {
	Author    string    `json:"author"`
	AuthorURL string    `json:"author_url"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Response is one comment of an issue.
type Response struct {
	Author    string    `json:"author"`
	AuthorURL string    `json:"author_url"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
