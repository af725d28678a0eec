package github

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRepoURL is returned when a URL does not name a GitHub repository.
var ErrInvalidRepoURL = errors.New("invalid GitHub repository URL")

var repoURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)`)

// ParseRepoURL extracts owner and repository from a URL such as
// https://github.com/owner/repo.
func ParseRepoURL(raw string) (owner, repo string, err error) {
	m := repoURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}
	repo = strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepoURL, raw)
	}
	return m[1], repo, nil
}
