// Package export writes pipeline results as JSON documents and Markdown
// knowledge bases.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File name prefixes for the generated outputs.
const (
	IssuesPrefix        = "github_issues"
	QAPrefix            = "github_qa"
	DiscussionsPrefix   = "github_discussions"
	KnowledgeBasePrefix = "knowledge_base"
	RefinedQAPrefix     = "llm_qa"
	RefinedKBPrefix     = "llm_knowledge_base"
)

// DatedName returns prefix_YYYY-MM-DD.json.
func DatedName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.json", prefix, t.Format("2006-01-02"))
}

// StampedName returns prefix_YYYYMMDD_HHMMSS.ext.
func StampedName(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, Stamp(t), ext)
}

// Stamp formats t as YYYYMMDD_HHMMSS.
func Stamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// WriteJSON writes v to path as 2-space indented JSON, creating parent
// directories as needed. Non-ASCII text is written as-is.
func WriteJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(path, content string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}
