// Package pipeline wires fetching, extraction, refinement and export into
// the runs the CLI exposes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/dt-pm-tools/issue-kb/internal/export"
	"github.com/dt-pm-tools/issue-kb/internal/github"
	"github.com/dt-pm-tools/issue-kb/internal/issue"
	"github.com/dt-pm-tools/issue-kb/internal/llm"
	"github.com/dt-pm-tools/issue-kb/internal/logging"
	"github.com/dt-pm-tools/issue-kb/internal/qa"
	"github.com/dt-pm-tools/issue-kb/internal/refine"
)

// ErrNoSource is returned when a run names neither a repository nor an
// issues file, or names both.
var ErrNoSource = errors.New("exactly one of repository URL or issues file is required")

// ErrRefineAborted is returned when the refinement worker pool aborts.
var ErrRefineAborted = errors.New("refinement aborted")

// Fetcher lists a repository's issues with their comments.
type Fetcher interface {
	FetchIssues(ctx context.Context, owner, repo string, opts github.FetchOptions) ([]issue.Issue, error)
}

// Options configures a full run.
type Options struct {
	// RepoURL selects a live fetch. IssuesFile selects a persisted issues
	// file, which also turns refinement on.
	RepoURL    string
	IssuesFile string

	OutputDir string
	UseLLM    bool
	Model     string
	MaxIssues int

	Fetch  github.FetchOptions
	Refine refine.Config
	Filter refine.FilterOptions
}

// RefineOptions configures a standalone refinement of an issues file.
type RefineOptions struct {
	IssuesFile   string
	Model        string
	OutputFile   string
	MarkdownFile string

	Refine refine.Config
	Filter refine.FilterOptions
}

// Summary reports what a run produced.
type Summary struct {
	RunID       string
	Issues      int
	Quarantined int
	Files       []string

	Refined int
	Kept    int
	// RefineErr is set when the refinement stage failed and was skipped.
	RefineErr error
}

// Pipeline runs the stages. Fetcher may be nil for file-only runs and
// completer may be nil when refinement is never requested.
type Pipeline struct {
	fetcher   Fetcher
	completer llm.Completer
	logger    *zap.Logger

	now       func() time.Time
	lookupEnv func(string) (string, bool)
}

// New creates a Pipeline. lookupEnv is consulted for provider key warnings
// and defaults to os.LookupEnv.
func New(fetcher Fetcher, completer llm.Completer, logger *zap.Logger, lookupEnv func(string) (string, bool)) *Pipeline {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &Pipeline{
		fetcher:   fetcher,
		completer: completer,
		logger:    logging.OrNop(logger),
		now:       time.Now,
		lookupEnv: lookupEnv,
	}
}

// Run executes a full run. Failures to obtain or write the issues abort the
// run; a failing refinement stage is logged, recorded in the summary and
// skipped.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	if (opts.RepoURL == "") == (opts.IssuesFile == "") {
		return nil, ErrNoSource
	}

	sum := &Summary{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", sum.RunID))
	now := p.now()

	var issues []issue.Issue
	if opts.RepoURL != "" {
		var err error
		issues, err = p.fetchAndExport(ctx, opts, now, sum, log)
		if err != nil {
			return sum, err
		}
	} else {
		log.Info("loading issues", zap.String("file", opts.IssuesFile))
		loaded, err := p.load(opts.IssuesFile, sum, log)
		if err != nil {
			return sum, err
		}
		issues = loaded
	}

	if !opts.UseLLM && opts.IssuesFile == "" {
		return sum, nil
	}

	rOpts := RefineOptions{
		Model:        opts.Model,
		OutputFile:   filepath.Join(opts.OutputDir, export.StampedName(export.RefinedQAPrefix, "json", now)),
		MarkdownFile: filepath.Join(opts.OutputDir, export.StampedName(export.RefinedKBPrefix, "md", now)),
		Refine:       opts.Refine,
		Filter:       opts.Filter,
	}
	if err := p.refineAndExport(ctx, issues, rOpts, now, sum, log); err != nil {
		log.Error("refinement failed, skipping stage", zap.Error(err))
		sum.RefineErr = err
	}

	log.Info("run complete", zap.String("output_dir", opts.OutputDir), zap.Int("files", len(sum.Files)))
	return sum, nil
}

// Fetch fetches a repository's issues and writes them as JSON only.
func (p *Pipeline) Fetch(ctx context.Context, opts Options) (*Summary, error) {
	if opts.RepoURL == "" {
		return nil, ErrNoSource
	}
	sum := &Summary{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", sum.RunID))

	issues, _, _, err := p.fetch(ctx, opts, log)
	if err != nil {
		return sum, err
	}
	sum.Issues = len(issues)

	path := filepath.Join(opts.OutputDir, export.DatedName(export.IssuesPrefix, p.now()))
	if err := p.writeJSON(path, issues, sum, log); err != nil {
		return sum, err
	}
	return sum, nil
}

// RefineFile refines a persisted issues file. Unlike Run, every failure is
// returned to the caller.
func (p *Pipeline) RefineFile(ctx context.Context, opts RefineOptions) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", sum.RunID))

	issues, err := p.load(opts.IssuesFile, sum, log)
	if err != nil {
		return sum, err
	}

	if opts.OutputFile == "" {
		opts.OutputFile = filepath.Join("output", export.DatedName(export.RefinedQAPrefix, p.now()))
	}
	if opts.MarkdownFile == "" {
		opts.MarkdownFile = strings.TrimSuffix(opts.OutputFile, filepath.Ext(opts.OutputFile)) + ".md"
	}

	if err := p.refineAndExport(ctx, issues, opts, p.now(), sum, log); err != nil {
		return sum, err
	}
	return sum, nil
}

func (p *Pipeline) fetch(ctx context.Context, opts Options, log *zap.Logger) ([]issue.Issue, string, string, error) {
	if p.fetcher == nil {
		return nil, "", "", fmt.Errorf("no issue fetcher configured")
	}
	owner, repo, err := github.ParseRepoURL(opts.RepoURL)
	if err != nil {
		return nil, "", "", err
	}

	fetchOpts := opts.Fetch
	if opts.MaxIssues > 0 {
		fetchOpts.MaxIssues = opts.MaxIssues
	}

	log.Info("fetching issues", zap.String("repository", owner+"/"+repo))
	issues, err := p.fetcher.FetchIssues(ctx, owner, repo, fetchOpts)
	if err != nil {
		return nil, owner, repo, fmt.Errorf("fetching issues: %w", err)
	}
	issues = issue.WithoutPullRequests(issues)
	if opts.MaxIssues > 0 && len(issues) > opts.MaxIssues {
		issues = issues[:opts.MaxIssues]
	}
	log.Info("fetched issues", zap.Int("count", len(issues)))
	return issues, owner, repo, nil
}

func (p *Pipeline) fetchAndExport(ctx context.Context, opts Options, now time.Time, sum *Summary, log *zap.Logger) ([]issue.Issue, error) {
	issues, owner, repo, err := p.fetch(ctx, opts, log)
	if err != nil {
		return nil, err
	}
	sum.Issues = len(issues)

	if err := p.writeJSON(filepath.Join(opts.OutputDir, export.DatedName(export.IssuesPrefix, now)), issues, sum, log); err != nil {
		return nil, err
	}

	pairs := qa.ExtractAll(issues)
	if err := p.writeJSON(filepath.Join(opts.OutputDir, export.DatedName(export.QAPrefix, now)), pairs, sum, log); err != nil {
		return nil, err
	}

	discussions := qa.OrganizeAll(issues)
	if err := p.writeJSON(filepath.Join(opts.OutputDir, export.DatedName(export.DiscussionsPrefix, now)), discussions, sum, log); err != nil {
		return nil, err
	}

	kb, err := export.MarshalKnowledgeBase(pairs, export.KnowledgeBaseMeta{
		Owner:     owner,
		Repo:      repo,
		RepoURL:   opts.RepoURL,
		Generated: now,
		RunID:     sum.RunID,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering knowledge base: %w", err)
	}
	kbPath := filepath.Join(opts.OutputDir, export.StampedName(export.KnowledgeBasePrefix, "md", now))
	if err := p.writeFile(kbPath, kb, sum, log); err != nil {
		return nil, err
	}

	return issues, nil
}

func (p *Pipeline) load(path string, sum *Summary, log *zap.Logger) ([]issue.Issue, error) {
	res, err := issue.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading issues: %w", err)
	}
	for _, q := range res.Quarantined {
		log.Warn("skipping malformed issue entry", zap.Int("index", q.Index), zap.Error(q.Err))
	}
	issues := issue.WithoutPullRequests(res.Issues)

	sum.Issues = len(issues)
	sum.Quarantined = len(res.Quarantined)
	log.Info("loaded issues", zap.Int("count", len(issues)), zap.Int("quarantined", len(res.Quarantined)))
	return issues, nil
}

func (p *Pipeline) refineAndExport(ctx context.Context, issues []issue.Issue, opts RefineOptions, now time.Time, sum *Summary, log *zap.Logger) error {
	if _, err := llm.ParseModel(opts.Model); err != nil {
		return fmt.Errorf("model %q: %w", opts.Model, err)
	}
	if p.completer == nil {
		return fmt.Errorf("no completion provider configured")
	}
	for _, key := range llm.MissingKeys(opts.Model, p.lookupEnv) {
		log.Warn("provider API key is not set", zap.String("env", key))
	}

	cfg := opts.Refine
	cfg.Model = opts.Model
	refiner, err := refine.New(p.completer, cfg, log)
	if err != nil {
		return err
	}

	log.Info("refining issues", zap.String("model", opts.Model), zap.Int("issues", len(issues)))
	records, err := refineRecovered(ctx, refiner, issues, log)
	if err != nil {
		return fmt.Errorf("refining issues: %w", err)
	}
	kept := refine.Filter(records, opts.Filter)
	sum.Refined = len(records)
	sum.Kept = len(kept)
	log.Info("filtered refined records", zap.Int("refined", len(records)), zap.Int("kept", len(kept)))

	if err := p.writeJSON(opts.OutputFile, kept, sum, log); err != nil {
		return err
	}

	md, err := export.MarshalRefinedKnowledgeBase(kept, export.RefinedMeta{
		Model:     opts.Model,
		Generated: now,
		RunID:     sum.RunID,
	})
	if err != nil {
		return fmt.Errorf("rendering refined knowledge base: %w", err)
	}
	return p.writeFile(opts.MarkdownFile, md, sum, log)
}

// refineRecovered turns a panic raised by the worker pool into
// ErrRefineAborted so callers can apply the stage failure policy.
func refineRecovered(ctx context.Context, refiner *refine.Refiner, issues []issue.Issue, log *zap.Logger) (records []refine.RefinedQA, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if rec, ok := r.(*panics.Recovered); ok {
			log.Debug("refinement worker panicked", zap.ByteString("stack", rec.Stack))
			r = rec.Value
		}
		records, err = nil, fmt.Errorf("%w: %v", ErrRefineAborted, r)
	}()
	return refiner.Refine(ctx, issues)
}

func (p *Pipeline) writeJSON(path string, v any, sum *Summary, log *zap.Logger) error {
	if err := export.WriteJSON(path, v); err != nil {
		return err
	}
	sum.Files = append(sum.Files, path)
	log.Info("wrote file", zap.String("path", path))
	return nil
}

func (p *Pipeline) writeFile(path, content string, sum *Summary, log *zap.Logger) error {
	if err := export.WriteFile(path, content); err != nil {
		return err
	}
	sum.Files = append(sum.Files, path)
	log.Info("wrote file", zap.String("path", path))
	return nil
}
