// Package refine re-derives question and answer pairs from issues through a
// language model and filters the results by quality.
package refine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/dt-pm-tools/issue-kb/internal/issue"
	"github.com/dt-pm-tools/issue-kb/internal/llm"
)

// ErrNoModel is returned when no model identifier is configured.
var ErrNoModel = errors.New("model identifier is required, e.g. gpt-3.5-turbo or volcengine/<endpoint-id>")

// Config controls batching and completion parameters.
type Config struct {
	Model       string
	BatchSize   int
	MaxWorkers  int
	BatchPause  time.Duration
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns the defaults: batches of 10, 5 workers, a 1s pause
// between batches, temperature 0.1 and 1500 max tokens.
func DefaultConfig() Config {
	return Config{
		BatchSize:   10,
		MaxWorkers:  5,
		BatchPause:  time.Second,
		Temperature: 0.1,
		MaxTokens:   1500,
	}
}

// Refiner refines issues batch by batch with a bounded worker pool.
type Refiner struct {
	completer llm.Completer
	cfg       Config
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// New creates a Refiner. Non-positive batch size or worker count fall back to
// the defaults.
func New(completer llm.Completer, cfg Config, logger *zap.Logger) (*Refiner, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, ErrNoModel
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = def.MaxWorkers
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}

	return &Refiner{
		completer: completer,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepContext,
	}, nil
}

// Refine returns one record per issue in input order. Per-issue failures
// become error records. An error is returned only when ctx is cancelled
// between batches; the records gathered so far are returned with it.
func (r *Refiner) Refine(ctx context.Context, issues []issue.Issue) ([]RefinedQA, error) {
	results := make([]RefinedQA, 0, len(issues))
	batches := (len(issues) + r.cfg.BatchSize - 1) / r.cfg.BatchSize

	mapper := iter.Mapper[issue.Issue, RefinedQA]{MaxGoroutines: r.cfg.MaxWorkers}

	for b := 0; b < batches; b++ {
		start := b * r.cfg.BatchSize
		end := min(start+r.cfg.BatchSize, len(issues))

		out := mapper.Map(issues[start:end], func(iss *issue.Issue) RefinedQA {
			return r.refineOne(ctx, *iss)
		})
		results = append(results, out...)

		r.logger.Info("refined batch",
			zap.Int("batch", b+1),
			zap.Int("batches", batches),
			zap.Int("issues", len(out)),
			zap.Int("errors", countErrors(out)),
		)

		if b < batches-1 && r.cfg.BatchPause > 0 {
			if err := r.sleep(ctx, r.cfg.BatchPause); err != nil {
				return results, fmt.Errorf("pausing between batches: %w", err)
			}
		}
	}

	return results, nil
}

func (r *Refiner) refineOne(ctx context.Context, iss issue.Issue) RefinedQA {
	raw, err := r.completer.Complete(ctx, llm.Request{
		Prompt:      BuildPrompt(iss),
		Model:       r.cfg.Model,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		r.logger.Warn("completion failed", zap.Int("issue", iss.Number), zap.Error(err))
		return errorRecord(iss, err)
	}

	rec := ParseResponse(raw, iss)
	if rec.IsError() {
		r.logger.Warn("unparseable model response", zap.Int("issue", iss.Number), zap.String("error", rec.Error))
	}
	return rec
}

func countErrors(records []RefinedQA) int {
	n := 0
	for _, r := range records {
		if r.IsError() {
			n++
		}
	}
	return n
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
