package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Router dispatches requests to the adapter named by the request's model
// identifier.
type Router struct {
	providers map[string]Completer
	limiter   *rate.Limiter
}

// NewRouter builds the adapters for every supported provider. No credentials
// are checked here: a missing key surfaces as a per-call error.
func NewRouter(cfg Config) (*Router, error) {
	ollama, err := newOllamaCompleter(cfg.Ollama, cfg.timeout())
	if err != nil {
		return nil, fmt.Errorf("creating ollama adapter: %w", err)
	}

	r := &Router{
		providers: map[string]Completer{
			ProviderOpenAI:     newOpenAICompleter(cfg.OpenAI, cfg.timeout(), false),
			ProviderVolcengine: newVolcengineCompleter(cfg.Volcengine, cfg.timeout()),
			ProviderAnthropic:  newAnthropicCompleter(cfg.Anthropic, cfg.timeout()),
			ProviderOllama:     ollama,
		},
	}
	if cfg.RequestsPerMinute > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1)
	}
	return r, nil
}

// Complete implements Completer.
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	m, err := ParseModel(req.Model)
	if err != nil {
		return "", err
	}
	c, ok := r.providers[m.Provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, m.Provider)
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	req.Model = m.Name
	out, err := c.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", m.Provider, err)
	}
	return out, nil
}

var _ Completer = (*Router)(nil)
