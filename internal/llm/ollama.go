package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

type ollamaCompleter struct {
	serverURL  string
	httpClient *http.Client
}

func newOllamaCompleter(cfg ProviderConfig, timeout time.Duration) (*ollamaCompleter, error) {
	if cfg.BaseURL != "" {
		if _, err := url.Parse(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("parsing ollama base url: %w", err)
		}
	}
	return &ollamaCompleter{
		serverURL:  cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *ollamaCompleter) Complete(ctx context.Context, req Request) (string, error) {
	opts := []ollama.Option{
		ollama.WithModel(req.Model),
		ollama.WithHTTPClient(c.httpClient),
	}
	if c.serverURL != "" {
		opts = append(opts, ollama.WithServerURL(c.serverURL))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return "", fmt.Errorf("creating ollama client: %w", err)
	}

	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, model, req.Prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

var _ Completer = (*ollamaCompleter)(nil)
