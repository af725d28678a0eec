package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openaiCompleter struct {
	client openai.Client
}

// newOpenAICompleter creates an adapter for the OpenAI chat completions API.
// An empty key falls back to OPENAI_API_KEY unless strictKey is set, in which
// case the key is sent as given.
func newOpenAICompleter(cfg ProviderConfig, timeout time.Duration, strictKey bool) *openaiCompleter {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.APIKey != "" || strictKey {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openaiCompleter{client: openai.NewClient(opts...)}
}

// newVolcengineCompleter targets Volcengine Ark's OpenAI-compatible endpoint.
// The OpenAI key is never sent there.
func newVolcengineCompleter(cfg ProviderConfig, timeout time.Duration) *openaiCompleter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVolcengineBaseURL
	}
	return newOpenAICompleter(cfg, timeout, true)
}

func (c *openaiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Completer = (*openaiCompleter)(nil)
