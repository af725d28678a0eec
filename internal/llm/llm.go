// Package llm provides a single text-completion capability with one adapter
// per model provider.
//
// Model identifiers follow the "provider/model" convention:
//
//	gpt-4o-mini              OpenAI (bare names default to OpenAI)
//	openai/gpt-4o            OpenAI
//	claude-3-5-haiku-latest  Anthropic (bare claude- names)
//	anthropic/claude-...     Anthropic
//	volcengine/<endpoint-id> Volcengine Ark, OpenAI-compatible
//	ollama/llama3            local Ollama server
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderVolcengine = "volcengine"
	ProviderOllama     = "ollama"
)

const (
	defaultVolcengineBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
	defaultTimeout           = 120 * time.Second
)

var (
	// ErrUnknownProvider is returned for identifiers with an unsupported provider prefix.
	ErrUnknownProvider = errors.New("unknown model provider")
	// ErrEmptyModel is returned for an empty model identifier.
	ErrEmptyModel = errors.New("model identifier is empty")
)

// Request is a single-turn completion request.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Completer produces the text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Model is a parsed model identifier.
type Model struct {
	Provider string
	Name     string
}

// String returns the identifier in provider/name form.
func (m Model) String() string {
	return m.Provider + "/" + m.Name
}

// ParseModel splits a model identifier into provider and provider-local name.
func ParseModel(id string) (Model, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Model{}, ErrEmptyModel
	}

	prefix, name, found := strings.Cut(id, "/")
	if !found {
		if strings.HasPrefix(id, "claude") {
			return Model{Provider: ProviderAnthropic, Name: id}, nil
		}
		return Model{Provider: ProviderOpenAI, Name: id}, nil
	}
	if name == "" {
		return Model{}, fmt.Errorf("%w: %q has no model name", ErrEmptyModel, id)
	}

	switch prefix {
	case ProviderOpenAI, ProviderAnthropic, ProviderVolcengine, ProviderOllama:
		return Model{Provider: prefix, Name: name}, nil
	}
	return Model{}, fmt.Errorf("%w: %q", ErrUnknownProvider, prefix)
}

// ProviderConfig holds credentials and endpoint for one provider.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

// Config configures the provider adapters.
type Config struct {
	OpenAI     ProviderConfig
	Anthropic  ProviderConfig
	Volcengine ProviderConfig
	Ollama     ProviderConfig

	// Timeout bounds a single provider call. Zero uses the default.
	Timeout time.Duration
	// RequestsPerMinute paces calls across all workers. Zero disables pacing.
	RequestsPerMinute float64
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}
