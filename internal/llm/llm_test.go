package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		id      string
		want    Model
		wantErr error
	}{
		{id: "gpt-3.5-turbo", want: Model{Provider: ProviderOpenAI, Name: "gpt-3.5-turbo"}},
		{id: "openai/gpt-4o", want: Model{Provider: ProviderOpenAI, Name: "gpt-4o"}},
		{id: "claude-3-5-haiku-latest", want: Model{Provider: ProviderAnthropic, Name: "claude-3-5-haiku-latest"}},
		{id: "anthropic/claude-sonnet-4", want: Model{Provider: ProviderAnthropic, Name: "claude-sonnet-4"}},
		{id: "volcengine/ep-2024-abc", want: Model{Provider: ProviderVolcengine, Name: "ep-2024-abc"}},
		{id: "ollama/llama3", want: Model{Provider: ProviderOllama, Name: "llama3"}},
		{id: "  openai/gpt-4o  ", want: Model{Provider: ProviderOpenAI, Name: "gpt-4o"}},
		{id: "", wantErr: ErrEmptyModel},
		{id: "openai/", wantErr: ErrEmptyModel},
		{id: "mistral/large", wantErr: ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseModel(tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type recordingCompleter struct {
	reqs []Request
	out  string
	err  error
}

func (r *recordingCompleter) Complete(_ context.Context, req Request) (string, error) {
	r.reqs = append(r.reqs, req)
	return r.out, r.err
}

func TestRouter_DispatchesByProvider(t *testing.T) {
	oa := &recordingCompleter{out: "from openai"}
	an := &recordingCompleter{out: "from anthropic"}
	r := &Router{providers: map[string]Completer{ProviderOpenAI: oa, ProviderAnthropic: an}}

	out, err := r.Complete(context.Background(), Request{Prompt: "p", Model: "gpt-4o-mini", Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "from openai", out)

	out, err = r.Complete(context.Background(), Request{Prompt: "p", Model: "anthropic/claude-x"})
	require.NoError(t, err)
	assert.Equal(t, "from anthropic", out)

	require.Len(t, oa.reqs, 1)
	assert.Equal(t, "gpt-4o-mini", oa.reqs[0].Model)
	assert.Equal(t, 0.1, oa.reqs[0].Temperature)
	require.Len(t, an.reqs, 1)
	assert.Equal(t, "claude-x", an.reqs[0].Model, "provider prefix is stripped")
}

func TestRouter_Errors(t *testing.T) {
	boom := errors.New("boom")
	r := &Router{providers: map[string]Completer{ProviderOpenAI: &recordingCompleter{err: boom}}}

	_, err := r.Complete(context.Background(), Request{Model: "gpt-4o"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "openai completion")

	_, err = r.Complete(context.Background(), Request{Model: "ollama/llama3"})
	assert.ErrorIs(t, err, ErrUnknownProvider)

	_, err = r.Complete(context.Background(), Request{Model: ""})
	assert.ErrorIs(t, err, ErrEmptyModel)
}

func TestNewRouter_BuildsAllProviders(t *testing.T) {
	r, err := NewRouter(Config{RequestsPerMinute: 600})
	require.NoError(t, err)
	for _, p := range []string{ProviderOpenAI, ProviderAnthropic, ProviderVolcengine, ProviderOllama} {
		assert.Contains(t, r.providers, p)
	}
	require.NotNil(t, r.limiter)
}

func TestOpenAICompleter(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"question\": \"q\"}"}}]
		}`)
	}))
	defer srv.Close()

	c := newOpenAICompleter(ProviderConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, defaultTimeout, false)
	out, err := c.Complete(context.Background(), Request{Prompt: "hello", Model: "gpt-4o-mini", Temperature: 0.1, MaxTokens: 1500})
	require.NoError(t, err)

	assert.Equal(t, `{"question": "q"}`, out)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 0.1, got.Temperature)
	assert.Equal(t, 1500, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestOpenAICompleter_ServerErrorIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"message": "overloaded"}}`)
	}))
	defer srv.Close()

	c := newOpenAICompleter(ProviderConfig{APIKey: "sk-test", BaseURL: srv.URL}, defaultTimeout, false)
	_, err := c.Complete(context.Background(), Request{Prompt: "hello", Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestVolcengineCompleter_SendsOwnKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","created":1,"model":"ep","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := newVolcengineCompleter(ProviderConfig{APIKey: "ark-key", BaseURL: srv.URL}, defaultTimeout)
	out, err := c.Complete(context.Background(), Request{Prompt: "hi", Model: "ep-1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "Bearer ark-key", auth)
}

func TestAnthropicCompleter(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
	}
	var apiKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		apiKey = r.Header.Get("X-Api-Key")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "part one "}, {"type": "text", "text": "part two"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 3, "output_tokens": 4}
		}`)
	}))
	defer srv.Close()

	c := newAnthropicCompleter(ProviderConfig{APIKey: "ant-key", BaseURL: srv.URL}, defaultTimeout)
	out, err := c.Complete(context.Background(), Request{Prompt: "hello", Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)

	assert.Equal(t, "part one part two", out)
	assert.Equal(t, "ant-key", apiKey)
	assert.Equal(t, "claude-3-5-haiku-latest", got.Model)
	assert.Equal(t, defaultAnthropicMaxTokens, got.MaxTokens)
}

func TestMissingKeys(t *testing.T) {
	env := map[string]string{"ANTHROPIC_API_KEY": "set", "VOLCENGINE_API_KEY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		model string
		want  []string
	}{
		{model: "gpt-3.5-turbo", want: []string{"OPENAI_API_KEY"}},
		{model: "openai/gpt-4o", want: []string{"OPENAI_API_KEY"}},
		{model: "claude-3-opus", want: nil},
		{model: "volcengine/ep-1", want: []string{"VOLCENGINE_API_KEY"}},
		{model: "ollama/llama3", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingKeys(tt.model, lookup))
		})
	}
}
