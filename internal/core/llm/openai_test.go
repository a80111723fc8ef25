package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/platform/config"
)

const testChatResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4o-mini-2024-07-18",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "{\"TAG1\":\"MUSIK\"}"}}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 12, "total_tokens": 132}
}`

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		LLMAPIKey:           "sk-test",
		LLMModel:            "gpt-4o-mini",
		LLMBaseURL:          baseURL,
		LLMTimeout:          5 * time.Second,
		RateLimitRPS:        1000,
		LLMCircuitThreshold: 2,
		LLMCircuitTimeout:   time.Minute,
	}
}

func TestOpenAI_Complete(t *testing.T) {
	var captured map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testChatResponse))
	}))
	defer srv.Close()

	c := NewOpenAI(testConfig(srv.URL), nil)

	got, err := c.Complete(context.Background(), Request{
		System:      "You are an expert at tagging events.",
		Prompt:      "tag this",
		Temperature: 0.3,
		MaxTokens:   500,
		JSON:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"TAG1":"MUSIK"}`, got.Content)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", got.Model)
	assert.Equal(t, 132, got.TotalTokens)
	assert.Equal(t, ProviderOpenAI, c.Provider())

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.InDelta(t, 500, captured["max_tokens"], 0)

	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])

	format, ok := captured["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAI_CircuitOpensAfterFailures(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	c := NewOpenAI(cfg, nil)

	for i := 0; i < cfg.LLMCircuitThreshold; i++ {
		_, err := c.Complete(context.Background(), Request{Prompt: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "openai chat completion error")
	}

	before := atomic.LoadInt32(&calls)

	_, err := c.Complete(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, coreerrors.ErrCircuitBreakerOpen)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[],"usage":{}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAI(testConfig(srv.URL), nil).Complete(context.Background(), Request{Prompt: "x"})
	require.ErrorIs(t, err, coreerrors.ErrEmptyResponse)
}

func TestNew_SelectsMock(t *testing.T) {
	c := New(&config.Config{LLMAPIKey: "mock", LLMModel: "gpt-4o-mini"}, nil)
	assert.Equal(t, ProviderMock, c.Provider())

	c = New(testConfig("http://127.0.0.1:1"), nil)
	assert.Equal(t, ProviderOpenAI, c.Provider())
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model string
		want  float64
	}{
		{model: "gpt-4o-mini", want: (1000*0.15 + 1000*0.60) / tokensPerMillion},
		{model: "GPT-4o", want: (1000*2.50 + 1000*10.00) / tokensPerMillion},
		{model: "gpt-5-nano", want: (1000*0.05 + 1000*0.40) / tokensPerMillion},
		{model: "unknown", want: (1000*0.15 + 1000*0.60) / tokensPerMillion},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateCost(tt.model, 1000, 1000), 1e-12)
		})
	}

	assert.Zero(t, EstimateCost("gpt-4o", 0, 0))
}

func TestCircuitBreaker_Reopens(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cb := NewCircuitBreaker(ProviderOpenAI, CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute}, nil)
	cb.now = func() time.Time { return now }

	require.NoError(t, cb.CheckCircuit())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	require.ErrorIs(t, cb.CheckCircuit(), coreerrors.ErrCircuitBreakerOpen)

	now = now.Add(time.Minute + time.Second)
	assert.False(t, cb.IsOpen())

	cb.RecordSuccess()
	require.NoError(t, cb.CheckCircuit())
}
