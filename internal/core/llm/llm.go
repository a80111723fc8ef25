package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/platform/config"
)

// Request is a single chat completion request.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
	// JSON asks the model for a JSON object response.
	JSON bool
}

// Completion is the model's answer plus token accounting.
type Completion struct {
	Content          string
	Model            string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Truncated reports whether generation stopped at the token limit.
func (c Completion) Truncated() bool {
	return c.FinishReason == finishReasonLength
}

// Client completes prompts against a language model.
type Client interface {
	Complete(ctx context.Context, req Request) (Completion, error)
	// Provider names the backend, e.g. "openai" or "mock".
	Provider() ProviderName
}

// New returns an OpenAI client, or the deterministic mock when no API key is
// configured.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	if cfg.UseMockLLM() {
		logger.Warn().Msg("no OpenAI API key configured, using mock language model")

		return NewMock(cfg.LLMModel)
	}

	return NewOpenAI(cfg, logger)
}
