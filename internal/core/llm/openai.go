package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/platform/config"
	"github.com/lueurxax/event-tagger/internal/platform/worker"
)

type openaiClient struct {
	client       *openai.Client
	defaultModel string
	timeout      time.Duration
	logger       *zerolog.Logger
	rateLimiter  *rate.Limiter
	circuit      *CircuitBreaker
	usage        UsageRecorder
}

// NewOpenAI creates a rate-limited, circuit-broken OpenAI chat client.
func NewOpenAI(cfg *config.Config, logger *zerolog.Logger) Client {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = defaultRateLimitRPS
	}

	return &openaiClient{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.LLMModel,
		timeout:      cfg.LLMTimeout,
		logger:       logger,
		rateLimiter:  rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		circuit: NewCircuitBreaker(ProviderOpenAI, CircuitBreakerConfig{
			Threshold:  cfg.LLMCircuitThreshold,
			ResetAfter: cfg.LLMCircuitTimeout,
		}, logger),
		usage: NewUsageRecorder(logger),
	}
}

func (c *openaiClient) Provider() ProviderName {
	return ProviderOpenAI
}

func (c *openaiClient) Complete(ctx context.Context, req Request) (Completion, error) {
	model := c.resolveModel(req.Model)

	if err := c.circuit.CheckCircuit(); err != nil {
		return Completion{}, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("%w: "+errRateLimiter, coreerrors.ErrRateLimited, err)
	}

	var resp openai.ChatCompletionResponse

	started := time.Now()

	err := worker.RunWithTimeout(ctx, c.timeout, func(ctx context.Context) error {
		var callErr error

		resp, callErr = c.client.CreateChatCompletion(ctx, buildChatRequest(model, req))

		return callErr
	})

	c.usage.ObserveLatency(ProviderOpenAI, model, time.Since(started))

	if err != nil {
		c.circuit.RecordFailure()
		c.usage.RecordTokenUsage(ProviderOpenAI, model, 0, 0, false)

		return Completion{}, fmt.Errorf(errOpenAIChatCompletion, err)
	}

	if len(resp.Choices) == 0 {
		c.circuit.RecordFailure()
		c.usage.RecordTokenUsage(ProviderOpenAI, model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, false)

		return Completion{}, coreerrors.ErrEmptyResponse
	}

	c.circuit.RecordSuccess()
	c.usage.RecordTokenUsage(ProviderOpenAI, model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, true)

	out := Completion{
		Content:          resp.Choices[0].Message.Content,
		Model:            resp.Model,
		FinishReason:     string(resp.Choices[0].FinishReason),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	if out.Model == "" {
		out.Model = model
	}

	if out.Truncated() {
		c.logger.Warn().
			Str(logKeyModel, model).
			Int(logKeyMaxTokens, req.MaxTokens).
			Int(logKeyOutputTokens, out.CompletionTokens).
			Msg(logMsgTruncated)
	}

	c.logger.Debug().Str(logKeyModel, out.Model).Int("total_tokens", out.TotalTokens).Msg("LLM response")

	return out, nil
}

func (c *openaiClient) resolveModel(model string) string {
	if model == "" {
		model = c.defaultModel
	}

	if model == "" {
		model = openai.GPT4oMini
	}

	return model
}

func buildChatRequest(model string, req Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)

	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	return chatReq
}
