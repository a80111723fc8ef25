package llm

import "time"

// Error message templates
const (
	errRateLimiter          = "rate limiter error: %w"
	errOpenAIChatCompletion = "openai chat completion error: %w"
)

// Model mapping strings
const (
	modelPrefixGPT4 = "gpt-4"
	modelPrefixGPT5 = "gpt-5"
	modelPrefixNano = "nano"
	modelPrefixMini = "mini"
)

// Log key strings
const (
	logKeyModel        = "model"
	logKeyMaxTokens    = "max_tokens"
	logKeyOutputTokens = "output_tokens"
)

const (
	logMsgTruncated = "LLM output truncated due to max_tokens limit"

	finishReasonLength = "length"
	finishReasonStop   = "stop"
)

// Circuit breaker and rate limiting defaults
const (
	defaultCircuitThreshold = 5
	defaultCircuitTimeout   = 1 * time.Minute
	defaultRateLimitRPS     = 2
	rateLimiterBurst        = 5
)

// Cost conversion
const usdToMillicents = 100000.0
