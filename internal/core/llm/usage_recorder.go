package llm

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/platform/observability"
)

// Request status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// UsageRecorder records token usage metrics for LLM requests.
// This interface allows for dependency injection and easier testing.
type UsageRecorder interface {
	RecordTokenUsage(provider ProviderName, model string, promptTokens, completionTokens int, success bool)
	ObserveLatency(provider ProviderName, model string, d time.Duration)
}

// usageRecorder implements UsageRecorder with Prometheus metrics.
type usageRecorder struct {
	logger *zerolog.Logger
}

// NewUsageRecorder creates a new UsageRecorder.
func NewUsageRecorder(logger *zerolog.Logger) UsageRecorder {
	return &usageRecorder{logger: logger}
}

// RecordTokenUsage records token usage metrics for an LLM request.
func (r *usageRecorder) RecordTokenUsage(provider ProviderName, model string, promptTokens, completionTokens int, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	p := string(provider)

	observability.LLMRequests.WithLabelValues(p, model, status).Inc()

	if promptTokens > 0 {
		observability.LLMTokensPrompt.WithLabelValues(p, model).Add(float64(promptTokens))
	}

	if completionTokens > 0 {
		observability.LLMTokensCompletion.WithLabelValues(p, model).Add(float64(completionTokens))
	}

	if cost := EstimateCost(model, promptTokens, completionTokens); cost > 0 && success {
		observability.LLMEstimatedCost.WithLabelValues(p, model).Add(cost * usdToMillicents)
	}
}

// ObserveLatency records the duration of one request.
func (r *usageRecorder) ObserveLatency(provider ProviderName, model string, d time.Duration) {
	observability.LLMRequestLatency.WithLabelValues(string(provider), model).Observe(d.Seconds())
}

// noopUsageRecorder is a no-op implementation for testing or when usage tracking is disabled.
type noopUsageRecorder struct{}

// NoopUsageRecorder returns a no-op implementation of UsageRecorder.
func NoopUsageRecorder() UsageRecorder {
	return &noopUsageRecorder{}
}

// RecordTokenUsage does nothing (no-op implementation).
func (r *noopUsageRecorder) RecordTokenUsage(ProviderName, string, int, int, bool) {}

// ObserveLatency does nothing (no-op implementation).
func (r *noopUsageRecorder) ObserveLatency(ProviderName, string, time.Duration) {}
