package llm

import "strings"

// Cost per 1M tokens (in USD) for OpenAI models.
// These are approximate costs and should be updated as pricing changes.
const (
	costGPT5PromptPer1M       = 2.50
	costGPT5CompletionPer1M   = 10.00
	costGPT5NanoPromptPer1M   = 0.05
	costGPT5NanoCompletePer1M = 0.40
	costGPT5MiniPromptPer1M   = 0.25
	costGPT5MiniCompletePer1M = 2.00
	costGPT4OPromptPer1M      = 2.50
	costGPT4OCompletionPer1M  = 10.00
	costGPT4OMiniPrompt       = 0.15
	costGPT4OMiniComplete     = 0.60
	costGPT4TurboPrompt       = 10.00
	costGPT4TurboComplete     = 30.00

	tokensPerMillion = 1000000.0
)

// EstimateCost returns the approximate USD cost of one request. Unknown models
// are priced as gpt-4o-mini.
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	promptRate, completionRate := costRates(strings.ToLower(model))

	promptUSD := float64(promptTokens) * promptRate / tokensPerMillion
	completionUSD := float64(completionTokens) * completionRate / tokensPerMillion

	return promptUSD + completionUSD
}

func costRates(model string) (promptRate, completionRate float64) {
	switch {
	case strings.Contains(model, modelPrefixGPT5) && strings.Contains(model, modelPrefixNano):
		return costGPT5NanoPromptPer1M, costGPT5NanoCompletePer1M
	case strings.Contains(model, modelPrefixGPT5) && strings.Contains(model, modelPrefixMini):
		return costGPT5MiniPromptPer1M, costGPT5MiniCompletePer1M
	case strings.Contains(model, modelPrefixGPT5):
		return costGPT5PromptPer1M, costGPT5CompletionPer1M
	case strings.Contains(model, "gpt-4o-mini"):
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	case strings.Contains(model, "gpt-4o"):
		return costGPT4OPromptPer1M, costGPT4OCompletionPer1M
	case strings.Contains(model, modelPrefixGPT4):
		return costGPT4TurboPrompt, costGPT4TurboComplete
	default:
		return costGPT4OMiniPrompt, costGPT4OMiniComplete
	}
}
