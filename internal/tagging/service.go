// Package tagging predicts event tags with a language model: it cleans and
// validates an item, renders the vocabulary prompt, parses the model's JSON
// answer against the vocabulary and flags low-confidence results for human
// review.
package tagging

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/core/llm"
	"github.com/lueurxax/event-tagger/internal/platform/config"
	"github.com/lueurxax/event-tagger/internal/platform/observability"
)

const (
	defaultTemperature     = 0.3
	defaultMaxTokens       = 500
	defaultReviewThreshold = 0.5
	defaultConfidence      = 0.7
)

// Log keys.
const (
	logKeyItemID     = "item_id"
	logKeyTag        = "tag"
	logKeyConfidence = "confidence"
)

// Options tune the model call and the review policy.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// ConfidenceThreshold marks predictions as low-confidence in logs.
	ConfidenceThreshold float64
	// ReviewThreshold flags predictions below it for human review.
	ReviewThreshold float64
	// BatchMaxItems caps TagBatch input.
	BatchMaxItems int
}

// OptionsFromConfig reads tagging options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:               cfg.LLMModel,
		Temperature:         cfg.LLMTemperature,
		MaxTokens:           cfg.LLMMaxTokens,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		ReviewThreshold:     cfg.HumanReviewThreshold,
		BatchMaxItems:       cfg.BatchMaxItems,
	}
}

func (o Options) withDefaults() Options {
	if o.Temperature <= 0 {
		o.Temperature = defaultTemperature
	}

	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}

	if o.ReviewThreshold <= 0 {
		o.ReviewThreshold = defaultReviewThreshold
	}

	if o.ConfidenceThreshold <= 0 {
		o.ConfidenceThreshold = defaultConfidence
	}

	if o.BatchMaxItems <= 0 {
		o.BatchMaxItems = defaultBatchMaxItems
	}

	return o
}

// Service tags single items and batches. It is safe for concurrent use.
type Service struct {
	client    llm.Client
	catalog   *domain.Catalog
	validator *Validator
	prompts   *PromptBuilder
	opts      Options
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewService creates a tagging service over one vocabulary.
func NewService(client llm.Client, catalog *domain.Catalog, opts Options, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Service{
		client:    client,
		catalog:   catalog,
		validator: NewValidator(logger),
		prompts:   NewPromptBuilder(catalog),
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       time.Now,
	}
}

// Catalog returns the vocabulary the service predicts from.
func (s *Service) Catalog() *domain.Catalog {
	return s.catalog
}

// Predict tags one item. Every error wraps ErrPredictionFailed together with
// the underlying cause.
func (s *Service) Predict(ctx context.Context, item domain.Item) (domain.Prediction, error) {
	started := s.now()

	pred, err := s.predict(ctx, item)

	status := llm.StatusSuccess
	if err != nil {
		status = llm.StatusError
	}

	observability.Predictions.WithLabelValues(status).Inc()
	observability.PredictionDuration.Observe(s.now().Sub(started).Seconds())

	if err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: %w", coreerrors.ErrPredictionFailed, err)
	}

	return pred, nil
}

func (s *Service) predict(ctx context.Context, item domain.Item) (domain.Prediction, error) {
	cleaned, err := s.validator.Clean(item)
	if err != nil {
		return domain.Prediction{}, err
	}

	prompt, err := s.prompts.Build(cleaned)
	if err != nil {
		return domain.Prediction{}, err
	}

	resp, err := s.client.Complete(ctx, llm.Request{
		System:      SystemPrompt,
		Prompt:      prompt,
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return domain.Prediction{}, err
	}

	pred, err := ParseTagResponse(resp.Content, s.catalog)
	if err != nil {
		s.logger.Debug().Err(err).Str(logKeyItemID, cleaned.ID).Str("content", resp.Content).Msg("unusable model answer")

		return domain.Prediction{}, err
	}

	pred.Model = resp.Model
	pred.TokensUsed = resp.TotalTokens
	pred.CostUSD = llm.EstimateCost(resp.Model, resp.PromptTokens, resp.CompletionTokens)

	s.review(cleaned, &pred)

	return pred, nil
}

func (s *Service) review(item domain.Item, pred *domain.Prediction) {
	if pred.Confidence < s.opts.ConfidenceThreshold {
		s.logger.Debug().
			Str(logKeyItemID, item.ID).
			Str(logKeyTag, pred.Tag1.Tag).
			Float64(logKeyConfidence, pred.Confidence).
			Msg("low confidence prediction")
	}

	if !FlagForReview(pred, s.opts.ReviewThreshold) {
		return
	}

	observability.PredictionsNeedingReview.Inc()
	s.logger.Info().
		Str(logKeyItemID, item.ID).
		Float64(logKeyConfidence, pred.Confidence).
		Msg("prediction needs human review")
}

// FlagForReview marks pred for human review when its confidence is below
// threshold and reports whether it did.
func FlagForReview(pred *domain.Prediction, threshold float64) bool {
	if pred.Confidence >= threshold {
		return false
	}

	pred.NeedsReview = true
	pred.ReviewReason = fmt.Sprintf("confidence %.2f below review threshold %.2f", pred.Confidence, threshold)

	return true
}
