package tagging

import (
	"context"
	"fmt"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/platform/worker"
)

const (
	defaultBatchMaxItems    = 100
	defaultBatchConcurrency = 4
)

// BatchItemResult is the outcome for one item of a batch.
type BatchItemResult struct {
	ID         string             `json:"arrangement_nummer" yaml:"id"`
	Success    bool               `json:"success" yaml:"success"`
	Prediction *domain.Prediction `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total             int     `json:"total" yaml:"total"`
	Successful        int     `json:"successful" yaml:"successful"`
	Failed            int     `json:"failed" yaml:"failed"`
	NeedsReview       int     `json:"needs_review" yaml:"needs_review"`
	AverageConfidence float64 `json:"average_confidence" yaml:"average_confidence"`
	ElapsedMS         int64   `json:"processing_time_ms" yaml:"processing_time_ms"`
}

// BatchResult holds per-item results in input order plus a summary.
type BatchResult struct {
	Results []BatchItemResult `json:"results" yaml:"results"`
	Summary BatchSummary      `json:"summary" yaml:"summary"`
}

// ValidateBatch checks the batch size against limit and that item IDs are
// present and unique.
func ValidateBatch(items []domain.Item, limit int) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: batch is empty", coreerrors.ErrInvalidInput)
	}

	if len(items) > limit {
		return fmt.Errorf("%w: batch has %d items, limit is %d", coreerrors.ErrInvalidInput, len(items), limit)
	}

	seen := make(map[string]bool, len(items))

	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: item %d has no arrangement_nummer", coreerrors.ErrInvalidInput, i)
		}

		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate arrangement_nummer %q", coreerrors.ErrInvalidInput, item.ID)
		}

		seen[item.ID] = true
	}

	return nil
}

// TagBatch tags items with at most concurrency model calls in flight. A
// failing item does not stop the batch. It returns an error only when the
// batch itself is invalid.
func (s *Service) TagBatch(ctx context.Context, items []domain.Item, concurrency int) (BatchResult, error) {
	if err := ValidateBatch(items, s.opts.BatchMaxItems); err != nil {
		return BatchResult{}, err
	}

	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	started := s.now()
	results := make([]BatchItemResult, len(items))

	worker.ForEach(ctx, len(items), concurrency, func(ctx context.Context, i int) {
		results[i] = s.tagOne(ctx, items[i])
	})

	summary := summarize(results)
	summary.ElapsedMS = s.now().Sub(started).Milliseconds()

	s.logger.Info().
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Int("needs_review", summary.NeedsReview).
		Msg("batch tagged")

	return BatchResult{Results: results, Summary: summary}, nil
}

func (s *Service) tagOne(ctx context.Context, item domain.Item) BatchItemResult {
	result := BatchItemResult{ID: item.ID}

	if err := ctx.Err(); err != nil {
		result.Error = fmt.Errorf("%w: %w", coreerrors.ErrPredictionFailed, err).Error()

		return result
	}

	var pred domain.Prediction

	err := worker.Guard(s.logger, "tag", func() error {
		var predErr error

		pred, predErr = s.Predict(ctx, item)

		return predErr
	})
	if err != nil {
		result.Error = err.Error()

		return result
	}

	result.Success = true
	result.Prediction = &pred

	return result
}

func summarize(results []BatchItemResult) BatchSummary {
	summary := BatchSummary{Total: len(results)}

	var confidenceSum float64

	for _, r := range results {
		if !r.Success {
			summary.Failed++

			continue
		}

		summary.Successful++
		confidenceSum += r.Prediction.Confidence

		if r.Prediction.NeedsReview {
			summary.NeedsReview++
		}
	}

	if summary.Successful > 0 {
		summary.AverageConfidence = confidenceSum / float64(summary.Successful)
	}

	return summary
}
