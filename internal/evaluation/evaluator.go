// Package evaluation scores a tagging service against a priority-ordered
// ground truth.
//
// A run loads the dataset once, asks the tagger for a prediction per item
// (optionally with bounded concurrency), scores every item independently, and
// folds the outcomes into corpus metrics, a confusion list and a per-category
// ranking. Per-item failures are recorded on the item's outcome and never abort
// the run; only an empty or unavailable dataset does.
//
// Scoring rules:
//
//   - The match rank is the position of the first ground-truth tag equal to the
//     top prediction. The second and third predictions never produce a match.
//   - Exact match at k requires agreement at every rank up to k, including
//     agreement that a rank is empty.
//   - Precision and recall are micro-averaged over the top prediction only.
package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/core/ports"
	"github.com/lueurxax/event-tagger/internal/platform/worker"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	logFieldItemID = "item_id"
	logFieldRunID  = "run_id"
)

// Evaluator drives evaluation runs. It holds no per-run state and may be
// reused for consecutive or concurrent runs.
type Evaluator struct {
	dataset     ports.DatasetProvider
	tagger      ports.Tagger
	recorder    ports.Recorder
	logger      *zerolog.Logger
	concurrency int
	limit       int
	model       string
	now         func() time.Time
	runID       func(time.Time) string
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithConcurrency bounds the number of predictions in flight.
func WithConcurrency(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLimit evaluates only the first n items. Zero or less means all.
func WithLimit(n int) Option {
	return func(e *Evaluator) {
		e.limit = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r ports.Recorder) Option {
	return func(e *Evaluator) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithModelName labels reports with the model under evaluation.
func WithModelName(model string) Option {
	return func(e *Evaluator) {
		e.model = model
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunIDFunc replaces NewRunID.
func WithRunIDFunc(fn func(time.Time) string) Option {
	return func(e *Evaluator) {
		if fn != nil {
			e.runID = fn
		}
	}
}

// NewEvaluator creates an evaluator over a dataset and a tagger.
func NewEvaluator(dataset ports.DatasetProvider, tagger ports.Tagger, opts ...Option) *Evaluator {
	nop := zerolog.Nop()

	e := &Evaluator{
		dataset:     dataset,
		tagger:      tagger,
		recorder:    ports.NopRecorder{},
		logger:      &nop,
		concurrency: 1,
		now:         time.Now,
		runID:       NewRunID,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

type predictResult struct {
	prediction domain.Prediction
	err        error
}

// Run evaluates the whole dataset. It fails only with ErrDatasetUnavailable.
func (e *Evaluator) Run(ctx context.Context) (*Report, error) {
	start := e.now()

	items, err := e.dataset.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", coreerrors.ErrDatasetUnavailable, err)
	}

	if e.limit > 0 && len(items) > e.limit {
		items = items[:e.limit]
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items to evaluate", coreerrors.ErrDatasetUnavailable)
	}

	runID := e.runID(start)
	logger := e.logger.With().Str(logFieldRunID, runID).Logger()

	logger.Info().
		Int("items", len(items)).
		Int("concurrency", e.concurrency).
		Msg("evaluation started")

	results := e.predictAll(ctx, items, &logger)

	acc := NewAccumulator()
	outcomes := make([]Outcome, len(items))

	for i, item := range items {
		outcome := ScoreItem(item, results[i].prediction, results[i].err)
		acc.Add(outcome)
		outcomes[i] = outcome
	}

	metrics := acc.Metrics()
	categories := acc.Categories()
	best, worst := RankCategories(categories, DefaultCategoryLimit)
	elapsed := e.now().Sub(start)

	e.recorder.ObserveRun(metrics.AccuracyAt1, metrics.F1, metrics.TotalItems, metrics.FailedItems)

	logger.Info().
		Int("items", metrics.TotalItems).
		Int("correct", metrics.CorrectItems).
		Int("failed", metrics.FailedItems).
		Float64("accuracy_at_1", metrics.AccuracyAt1).
		Float64("f1", metrics.F1).
		Dur("elapsed", elapsed).
		Msg("evaluation finished")

	return Assemble(Assembly{
		RunID:      runID,
		Timestamp:  start.UTC(),
		Model:      e.model,
		Outcomes:   outcomes,
		Metrics:    metrics,
		Confusion:  acc.Confusion(),
		Categories: categories,
		Best:       best,
		Worst:      worst,
		Elapsed:    elapsed,
	}), nil
}

// predictAll resolves one prediction per item. Results are stored by input
// index, so completion order never changes the report order.
func (e *Evaluator) predictAll(ctx context.Context, items []domain.LabeledItem, logger *zerolog.Logger) []predictResult {
	results := make([]predictResult, len(items))

	worker.ForEach(ctx, len(items), e.concurrency, func(ctx context.Context, i int) {
		results[i] = e.predictOne(ctx, items[i].Item, logger)
	})

	return results
}

func (e *Evaluator) predictOne(ctx context.Context, item domain.Item, logger *zerolog.Logger) predictResult {
	if err := ctx.Err(); err != nil {
		return predictResult{err: fmt.Errorf("%w: %w", coreerrors.ErrPredictionFailed, err)}
	}

	var res predictResult

	started := time.Now()

	err := worker.Guard(logger, "predict", func() error {
		p, err := e.tagger.Predict(ctx, item)
		if err != nil {
			return err
		}

		res.prediction = p

		return nil
	})

	duration := time.Since(started)

	if err != nil {
		e.recorder.ObservePrediction(statusError, duration)
		logger.Warn().Err(err).Str(logFieldItemID, item.ID).Msg("prediction failed")

		return predictResult{err: err}
	}

	e.recorder.ObservePrediction(statusSuccess, duration)
	logger.Debug().
		Str(logFieldItemID, item.ID).
		Strs("tags", res.prediction.Tags()).
		Float64("confidence", res.prediction.Confidence).
		Msg("prediction received")

	return res
}
