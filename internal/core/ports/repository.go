// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing the evaluation core to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/event-tagger/internal/core/domain"
)

// DatasetProvider yields the labeled items of one evaluation run.
// Every returned item carries at least one ground-truth tag.
type DatasetProvider interface {
	Load(ctx context.Context) ([]domain.LabeledItem, error)
}

// Tagger predicts up to three tags for an item. Implementations own their
// timeouts and must not retain the item after returning.
type Tagger interface {
	Predict(ctx context.Context, item domain.Item) (domain.Prediction, error)
}

// TaggerFunc adapts a function to the Tagger interface.
type TaggerFunc func(ctx context.Context, item domain.Item) (domain.Prediction, error)

// Predict calls f.
func (f TaggerFunc) Predict(ctx context.Context, item domain.Item) (domain.Prediction, error) {
	return f(ctx, item)
}

// Recorder observes evaluation progress. Used for metrics export.
type Recorder interface {
	ObservePrediction(status string, duration time.Duration)
	ObserveRun(accuracyAt1, f1 float64, items, failed int)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

func (NopRecorder) ObservePrediction(string, time.Duration) {}

func (NopRecorder) ObserveRun(float64, float64, int, int) {}
