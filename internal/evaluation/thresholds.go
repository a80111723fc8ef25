package evaluation

import (
	"fmt"

	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
)

// Thresholds is a quality gate over corpus metrics. Negative values disable a check.
type Thresholds struct {
	MinAccuracyAt1      float64
	MinWeightedAccuracy float64
	MinF1               float64
}

// DisabledThresholds returns a gate that always passes.
func DisabledThresholds() Thresholds {
	return Thresholds{MinAccuracyAt1: -1, MinWeightedAccuracy: -1, MinF1: -1}
}

// Check returns an error wrapping ErrThresholdNotMet for the first failed check.
func (t Thresholds) Check(m CorpusMetrics) error {
	checks := []struct {
		name string
		got  float64
		min  float64
	}{
		{name: "accuracy@1", got: m.AccuracyAt1, min: t.MinAccuracyAt1},
		{name: "weighted accuracy", got: m.WeightedAccuracy, min: t.MinWeightedAccuracy},
		{name: "f1", got: m.F1, min: t.MinF1},
	}

	for _, c := range checks {
		if c.min >= 0 && c.got < c.min {
			return fmt.Errorf("%w: %s %.3f < %.3f", coreerrors.ErrThresholdNotMet, c.name, c.got, c.min)
		}
	}

	return nil
}
