package evaluation

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-tagger/internal/core/domain"
)

func TestAccumulator_Empty(t *testing.T) {
	m := NewAccumulator().Metrics()

	assert.Equal(t, CorpusMetrics{}, m)
}

func TestAccumulator_Metrics(t *testing.T) {
	acc := NewAccumulator()

	withConfidence := func(p domain.Prediction, c float64) domain.Prediction {
		p.Confidence = c

		return p
	}

	acc.Add(Score(gt(tagMusic, tagArt), withConfidence(pred(tagMusic), 0.9)))
	acc.Add(Score(gt(tagMusic, tagArt), withConfidence(pred(tagArt), 0.6)))
	acc.Add(Score(gt(tagSport), withConfidence(pred(tagFood), 0.3)))
	acc.Add(ScoreFailure(gt(tagSport), errors.New("timeout")))

	m := acc.Metrics()

	assert.Equal(t, 4, m.TotalItems)
	assert.Equal(t, 2, m.CorrectItems)
	assert.Equal(t, 1, m.FailedItems)
	assert.InDelta(t, 0.25, m.AccuracyAt1, 1e-9)
	assert.InDelta(t, 0.5, m.AccuracyAt2, 1e-9)
	assert.InDelta(t, 0.5, m.AccuracyAt3, 1e-9)
	assert.InDelta(t, 1.5/4, m.WeightedAccuracy, 1e-9)
	assert.InDelta(t, 1.8/4, m.AverageConfidence, 1e-9)

	// TP: 1+1, FP: 1 (MAD), FN: 1+1+1; the failed item adds nothing.
	assert.Equal(t, 2, m.TruePositives)
	assert.Equal(t, 1, m.FalsePositives)
	assert.Equal(t, 3, m.FalseNegatives)
	assert.InDelta(t, 2.0/3, m.Precision, 1e-9)
	assert.InDelta(t, 2.0/5, m.Recall, 1e-9)
	assert.InDelta(t, 2*(2.0/3)*(2.0/5)/((2.0/3)+(2.0/5)), m.F1, 1e-9)

	cats := acc.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, CategoryStat{Tag: tagMusic, Total: 2, Correct: 1}, cats[0])
	assert.Equal(t, CategoryStat{Tag: tagArt, Total: 2, Correct: 1}, cats[1])
	assert.Equal(t, CategoryStat{Tag: tagSport, Total: 2, Correct: 0}, cats[2])

	confusion := acc.Confusion()
	require.Len(t, confusion, 1)
	assert.Equal(t, "SPORT → MAD", confusion[0].Key())
	assert.Equal(t, 1, confusion[0].Count)
}

func TestAccumulator_Bounds(t *testing.T) {
	truths := []domain.GroundTruth{gt("A", "B", "C"), gt("B"), gt("C", "A")}
	preds := []domain.Prediction{pred("C"), pred("B", "A"), pred("A", "C"), pred(), pred("Z")}

	acc := NewAccumulator()

	for _, truth := range truths {
		for _, p := range preds {
			acc.Add(Score(truth, p))
		}
	}

	m := acc.Metrics()

	assert.LessOrEqual(t, m.AccuracyAt1, m.AccuracyAt2)
	assert.LessOrEqual(t, m.AccuracyAt2, m.AccuracyAt3)
	assert.LessOrEqual(t, m.AccuracyAt3, 1.0)
	assert.LessOrEqual(t, m.ExactMatchAt3, m.ExactMatchAt2)

	for _, v := range []float64{m.Precision, m.Recall, m.F1, m.WeightedAccuracy} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestAccumulator_ConcurrentAdd(t *testing.T) {
	acc := NewAccumulator()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			acc.Add(Score(gt(tagSport), pred(tagFood)))
		}()
	}

	wg.Wait()

	m := acc.Metrics()
	assert.Equal(t, 50, m.TotalItems)
	assert.Equal(t, 50, m.FalsePositives)
	assert.Equal(t, 50, acc.Confusion()[0].Count)
}

func TestConfusionTracker_StableOrder(t *testing.T) {
	tr := NewConfusionTracker()

	tr.Record("A", "B")
	tr.Record("C", "D")
	tr.Record("E", "F")
	tr.Record("E", "F")

	snap := tr.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "E → F", snap[0].Key())
	assert.Equal(t, "A → B", snap[1].Key())
	assert.Equal(t, "C → D", snap[2].Key())
	assert.Equal(t, 4, tr.Total())
}

func TestRankCategories(t *testing.T) {
	stats := []CategoryStat{
		{Tag: "A", Total: 2, Correct: 1},
		{Tag: "B", Total: 1, Correct: 1},
		{Tag: "C", Total: 4, Correct: 2},
		{Tag: "D", Total: 3, Correct: 0},
		{Tag: "E", Total: 1, Correct: 1},
	}

	tests := []struct {
		name      string
		limit     int
		wantBest  []string
		wantWorst []string
	}{
		{name: "default limit", limit: DefaultCategoryLimit, wantBest: []string{"B", "E", "A"}, wantWorst: []string{"D", "A", "C"}},
		{name: "limit above size", limit: 10, wantBest: []string{"B", "E", "A", "C", "D"}, wantWorst: []string{"D", "A", "C", "B", "E"}},
		{name: "zero limit", limit: 0, wantBest: []string{}, wantWorst: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, worst := RankCategories(stats, tt.limit)
			assert.Equal(t, tt.wantBest, best)
			assert.Equal(t, tt.wantWorst, worst)
		})
	}

	best, worst := RankCategories(nil, DefaultCategoryLimit)
	assert.Empty(t, best)
	assert.Empty(t, worst)
}
