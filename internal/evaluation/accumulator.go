package evaluation

import "sync"

// CorpusMetrics are the aggregate statistics of one evaluation run.
type CorpusMetrics struct {
	AccuracyAt1      float64 `json:"accuracy_at_1" yaml:"accuracy_at_1"`
	AccuracyAt2      float64 `json:"accuracy_at_2" yaml:"accuracy_at_2"`
	AccuracyAt3      float64 `json:"accuracy_at_3" yaml:"accuracy_at_3"`
	WeightedAccuracy float64 `json:"weighted_accuracy" yaml:"weighted_accuracy"`
	ExactMatchAt2    float64 `json:"exact_match_at_2" yaml:"exact_match_at_2"`
	ExactMatchAt3    float64 `json:"exact_match_at_3" yaml:"exact_match_at_3"`

	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1_score" yaml:"f1_score"`

	AverageConfidence float64 `json:"average_confidence" yaml:"average_confidence"`
	TotalItems        int     `json:"total_predictions" yaml:"total_predictions"`
	CorrectItems      int     `json:"correct_predictions" yaml:"correct_predictions"`
	FailedItems       int     `json:"failed_predictions" yaml:"failed_predictions"`
	NeedsReviewItems  int     `json:"needs_human_review" yaml:"needs_human_review"`

	TruePositives  int `json:"true_positives" yaml:"true_positives"`
	FalsePositives int `json:"false_positives" yaml:"false_positives"`
	FalseNegatives int `json:"false_negatives" yaml:"false_negatives"`

	TotalTokens  int     `json:"total_tokens_used" yaml:"total_tokens_used"`
	TotalCostUSD float64 `json:"total_cost_usd" yaml:"total_cost_usd"`
}

// CategoryStat counts how often a ground-truth tag occurred and how often the
// top prediction hit it.
type CategoryStat struct {
	Tag     string `json:"tag" yaml:"tag"`
	Total   int    `json:"total" yaml:"total"`
	Correct int    `json:"correct" yaml:"correct"`
}

// Accuracy is correct/total, or 0 for an unseen tag.
func (c CategoryStat) Accuracy() float64 {
	return ratio(c.Correct, c.Total)
}

// Accumulator folds outcomes into corpus counters. Each Add is applied
// atomically, so concurrent callers never observe a partially counted item.
// A fresh Accumulator is created per run.
type Accumulator struct {
	mu sync.Mutex

	n        int
	correct  int
	failed   int
	review   int
	rankHits [4]int
	exact2   int
	exact3   int
	weight   float64
	confSum  float64
	tp       int
	fp       int
	fn       int
	tokens   int
	costUSD  float64
	tagIndex map[string]int
	tags     []CategoryStat

	confusion *ConfusionTracker
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		tagIndex:  make(map[string]int),
		confusion: NewConfusionTracker(),
	}
}

// Add counts one outcome.
func (a *Accumulator) Add(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.n++
	a.confSum += o.Confidence
	a.tokens += o.TokensUsed
	a.costUSD += o.CostUSD

	if o.Failed() {
		a.failed++
	}

	if o.NeedsReview {
		a.review++
	}

	if o.IsCorrect {
		a.correct++
	}

	if o.MatchRank.Valid() {
		a.rankHits[o.MatchRank]++
		a.weight += o.MatchRank.Weight()
	}

	if o.ExactAt2 {
		a.exact2++
	}

	if o.ExactAt3 {
		a.exact3++
	}

	c := o.contrib
	a.tp += c.tp
	a.fp += c.fp
	a.fn += c.fn

	for _, tag := range c.totals {
		a.stat(tag).Total++
	}

	if c.correctTag != "" {
		a.stat(c.correctTag).Correct++
	}

	if c.confusion {
		a.confusion.Record(c.confusedTrue, c.confusedPred)
	}
}

// stat returns the counter for tag, registering it in first-seen order.
func (a *Accumulator) stat(tag string) *CategoryStat {
	pos, ok := a.tagIndex[tag]
	if !ok {
		pos = len(a.tags)
		a.tagIndex[tag] = pos
		a.tags = append(a.tags, CategoryStat{Tag: tag})
	}

	return &a.tags[pos]
}

// Metrics computes the corpus metrics. With no outcomes every ratio is 0.
func (a *Accumulator) Metrics() CorpusMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	hits1 := a.rankHits[1]
	hits2 := hits1 + a.rankHits[2]
	hits3 := hits2 + a.rankHits[3]

	precision := ratio(a.tp, a.tp+a.fp)
	recall := ratio(a.tp, a.tp+a.fn)

	return CorpusMetrics{
		AccuracyAt1:       ratio(hits1, a.n),
		AccuracyAt2:       ratio(hits2, a.n),
		AccuracyAt3:       ratio(hits3, a.n),
		WeightedAccuracy:  fraction(a.weight, a.n),
		ExactMatchAt2:     ratio(a.exact2, a.n),
		ExactMatchAt3:     ratio(a.exact3, a.n),
		Precision:         precision,
		Recall:            recall,
		F1:                harmonicMean(precision, recall),
		AverageConfidence: fraction(a.confSum, a.n),
		TotalItems:        a.n,
		CorrectItems:      a.correct,
		FailedItems:       a.failed,
		NeedsReviewItems:  a.review,
		TruePositives:     a.tp,
		FalsePositives:    a.fp,
		FalseNegatives:    a.fn,
		TotalTokens:       a.tokens,
		TotalCostUSD:      a.costUSD,
	}
}

// Categories returns the per-tag counters in first-seen order.
func (a *Accumulator) Categories() []CategoryStat {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]CategoryStat, len(a.tags))
	copy(out, a.tags)

	return out
}

// Confusion returns the confusion pairs sorted by descending count.
func (a *Accumulator) Confusion() []ConfusionEntry {
	return a.confusion.Snapshot()
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}

	return float64(numerator) / float64(denominator)
}

func fraction(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}

	return sum / float64(n)
}

func harmonicMean(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}

	return 2 * precision * recall / (precision + recall)
}
