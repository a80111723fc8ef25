package evaluation

import (
	"sort"
	"sync"
)

const confusionArrow = " → "

// ConfusionEntry is one observed true-tag → predicted-tag mismatch.
type ConfusionEntry struct {
	True      string `json:"true_tag" yaml:"true_tag"`
	Predicted string `json:"predicted_tag" yaml:"predicted_tag"`
	Count     int    `json:"count" yaml:"count"`
}

// Key renders the pair as "<true> → <predicted>".
func (e ConfusionEntry) Key() string {
	return e.True + confusionArrow + e.Predicted
}

// ConfusionTracker counts mismatches between the first ground-truth tag and
// the top prediction.
type ConfusionTracker struct {
	mu      sync.Mutex
	index   map[string]int
	entries []ConfusionEntry
}

// NewConfusionTracker creates an empty tracker.
func NewConfusionTracker() *ConfusionTracker {
	return &ConfusionTracker{index: make(map[string]int)}
}

// Record counts one mismatch.
func (t *ConfusionTracker) Record(trueTag, predictedTag string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := trueTag + confusionArrow + predictedTag

	pos, ok := t.index[key]
	if !ok {
		pos = len(t.entries)
		t.index[key] = pos
		t.entries = append(t.entries, ConfusionEntry{True: trueTag, Predicted: predictedTag})
	}

	t.entries[pos].Count++
}

// Snapshot returns the entries by descending count. Equal counts keep the
// order in which the pair was first recorded.
func (t *ConfusionTracker) Snapshot() []ConfusionEntry {
	t.mu.Lock()
	out := make([]ConfusionEntry, len(t.entries))
	copy(out, t.entries)
	t.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})

	return out
}

// Total returns the number of recorded mismatches.
func (t *ConfusionTracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, e := range t.entries {
		total += e.Count
	}

	return total
}
