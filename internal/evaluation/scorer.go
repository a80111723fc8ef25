package evaluation

import (
	"encoding/json"
	"strconv"

	"github.com/lueurxax/event-tagger/internal/core/domain"
)

// Rank is the 1-based position, in the priority-ordered ground truth, of the tag
// matched by the first prediction.
// Zero means no match and is rendered as null.
type Rank int

// NoRank marks an item whose first prediction matched no ground-truth tag.
const NoRank Rank = 0

// Valid reports whether the rank is a match (1..3).
func (r Rank) Valid() bool {
	return r >= domain.PriorityPrimary && r <= domain.MaxTags
}

// Weight is 1/rank for a match and 0 otherwise.
func (r Rank) Weight() float64 {
	if !r.Valid() {
		return 0
	}

	return 1.0 / float64(r)
}

func (r Rank) String() string {
	if !r.Valid() {
		return "-"
	}

	return strconv.Itoa(int(r))
}

func (r Rank) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return []byte("null"), nil
	}

	return json.Marshal(int(r))
}

// MarshalYAML renders a missing rank as null.
func (r Rank) MarshalYAML() (interface{}, error) {
	if !r.Valid() {
		return nil, nil
	}

	return int(r), nil
}

// Outcome is the scored result for one item. It is immutable once returned.
type Outcome struct {
	ItemID      string      `json:"arrangement_id" yaml:"item_id"`
	Title       string      `json:"arrangement_title" yaml:"title"`
	GroundTruth []string    `json:"ground_truth_tags" yaml:"ground_truth_tags"`
	Tag1        domain.Slot `json:"predicted_tag1" yaml:"predicted_tag1"`
	Tag2        domain.Slot `json:"predicted_tag2" yaml:"predicted_tag2"`
	Tag3        domain.Slot `json:"predicted_tag3" yaml:"predicted_tag3"`
	Confidence  float64     `json:"predicted_confidence" yaml:"predicted_confidence"`
	IsCorrect   bool        `json:"is_correct" yaml:"is_correct"`
	MatchRank   Rank        `json:"match_priority" yaml:"match_priority"`
	ExactAt2    bool        `json:"exact_match_at_2" yaml:"exact_match_at_2"`
	ExactAt3    bool        `json:"exact_match_at_3" yaml:"exact_match_at_3"`
	NeedsReview bool        `json:"needs_human_review" yaml:"needs_human_review"`
	TokensUsed  int         `json:"tokens_used,omitempty" yaml:"tokens_used,omitempty"`
	CostUSD     float64     `json:"cost_usd,omitempty" yaml:"cost_usd,omitempty"`
	Error       string      `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	contrib contribution
}

// Failed reports whether the prediction for this item failed.
func (o Outcome) Failed() bool {
	return o.Error != ""
}

// contribution is what one outcome adds to the corpus counters.
type contribution struct {
	totals     []string
	correctTag string

	confusion    bool
	confusedTrue string
	confusedPred string

	tp, fp, fn int
}

// Score compares one prediction against the ground truth of one item.
func Score(gt domain.GroundTruth, p domain.Prediction) Outcome {
	sorted := gt.Sorted()
	rank := matchRank(sorted, p.Tag1)
	exact2 := exactAt(sorted, p, domain.PrioritySecondary)

	o := Outcome{
		GroundTruth: sorted.Tags(),
		Tag1:        p.Tag1,
		Tag2:        p.Tag2,
		Tag3:        p.Tag3,
		Confidence:  p.Confidence,
		IsCorrect:   rank.Valid(),
		MatchRank:   rank,
		ExactAt2:    exact2,
		ExactAt3:    exact2 && exactAt(sorted, p, domain.PriorityTertiary),
		NeedsReview: p.NeedsReview,
		TokensUsed:  p.TokensUsed,
		CostUSD:     p.CostUSD,
	}

	o.contrib = contribution{totals: sorted.Tags()}

	if o.IsCorrect {
		o.contrib.correctTag = p.Tag1.Tag
	}

	if p.Tag1.Valid && !o.IsCorrect {
		if first := sorted.First(); first.Valid {
			o.contrib.confusion = true
			o.contrib.confusedTrue = first.Tag
			o.contrib.confusedPred = p.Tag1.Tag
		}
	}

	o.contrib.tp, o.contrib.fp, o.contrib.fn = countTopTag(sorted, p.Tag1)

	return o
}

// ScoreFailure records an item whose prediction failed. Its ground-truth tags
// still count toward per-tag totals, but it adds nothing to TP, FP or FN.
func ScoreFailure(gt domain.GroundTruth, err error) Outcome {
	sorted := gt.Sorted()

	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	return Outcome{
		GroundTruth: sorted.Tags(),
		MatchRank:   NoRank,
		Error:       msg,
		contrib:     contribution{totals: sorted.Tags()},
	}
}

// ScoreItem scores a labeled item and stamps its identity on the outcome.
func ScoreItem(item domain.LabeledItem, p domain.Prediction, err error) Outcome {
	var o Outcome
	if err != nil {
		o = ScoreFailure(item.GroundTruth, err)
	} else {
		o = Score(item.GroundTruth, p)
	}

	o.ItemID = item.Item.ID
	o.Title = item.Item.Title

	return o
}

// rankSlot returns the ground-truth tag at a 1-based rank of the priority-sorted
// list. Ranks are positions, so a gap in priorities never leaves an empty rank
// ahead of a present one.
func rankSlot(sorted domain.GroundTruth, rank int) domain.Slot {
	if rank < 1 || rank > len(sorted) {
		return domain.None()
	}

	return domain.Some(sorted[rank-1].Tag)
}

// matchRank returns the rank of the first ground-truth tag equal to tag1.
func matchRank(sorted domain.GroundTruth, tag1 domain.Slot) Rank {
	if !tag1.Valid {
		return NoRank
	}

	for i, t := range sorted {
		if i >= domain.MaxTags {
			break
		}

		if t.Tag == tag1.Tag {
			return Rank(i + 1)
		}
	}

	return NoRank
}

// exactAt reports agreement at every rank from 1 to k, absence included.
// Rank 1 always requires a present, equal tag.
func exactAt(sorted domain.GroundTruth, p domain.Prediction, k int) bool {
	first := rankSlot(sorted, domain.PriorityPrimary)
	if !first.Valid || !p.Tag1.Is(first.Tag) {
		return false
	}

	for rank := domain.PrioritySecondary; rank <= k; rank++ {
		if !rankSlot(sorted, rank).Equal(p.Slot(rank)) {
			return false
		}
	}

	return true
}

// countTopTag classifies the union of ground-truth tags and tag1.
// Only the top prediction is judged; tag2 and tag3 never contribute.
func countTopTag(sorted domain.GroundTruth, tag1 domain.Slot) (tp, fp, fn int) {
	seen := make(map[string]bool, len(sorted)+1)

	for _, t := range sorted {
		if seen[t.Tag] {
			continue
		}

		seen[t.Tag] = true

		if tag1.Is(t.Tag) {
			tp++
		} else {
			fn++
		}
	}

	if tag1.Valid && !seen[tag1.Tag] {
		fp++
	}

	return tp, fp, fn
}
