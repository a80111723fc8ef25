// Package domain holds the data objects shared by the tagging service and the
// evaluation core.
package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// Priorities are 1-based; at most three tags are assigned per item.
const (
	MaxTags = 3

	PriorityPrimary   = 1
	PrioritySecondary = 2
	PriorityTertiary  = 3
)

// Slot is an optional tag at a rank position. The zero value is absent.
type Slot struct {
	Tag   string
	Valid bool
}

// Some returns a present slot. Blank tags yield an absent slot.
func Some(tag string) Slot {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Slot{}
	}

	return Slot{Tag: tag, Valid: true}
}

// None returns an absent slot.
func None() Slot {
	return Slot{}
}

// Equal reports whether both slots are absent or both hold the same tag.
func (s Slot) Equal(o Slot) bool {
	if s.Valid != o.Valid {
		return false
	}

	return !s.Valid || s.Tag == o.Tag
}

// Is reports whether the slot is present and holds tag.
func (s Slot) Is(tag string) bool {
	return s.Valid && s.Tag == tag
}

func (s Slot) String() string {
	if !s.Valid {
		return "-"
	}

	return s.Tag
}

func (s Slot) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(s.Tag)
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	var tag *string
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	if tag == nil {
		*s = Slot{}

		return nil
	}

	*s = Some(*tag)

	return nil
}

// MarshalYAML renders absent slots as null.
func (s Slot) MarshalYAML() (interface{}, error) {
	if !s.Valid {
		return nil, nil
	}

	return s.Tag, nil
}

// GroundTruthTag is one correct tag for an item; priority 1 is the most important.
type GroundTruthTag struct {
	Tag      string `json:"tag" yaml:"tag"`
	Priority int    `json:"priority" yaml:"priority"`
}

// GroundTruth is the priority-ordered list of correct tags for an item.
type GroundTruth []GroundTruthTag

// Sorted returns a copy ordered by ascending priority.
func (g GroundTruth) Sorted() GroundTruth {
	out := make(GroundTruth, len(g))
	copy(out, g)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})

	return out
}

// At returns the tag at the given priority, or an absent slot.
func (g GroundTruth) At(priority int) Slot {
	for _, t := range g {
		if t.Priority == priority {
			return Some(t.Tag)
		}
	}

	return None()
}

// First returns the highest-priority tag.
func (g GroundTruth) First() Slot {
	sorted := g.Sorted()
	if len(sorted) == 0 {
		return None()
	}

	return Some(sorted[0].Tag)
}

// Contains reports whether tag is one of the ground-truth tags.
func (g GroundTruth) Contains(tag string) bool {
	for _, t := range g {
		if t.Tag == tag {
			return true
		}
	}

	return false
}

// Tags returns the tag names ordered by priority.
func (g GroundTruth) Tags() []string {
	sorted := g.Sorted()

	tags := make([]string, 0, len(sorted))
	for _, t := range sorted {
		tags = append(tags, t.Tag)
	}

	return tags
}

// Item is an event listing to be tagged.
type Item struct {
	ID               string `json:"arrangement_nummer" yaml:"id"`
	Title            string `json:"arrangement_titel" yaml:"title"`
	Organizer        string `json:"arrangor,omitempty" yaml:"organizer,omitempty"`
	Subtype          string `json:"arrangement_undertype,omitempty" yaml:"subtype,omitempty"`
	Teaser           string `json:"nc_teaser,omitempty" yaml:"teaser,omitempty"`
	Description      string `json:"nc_beskrivelse,omitempty" yaml:"description,omitempty"`
	PlainDescription string `json:"beskrivelse_html_fri,omitempty" yaml:"plain_description,omitempty"`
}

// HasDescription reports whether any descriptive text is present.
func (i Item) HasDescription() bool {
	return strings.TrimSpace(i.Teaser) != "" ||
		strings.TrimSpace(i.Description) != "" ||
		strings.TrimSpace(i.PlainDescription) != ""
}

// LabeledItem pairs an item with its ground truth.
type LabeledItem struct {
	Item        Item
	GroundTruth GroundTruth
}

// Prediction is the tagging service's answer for one item.
type Prediction struct {
	Tag1         Slot    `json:"tag1"`
	Tag2         Slot    `json:"tag2"`
	Tag3         Slot    `json:"tag3"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning,omitempty"`
	Model        string  `json:"model,omitempty"`
	TokensUsed   int     `json:"tokens_used,omitempty"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	NeedsReview  bool    `json:"needs_human_review"`
	ReviewReason string  `json:"review_reason,omitempty"`
}

// Slot returns the predicted tag at a rank (1..3).
func (p Prediction) Slot(rank int) Slot {
	switch rank {
	case PriorityPrimary:
		return p.Tag1
	case PrioritySecondary:
		return p.Tag2
	case PriorityTertiary:
		return p.Tag3
	default:
		return None()
	}
}

// Tags returns the present predicted tags in rank order.
func (p Prediction) Tags() []string {
	tags := make([]string, 0, MaxTags)

	for rank := PriorityPrimary; rank <= MaxTags; rank++ {
		if s := p.Slot(rank); s.Valid {
			tags = append(tags, s.Tag)
		}
	}

	return tags
}
