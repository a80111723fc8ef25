package evaluation

import (
	"time"

	"github.com/google/uuid"
)

const (
	runIDTimeFormat = "20060102T150405Z"
	runIDSuffixLen  = 8
)

// Report is the complete result of one evaluation run.
type Report struct {
	RunID           string           `json:"evaluation_id" yaml:"evaluation_id"`
	Timestamp       time.Time        `json:"timestamp" yaml:"timestamp"`
	Model           string           `json:"model_used,omitempty" yaml:"model_used,omitempty"`
	Metrics         CorpusMetrics    `json:"metrics" yaml:"metrics"`
	Results         []Outcome        `json:"results" yaml:"results"`
	Confusion       []ConfusionEntry `json:"most_confused_tags" yaml:"most_confused_tags"`
	Categories      []CategoryStat   `json:"categories" yaml:"categories"`
	BestCategories  []string         `json:"best_performing_categories" yaml:"best_performing_categories"`
	WorstCategories []string         `json:"worst_performing_categories" yaml:"worst_performing_categories"`
	ElapsedMS       float64          `json:"processing_time_ms" yaml:"processing_time_ms"`
}

// Failures returns the outcomes whose prediction failed, in input order.
func (r *Report) Failures() []Outcome {
	var out []Outcome

	for _, o := range r.Results {
		if o.Failed() {
			out = append(out, o)
		}
	}

	return out
}

// Assembly is the input to Assemble.
type Assembly struct {
	RunID      string
	Timestamp  time.Time
	Model      string
	Outcomes   []Outcome
	Metrics    CorpusMetrics
	Confusion  []ConfusionEntry
	Categories []CategoryStat
	Best       []string
	Worst      []string
	Elapsed    time.Duration
}

// Assemble packages the run's numbers into a report. It computes nothing.
func Assemble(a Assembly) *Report {
	outcomes := a.Outcomes
	if outcomes == nil {
		outcomes = []Outcome{}
	}

	confusion := a.Confusion
	if confusion == nil {
		confusion = []ConfusionEntry{}
	}

	return &Report{
		RunID:           a.RunID,
		Timestamp:       a.Timestamp,
		Model:           a.Model,
		Metrics:         a.Metrics,
		Results:         outcomes,
		Confusion:       confusion,
		Categories:      a.Categories,
		BestCategories:  nonNil(a.Best),
		WorstCategories: nonNil(a.Worst),
		ElapsedMS:       float64(a.Elapsed.Microseconds()) / 1000,
	}
}

// NewRunID returns a UTC timestamp plus a random suffix, e.g. 20250101T120000Z_1a2b3c4d.
func NewRunID(now time.Time) string {
	return now.UTC().Format(runIDTimeFormat) + "_" + uuid.NewString()[:runIDSuffixLen]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
