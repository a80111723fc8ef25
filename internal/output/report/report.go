// Package report renders evaluation reports as text tables, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lueurxax/event-tagger/internal/evaluation"
)

// Format selects the report encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	jsonIndent   = "  "
	yamlIndent   = 2
	percentScale = 100
	maxErrorLen  = 60
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat maps a case-insensitive name to a Format. "yml" and "table"
// are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "table":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *evaluation.Report, format Format) error {
	if format == FormatText || format == "" {
		return renderText(w, r)
	}

	return Encode(w, r, format)
}

// Encode writes v as indented JSON or YAML.
func Encode(w io.Writer, v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", jsonIndent)

		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(yamlIndent)

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderText(w io.Writer, r *evaluation.Report) error {
	ew := &errWriter{w: w}

	fmt.Fprintf(ew, "# Evaluation %s\n\n", r.RunID)
	fmt.Fprintf(ew, "Timestamp: %s\n", r.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))

	if r.Model != "" {
		fmt.Fprintf(ew, "Model: %s\n", r.Model)
	}

	fmt.Fprintf(ew, "Processing time: %.1f ms\n\n", r.ElapsedMS)

	ew.section("Metrics")
	writeMetrics(ew, r.Metrics)

	if len(r.Confusion) > 0 {
		ew.section("Most confused tags")
		writeConfusion(ew, r.Confusion)
	}

	if len(r.Categories) > 0 {
		ew.section("Categories")
		writeCategories(ew, r.Categories)
		fmt.Fprintf(ew, "\nBest: %s\nWorst: %s\n", joinOrDash(r.BestCategories), joinOrDash(r.WorstCategories))
	}

	if failures := r.Failures(); len(failures) > 0 {
		ew.section("Failed items")
		writeFailures(ew, failures)
	}

	return ew.err
}

func writeMetrics(w io.Writer, m evaluation.CorpusMetrics) {
	table := newTable(w, "Metric", "Value")

	rows := [][]string{
		{"Accuracy@1", percent(m.AccuracyAt1)},
		{"Accuracy@2", percent(m.AccuracyAt2)},
		{"Accuracy@3", percent(m.AccuracyAt3)},
		{"Weighted accuracy", percent(m.WeightedAccuracy)},
		{"Exact match@2", percent(m.ExactMatchAt2)},
		{"Exact match@3", percent(m.ExactMatchAt3)},
		{"Precision", ratio(m.Precision)},
		{"Recall", ratio(m.Recall)},
		{"F1", ratio(m.F1)},
		{"Average confidence", ratio(m.AverageConfidence)},
		{"Items", strconv.Itoa(m.TotalItems)},
		{"Correct", strconv.Itoa(m.CorrectItems)},
		{"Failed", strconv.Itoa(m.FailedItems)},
		{"Needs review", strconv.Itoa(m.NeedsReviewItems)},
		{"TP / FP / FN", fmt.Sprintf("%d / %d / %d", m.TruePositives, m.FalsePositives, m.FalseNegatives)},
		{"Tokens", strconv.Itoa(m.TotalTokens)},
		{"Cost (USD)", fmt.Sprintf("%.4f", m.TotalCostUSD)},
	}

	for _, row := range rows {
		_ = table.Append(row)
	}

	_ = table.Render()
}

func writeConfusion(w io.Writer, entries []evaluation.ConfusionEntry) {
	table := newTable(w, "Confusion", "Count")

	for _, e := range entries {
		_ = table.Append([]string{e.Key(), strconv.Itoa(e.Count)})
	}

	_ = table.Render()
}

func writeCategories(w io.Writer, stats []evaluation.CategoryStat) {
	table := newTable(w, "Tag", "Total", "Correct", "Accuracy")

	for _, s := range stats {
		_ = table.Append([]string{s.Tag, strconv.Itoa(s.Total), strconv.Itoa(s.Correct), percent(s.Accuracy())})
	}

	_ = table.Render()
}

func writeFailures(w io.Writer, failures []evaluation.Outcome) {
	table := newTable(w, "Item", "Title", "Error")

	for _, o := range failures {
		_ = table.Append([]string{o.ItemID, o.Title, truncate(o.Error, maxErrorLen)})
	}

	_ = table.Render()
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*percentScale)
}

func ratio(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func joinOrDash(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}

	return strings.Join(tags, ", ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit-1]) + "…"
}

// errWriter remembers the first write error so rendering code can ignore
// per-call errors.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}

	n, err := ew.w.Write(p)
	ew.err = err

	return n, err
}

func (ew *errWriter) section(title string) {
	fmt.Fprintf(ew, "\n## %s\n\n", title)
}
