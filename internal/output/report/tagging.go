package report

import (
	"fmt"
	"io"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	"github.com/lueurxax/event-tagger/internal/tagging"
)

const maxDescriptionLen = 70

// RenderCatalog writes the tag vocabulary.
func RenderCatalog(w io.Writer, catalog *domain.Catalog, format Format) error {
	rules := catalog.Rules()

	if format != FormatText && format != "" {
		if rules == nil {
			rules = []domain.TagRule{}
		}

		return Encode(w, rules, format)
	}

	ew := &errWriter{w: w}
	table := newTable(ew, "Tag", "Category", "Description")

	for _, r := range rules {
		_ = table.Append([]string{r.Tag, r.DisplayName, truncate(r.Description, maxDescriptionLen)})
	}

	_ = table.Render()

	fmt.Fprintf(ew, "\n%d tags\n", len(rules))

	return ew.err
}

// RenderBatch writes batch tagging results followed by the summary.
func RenderBatch(w io.Writer, result tagging.BatchResult, format Format) error {
	if format != FormatText && format != "" {
		return Encode(w, result, format)
	}

	ew := &errWriter{w: w}
	table := newTable(ew, "Item", "Tag 1", "Tag 2", "Tag 3", "Confidence", "Review", "Error")

	for _, r := range result.Results {
		if !r.Success {
			_ = table.Append([]string{r.ID, "-", "-", "-", "-", "-", truncate(r.Error, maxErrorLen)})

			continue
		}

		p := r.Prediction
		review := "no"

		if p.NeedsReview {
			review = "yes"
		}

		_ = table.Append([]string{r.ID, p.Tag1.String(), p.Tag2.String(), p.Tag3.String(), ratio(p.Confidence), review, ""})
	}

	_ = table.Render()

	s := result.Summary
	fmt.Fprintf(ew, "\nTotal: %d  Successful: %d  Failed: %d  Needs review: %d  Avg confidence: %s  Time: %d ms\n",
		s.Total, s.Successful, s.Failed, s.NeedsReview, ratio(s.AverageConfidence), s.ElapsedMS)

	return ew.err
}
