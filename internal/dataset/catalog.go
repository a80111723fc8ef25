package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
)

// FallbackTag is the only tag available when no rules file exists.
const FallbackTag = "GENERAL"

var (
	colMainCategory = []string{"Hovedkategori", "hovedkategori", "main_category"}
	colSubCategory  = []string{"Underkategori", "underkategori", "sub_category"}
	colRuleDesc     = []string{"Beskrivelse", "beskrivelse", "description"}
	colRuleExamples = []string{"Relevante tilbudseksempler", "eksempler", "examples"}
)

// LoadCatalog reads the tag vocabulary from a rules CSV. A missing file yields
// a catalog holding only FallbackTag.
func LoadCatalog(path string, logger *zerolog.Logger) (*domain.Catalog, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("path", path).Msg("tag rules file not found, using fallback vocabulary")

		return FallbackCatalog(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("read tag rules: %w", err)
	}

	catalog, skipped, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("path", path).
		Int("tags", catalog.Len()).
		Int("skipped", skipped).
		Msg("loaded tag rules")

	return catalog, nil
}

// ParseCatalog parses a rules CSV. Rows without a main category are skipped.
func ParseCatalog(data []byte) (*domain.Catalog, int, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, 0, fmt.Errorf("tag rules: %w", err)
	}

	rules := make([]domain.TagRule, 0, len(rows))
	skipped := 0

	for _, r := range rows {
		mainCat := r.get(colMainCategory...)
		if mainCat == "" {
			skipped++

			continue
		}

		sub := r.get(colSubCategory...)

		rule := domain.TagRule{
			MainCategory: mainCat,
			SubCategory:  sub,
			Description:  r.get(colRuleDesc...),
			Examples:     splitExamples(r.get(colRuleExamples...)),
			DisplayName:  mainCat,
		}

		if sub != "" {
			rule.Tag = NormalizeTag(sub)
			rule.DisplayName = mainCat + " - " + sub
		} else {
			rule.Tag = NormalizeTag(mainCat)
		}

		rules = append(rules, rule)
	}

	catalog := domain.NewCatalog(rules)
	if catalog.Len() == 0 {
		return nil, skipped, coreerrors.ErrEmptyCatalog
	}

	return catalog, skipped, nil
}

// FallbackCatalog returns the single-tag vocabulary used without a rules file.
func FallbackCatalog() *domain.Catalog {
	return domain.NewCatalog([]domain.TagRule{{
		Tag:          FallbackTag,
		MainCategory: "Generelt",
		Description:  "Generel kategori",
		DisplayName:  "Generelt",
	}})
}

func splitExamples(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
