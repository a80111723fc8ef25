package tagging

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/platform/htmlutils"
	"github.com/lueurxax/event-tagger/internal/platform/observability"
)

const minTitleRunes = 3

// Validation failure reasons used as metric labels.
const (
	reasonTitleTooShort = "title_too_short"
	reasonSensitive     = "sensitive_content"
)

// sensitiveKeywords mark listings that must not leave the organization.
var sensitiveKeywords = []string{
	"klassificeret",
	"hemmeligt",
	"fortroligt",
	"privat",
	"personfølsomme",
	"gdpr",
	"databeskyttelse",
}

// Validator cleans items and rejects ones that cannot be tagged.
type Validator struct {
	keywords []string
	logger   *zerolog.Logger
}

// NewValidator creates a validator with the default sensitive keyword list.
func NewValidator(logger *zerolog.Logger) *Validator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Validator{keywords: sensitiveKeywords, logger: logger}
}

// Clean returns a copy of item with HTML removed and whitespace collapsed.
// It fails with ErrInvalidInput for short titles and with
// ErrSensitiveContent when a sensitive keyword appears.
func (v *Validator) Clean(item domain.Item) (domain.Item, error) {
	cleaned := domain.Item{
		ID:               strings.TrimSpace(item.ID),
		Title:            htmlutils.ToPlainText(item.Title),
		Organizer:        htmlutils.ToPlainText(item.Organizer),
		Subtype:          htmlutils.ToPlainText(item.Subtype),
		Teaser:           htmlutils.ToPlainText(item.Teaser),
		Description:      htmlutils.ToPlainText(item.Description),
		PlainDescription: htmlutils.ToPlainText(item.PlainDescription),
	}

	if utf8.RuneCountInString(cleaned.Title) < minTitleRunes {
		observability.ValidationFailures.WithLabelValues(reasonTitleTooShort).Inc()

		return domain.Item{}, fmt.Errorf("%w: title must be at least %d characters", coreerrors.ErrInvalidInput, minTitleRunes)
	}

	if keyword, ok := v.sensitiveKeyword(cleaned); ok {
		observability.ValidationFailures.WithLabelValues(reasonSensitive).Inc()

		return domain.Item{}, fmt.Errorf("%w: contains %q", coreerrors.ErrSensitiveContent, keyword)
	}

	if !cleaned.HasDescription() {
		v.logger.Warn().Str(logKeyItemID, cleaned.ID).Msg("item has no description, tagging from title only")
	}

	return cleaned, nil
}

func (v *Validator) sensitiveKeyword(item domain.Item) (string, bool) {
	text := strings.ToLower(strings.Join([]string{
		item.Title,
		item.Teaser,
		item.Description,
		item.PlainDescription,
	}, " "))

	for _, keyword := range v.keywords {
		if strings.Contains(text, keyword) {
			return keyword, true
		}
	}

	return "", false
}
