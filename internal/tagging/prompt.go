package tagging

import (
	"fmt"
	"strings"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/platform/htmlutils"
)

// SystemPrompt is sent as the system message of every tagging request.
const SystemPrompt = "You are an expert at tagging events."

// Placeholders for missing item fields.
const (
	placeholderMissing       = "Ikke angivet"
	placeholderNoDescription = "Ingen beskrivelse tilgængelig"
)

const promptHeader = `Analyze the following Danish event listing and choose up to three tags from the vocabulary below.

Available tags:`

const promptInstructions = `Rules:
1. TAG1 is the single best tag and is required.
2. TAG2 and TAG3 are optional and must differ from TAG1.
3. Use only tags from the vocabulary, spelled exactly as listed.
4. CONFIDENCE is a number between 0 and 1 for TAG1.

Answer with a JSON object only:
{"TAG1": "<tag>", "TAG2": "<tag or null>", "TAG3": "<tag or null>", "CONFIDENCE": 0.0, "REASONING": "<one sentence>"}`

// PromptBuilder renders tagging prompts for one vocabulary.
type PromptBuilder struct {
	catalog *domain.Catalog
}

// NewPromptBuilder creates a prompt builder.
func NewPromptBuilder(catalog *domain.Catalog) *PromptBuilder {
	return &PromptBuilder{catalog: catalog}
}

// Build renders the prompt for item. Each vocabulary entry is one
// "- TAG: description" line; no other line of the prompt has that shape.
func (b *PromptBuilder) Build(item domain.Item) (string, error) {
	if b.catalog.Len() == 0 {
		return "", coreerrors.ErrEmptyCatalog
	}

	var sb strings.Builder

	sb.WriteString(promptHeader)
	sb.WriteByte('\n')

	for _, rule := range b.catalog.Rules() {
		fmt.Fprintf(&sb, "- %s: %s\n", rule.Tag, describeRule(rule))
	}

	sb.WriteString("\nEvent:\n")
	sb.WriteString(FormatItem(item))
	sb.WriteString("\n\n")
	sb.WriteString(promptInstructions)

	return sb.String(), nil
}

func describeRule(rule domain.TagRule) string {
	desc := htmlutils.CollapseWhitespace(rule.Description)
	if desc == "" {
		desc = htmlutils.CollapseWhitespace(rule.DisplayName)
	}

	if len(rule.Examples) > 0 {
		desc += " (e.g. " + strings.Join(rule.Examples, ", ") + ")"
	}

	return desc
}

// FormatItem renders the item fields with Danish labels.
func FormatItem(item domain.Item) string {
	description := firstNonEmpty(item.PlainDescription, item.Description)
	if description == "" {
		description = placeholderNoDescription
	}

	lines := []string{
		"Titel: " + orPlaceholder(item.Title),
		"Arrangør: " + orPlaceholder(item.Organizer),
		"Type: " + orPlaceholder(item.Subtype),
		"Teaser: " + orPlaceholder(item.Teaser),
		"Beskrivelse: " + description,
	}

	return strings.Join(lines, "\n")
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return placeholderMissing
	}

	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}
