package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	mockBaseConfidence    = 0.5
	mockConfidencePerHit  = 0.15
	mockMaxConfidence     = 0.95
	mockNoMatchConfidence = 0.3
	mockMinWordLen        = 4
	mockCharsPerToken     = 4
	mockMaxTags           = 3
)

// vocabularyLine matches prompt lines of the form "- TAG: description".
var vocabularyLine = regexp.MustCompile(`^\s*-\s*([\p{Lu}0-9_]+)\s*:\s*(.*)$`)

// mockClient answers tagging prompts without a network call. It reads the
// vocabulary from "- TAG: description" lines and ranks tags by word overlap
// with the rest of the prompt.
type mockClient struct {
	model string
}

// NewMock creates a deterministic offline client.
func NewMock(model string) Client {
	if model == "" {
		model = string(ProviderMock)
	}

	return &mockClient{model: model}
}

func (m *mockClient) Provider() ProviderName {
	return ProviderMock
}

type mockTag struct {
	name  string
	words []string
	score int
}

func (m *mockClient) Complete(ctx context.Context, req Request) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, err
	}

	tags, text := splitPrompt(req.Prompt)

	content := mockAnswer(tags, wordSet(text))

	promptTokens := (len(req.System) + len(req.Prompt) + mockCharsPerToken - 1) / mockCharsPerToken
	completionTokens := (len(content) + mockCharsPerToken - 1) / mockCharsPerToken

	return Completion{
		Content:          content,
		Model:            m.model,
		FinishReason:     finishReasonStop,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}, nil
}

func splitPrompt(prompt string) ([]*mockTag, string) {
	var (
		tags []*mockTag
		rest strings.Builder
	)

	for _, line := range strings.Split(prompt, "\n") {
		match := vocabularyLine.FindStringSubmatch(line)
		if match == nil {
			rest.WriteString(line)
			rest.WriteByte('\n')

			continue
		}

		name := match[1]
		words := tokenize(strings.ReplaceAll(name, "_", " ") + " " + match[2])
		tags = append(tags, &mockTag{name: name, words: words})
	}

	return tags, rest.String()
}

func mockAnswer(tags []*mockTag, text map[string]bool) string {
	answer := map[string]interface{}{
		"TAG1":       nil,
		"TAG2":       nil,
		"TAG3":       nil,
		"CONFIDENCE": 0.0,
		"REASONING":  "no vocabulary in prompt",
	}

	if len(tags) == 0 {
		return marshalAnswer(answer)
	}

	for _, t := range tags {
		seen := make(map[string]bool, len(t.words))

		for _, w := range t.words {
			if text[w] && !seen[w] {
				seen[w] = true
				t.score++
			}
		}
	}

	ranked := make([]*mockTag, len(tags))
	copy(ranked, tags)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if ranked[0].score == 0 {
		answer["TAG1"] = ranked[0].name
		answer["CONFIDENCE"] = mockNoMatchConfidence
		answer["REASONING"] = "no keyword overlap, defaulting to first tag"

		return marshalAnswer(answer)
	}

	keys := []string{"TAG1", "TAG2", "TAG3"}

	for i, t := range ranked {
		if i == mockMaxTags || t.score == 0 {
			break
		}

		answer[keys[i]] = t.name
	}

	confidence := mockBaseConfidence + mockConfidencePerHit*float64(ranked[0].score)
	if confidence > mockMaxConfidence {
		confidence = mockMaxConfidence
	}

	answer["CONFIDENCE"] = confidence
	answer["REASONING"] = fmt.Sprintf("%d keyword matches for %s", ranked[0].score, ranked[0].name)

	return marshalAnswer(answer)
}

func marshalAnswer(answer map[string]interface{}) string {
	data, err := json.Marshal(answer)
	if err != nil {
		return "{}"
	}

	return string(data)
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]

	for _, f := range fields {
		if len([]rune(f)) >= mockMinWordLen {
			out = append(out, f)
		}
	}

	return out
}

func wordSet(text string) map[string]bool {
	words := tokenize(text)

	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	return set
}
