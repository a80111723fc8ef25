package tagging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/core/llm"
	"github.com/lueurxax/event-tagger/internal/dataset"
)

// Response keys.
const (
	keyTag1       = "TAG1"
	keyTag2       = "TAG2"
	keyTag3       = "TAG3"
	keyConfidence = "CONFIDENCE"
	keyReasoning  = "REASONING"
)

var tagKeys = [domain.MaxTags]string{keyTag1, keyTag2, keyTag3}

// ParseTagResponse decodes a model answer into a prediction. Keys are
// matched case-insensitively, tags are normalized to vocabulary form, and
// confidence is clamped to [0, 1]. A missing TAG1 fails with ErrNoPrimaryTag,
// an unknown tag with ErrTagNotAllowed. A repeated tag leaves its later slot
// empty.
func ParseTagResponse(content string, catalog *domain.Catalog) (domain.Prediction, error) {
	raw := strings.TrimSpace(llm.ExtractJSON(content))
	if raw == "" {
		return domain.Prediction{}, coreerrors.ErrEmptyResponse
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: %w", coreerrors.ErrInvalidResponse, err)
	}

	fields := make(map[string]interface{}, len(decoded))
	for k, v := range decoded {
		fields[strings.ToUpper(strings.TrimSpace(k))] = v
	}

	var (
		slots [domain.MaxTags]domain.Slot
		seen  = make(map[string]bool, domain.MaxTags)
	)

	for i, key := range tagKeys {
		tag := dataset.NormalizeTag(stringValue(fields[key]))
		if tag == "" || seen[tag] {
			slots[i] = domain.None()

			continue
		}

		if !catalog.Has(tag) {
			return domain.Prediction{}, fmt.Errorf("%w: %s=%q", coreerrors.ErrTagNotAllowed, key, tag)
		}

		seen[tag] = true
		slots[i] = domain.Some(tag)
	}

	if !slots[0].Valid {
		return domain.Prediction{}, coreerrors.ErrNoPrimaryTag
	}

	return domain.Prediction{
		Tag1:       slots[0],
		Tag2:       slots[1],
		Tag3:       slots[2],
		Confidence: clamp01(floatValue(fields[keyConfidence])),
		Reasoning:  strings.TrimSpace(stringValue(fields[keyReasoning])),
	}, nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
			return ""
		}

		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func floatValue(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}

		return f
	default:
		return 0
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
