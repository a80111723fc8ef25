package tagging

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/core/llm"
)

const (
	tagMusic = "MUSIK"
	tagSport = "SPORT"
	tagTalk  = "FOREDRAG"

	testModel = "gpt-4o-mini"
)

func testCatalog() *domain.Catalog {
	return domain.NewCatalog([]domain.TagRule{
		{Tag: tagMusic, MainCategory: "Musik", Description: "Koncerter, festivaler og musik"},
		{Tag: tagSport, MainCategory: "Sport", Description: "Idræt, fodbold og motion"},
		{Tag: tagTalk, MainCategory: "Viden", DisplayName: "Viden - Foredrag"},
	})
}

func testItem(id string) domain.Item {
	return domain.Item{
		ID:          id,
		Title:       "Jazzkoncert i parken",
		Organizer:   "Kulturhuset",
		Description: "<p>Live musik og koncerter hele dagen</p>",
	}
}

// scriptedClient answers every request with the same completion or error.
type scriptedClient struct {
	content string
	err     error

	mu       sync.Mutex
	requests []llm.Request
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (llm.Completion, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.err != nil {
		return llm.Completion{}, c.err
	}

	return llm.Completion{
		Content:          c.content,
		Model:            testModel,
		FinishReason:     "stop",
		PromptTokens:     1000,
		CompletionTokens: 100,
		TotalTokens:      1100,
	}, nil
}

func (c *scriptedClient) Provider() llm.ProviderName {
	return llm.ProviderMock
}

func TestValidator_Clean(t *testing.T) {
	v := NewValidator(nil)

	got, err := v.Clean(domain.Item{
		ID:          " 42 ",
		Title:       "  <b>Jazz</b>   i parken ",
		Teaser:      "Rock &amp; Roll",
		Description: "<p>Hele&nbsp;dagen</p>",
	})
	require.NoError(t, err)

	assert.Equal(t, "42", got.ID)
	assert.Equal(t, "Jazz i parken", got.Title)
	assert.Equal(t, "Rock & Roll", got.Teaser)
	assert.Equal(t, "Hele dagen", got.Description)
}

func TestValidator_Rejects(t *testing.T) {
	tests := []struct {
		name string
		item domain.Item
		want error
	}{
		{name: "empty title", item: domain.Item{Title: "  "}, want: coreerrors.ErrInvalidInput},
		{name: "short title", item: domain.Item{Title: "<i>Ab</i>"}, want: coreerrors.ErrInvalidInput},
		{name: "sensitive title", item: domain.Item{Title: "Hemmeligt møde"}, want: coreerrors.ErrSensitiveContent},
		{name: "sensitive description", item: domain.Item{Title: "Workshop", Description: "Om GDPR i foreninger"}, want: coreerrors.ErrSensitiveContent},
	}

	v := NewValidator(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Clean(tt.item)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPromptBuilder_Build(t *testing.T) {
	prompt, err := NewPromptBuilder(testCatalog()).Build(domain.Item{Title: "Jazzkoncert"})
	require.NoError(t, err)

	assert.Contains(t, prompt, "- MUSIK: Koncerter, festivaler og musik\n")
	assert.Contains(t, prompt, "- FOREDRAG: Viden - Foredrag\n")
	assert.Contains(t, prompt, "Titel: Jazzkoncert")
	assert.Contains(t, prompt, "Arrangør: "+placeholderMissing)
	assert.Contains(t, prompt, "Beskrivelse: "+placeholderNoDescription)

	vocabulary := regexp.MustCompile(`(?m)^\s*-\s*[\p{Lu}0-9_]+\s*:`)
	assert.Len(t, vocabulary.FindAllString(prompt, -1), testCatalog().Len())
}

func TestPromptBuilder_EmptyCatalog(t *testing.T) {
	_, err := NewPromptBuilder(domain.NewCatalog(nil)).Build(testItem("1"))
	require.ErrorIs(t, err, coreerrors.ErrEmptyCatalog)
}

func TestFormatItem_PrefersPlainDescription(t *testing.T) {
	got := FormatItem(domain.Item{Title: "X", Description: "<p>html</p>", PlainDescription: "plain"})
	assert.True(t, strings.HasSuffix(got, "Beskrivelse: plain"))
}

func TestParseTagResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    domain.Prediction
		wantErr error
	}{
		{
			name:    "full answer",
			content: `{"TAG1":"MUSIK","TAG2":"SPORT","TAG3":null,"CONFIDENCE":0.85,"REASONING":"koncert"}`,
			want: domain.Prediction{
				Tag1: domain.Some(tagMusic), Tag2: domain.Some(tagSport), Tag3: domain.None(),
				Confidence: 0.85, Reasoning: "koncert",
			},
		},
		{
			name:    "lowercase tags and keys in prose",
			content: "Sure:\n```json\n{\"tag1\": \"musik\", \"confidence\": \"0.6\"}\n```",
			want: domain.Prediction{
				Tag1: domain.Some(tagMusic), Tag2: domain.None(), Tag3: domain.None(), Confidence: 0.6,
			},
		},
		{
			name:    "confidence clamped",
			content: `{"TAG1":"SPORT","CONFIDENCE":1.7}`,
			want: domain.Prediction{
				Tag1: domain.Some(tagSport), Tag2: domain.None(), Tag3: domain.None(), Confidence: 1,
			},
		},
		{
			name:    "duplicate tag dropped",
			content: `{"TAG1":"SPORT","TAG2":"SPORT","TAG3":"MUSIK","CONFIDENCE":0.9}`,
			want: domain.Prediction{
				Tag1: domain.Some(tagSport), Tag2: domain.None(), Tag3: domain.Some(tagMusic), Confidence: 0.9,
			},
		},
		{name: "missing tag1", content: `{"TAG2":"SPORT","CONFIDENCE":0.9}`, wantErr: coreerrors.ErrNoPrimaryTag},
		{name: "null tag1", content: `{"TAG1":null}`, wantErr: coreerrors.ErrNoPrimaryTag},
		{name: "unknown tag", content: `{"TAG1":"MUSIK","TAG2":"TEATER"}`, wantErr: coreerrors.ErrTagNotAllowed},
		{name: "not json", content: "I cannot help", wantErr: coreerrors.ErrInvalidResponse},
		{name: "empty", content: "  ", wantErr: coreerrors.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTagResponse(tt.content, testCatalog())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlagForReview(t *testing.T) {
	pred := domain.Prediction{Confidence: 0.4}
	assert.True(t, FlagForReview(&pred, 0.5))
	assert.True(t, pred.NeedsReview)
	assert.Contains(t, pred.ReviewReason, "0.40")

	pred = domain.Prediction{Confidence: 0.5}
	assert.False(t, FlagForReview(&pred, 0.5))
	assert.False(t, pred.NeedsReview)
}

func TestService_Predict(t *testing.T) {
	client := &scriptedClient{content: `{"TAG1":"MUSIK","TAG2":"FOREDRAG","CONFIDENCE":0.45,"REASONING":"jazz"}`}
	svc := NewService(client, testCatalog(), Options{}, nil)

	pred, err := svc.Predict(context.Background(), testItem("1"))
	require.NoError(t, err)

	assert.Equal(t, domain.Some(tagMusic), pred.Tag1)
	assert.Equal(t, domain.Some(tagTalk), pred.Tag2)
	assert.Equal(t, testModel, pred.Model)
	assert.Equal(t, 1100, pred.TokensUsed)
	assert.InDelta(t, llm.EstimateCost(testModel, 1000, 100), pred.CostUSD, 1e-12)
	assert.True(t, pred.NeedsReview)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, SystemPrompt, req.System)
	assert.True(t, req.JSON)
	assert.InDelta(t, defaultTemperature, req.Temperature, 1e-6)
	assert.Equal(t, defaultMaxTokens, req.MaxTokens)
	assert.Contains(t, req.Prompt, "Beskrivelse: Live musik og koncerter hele dagen")
}

func TestService_PredictErrors(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		client  *scriptedClient
		catalog *domain.Catalog
		item    domain.Item
		want    error
	}{
		{
			name:    "invalid input",
			client:  &scriptedClient{},
			catalog: testCatalog(),
			item:    domain.Item{Title: "A"},
			want:    coreerrors.ErrInvalidInput,
		},
		{
			name:    "sensitive",
			client:  &scriptedClient{},
			catalog: testCatalog(),
			item:    domain.Item{Title: "Fortroligt bestyrelsesmøde"},
			want:    coreerrors.ErrSensitiveContent,
		},
		{
			name:    "empty catalog",
			client:  &scriptedClient{},
			catalog: domain.NewCatalog(nil),
			item:    testItem("1"),
			want:    coreerrors.ErrEmptyCatalog,
		},
		{
			name:    "client error",
			client:  &scriptedClient{err: errBoom},
			catalog: testCatalog(),
			item:    testItem("1"),
			want:    errBoom,
		},
		{
			name:    "tag outside vocabulary",
			client:  &scriptedClient{content: `{"TAG1":"TEATER"}`},
			catalog: testCatalog(),
			item:    testItem("1"),
			want:    coreerrors.ErrTagNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.client, tt.catalog, Options{}, nil)

			_, err := svc.Predict(context.Background(), tt.item)
			require.ErrorIs(t, err, coreerrors.ErrPredictionFailed)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_WithMockModel(t *testing.T) {
	svc := NewService(llm.NewMock(""), testCatalog(), Options{}, nil)

	pred, err := svc.Predict(context.Background(), testItem("1"))
	require.NoError(t, err)

	assert.Equal(t, domain.Some(tagMusic), pred.Tag1)
	assert.False(t, pred.NeedsReview)
	assert.Positive(t, pred.TokensUsed)
}

func TestValidateBatch(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.Item
		limit int
		ok    bool
	}{
		{name: "ok", items: []domain.Item{testItem("1"), testItem("2")}, limit: 2, ok: true},
		{name: "empty", items: nil, limit: 2},
		{name: "too many", items: []domain.Item{testItem("1"), testItem("2")}, limit: 1},
		{name: "duplicate", items: []domain.Item{testItem("1"), testItem("1")}, limit: 5},
		{name: "missing id", items: []domain.Item{testItem("")}, limit: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatch(tt.items, tt.limit)
			if tt.ok {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, coreerrors.ErrInvalidInput)
		})
	}
}

func TestService_TagBatch(t *testing.T) {
	client := &scriptedClient{content: `{"TAG1":"MUSIK","CONFIDENCE":0.4}`}
	svc := NewService(client, testCatalog(), Options{}, nil)

	var clockMu sync.Mutex

	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()

		tick = tick.Add(10 * time.Millisecond)

		return tick
	}

	items := make([]domain.Item, 0, 6)
	for i := 0; i < 5; i++ {
		items = append(items, testItem(fmt.Sprintf("ok-%d", i)))
	}

	items = append(items, domain.Item{ID: "bad", Title: "x"})

	got, err := svc.TagBatch(context.Background(), items, 3)
	require.NoError(t, err)

	require.Len(t, got.Results, len(items))

	for i, r := range got.Results {
		assert.Equal(t, items[i].ID, r.ID)
	}

	last := got.Results[len(items)-1]
	assert.False(t, last.Success)
	assert.Nil(t, last.Prediction)
	assert.Contains(t, last.Error, coreerrors.ErrPredictionFailed.Error())

	assert.Equal(t, 6, got.Summary.Total)
	assert.Equal(t, 5, got.Summary.Successful)
	assert.Equal(t, 1, got.Summary.Failed)
	assert.Equal(t, 5, got.Summary.NeedsReview)
	assert.InDelta(t, 0.4, got.Summary.AverageConfidence, 1e-9)
	assert.Positive(t, got.Summary.ElapsedMS)
}

func TestService_TagBatchRejectsInvalid(t *testing.T) {
	svc := NewService(&scriptedClient{}, testCatalog(), Options{BatchMaxItems: 1}, nil)

	_, err := svc.TagBatch(context.Background(), []domain.Item{testItem("1"), testItem("2")}, 1)
	require.ErrorIs(t, err, coreerrors.ErrInvalidInput)
}

func TestService_TagBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(&scriptedClient{content: `{"TAG1":"MUSIK"}`}, testCatalog(), Options{}, nil)

	got, err := svc.TagBatch(ctx, []domain.Item{testItem("1"), testItem("2")}, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Summary.Failed)
	assert.Zero(t, got.Summary.AverageConfidence)
}
