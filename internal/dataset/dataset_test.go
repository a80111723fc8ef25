package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
)

const evalCSVSemicolon = "ArrangementNummer;ArrangementTitel;arrangør;nc_Teaser;CleanText;ArrangementUndertype;Underkategori1;Underkategori2;Underkategori3\n" +
	"101;Jazz i parken;Kulturhuset;Kom og hør;Live jazz hele dagen;Koncert;Musik;Udendørs;\n" +
	"102;;Kulturhuset;;;;Musik;;\n" +
	"103;Maleworkshop;Kunstskolen;;;Workshop;;;\n" +
	"104;Fodbold for børn;Klubben;;;;Sport;;Børn/unge\n" +
	";;;;;;;;\n"

const evalCSVComma = "ArrangementNummer,ArrangementTitel,Underkategori1\n" +
	"1,\"Foredrag, om historie\",Foredrag\n"

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Musik", want: "MUSIK"},
		{in: "  Børn/unge ", want: "BØRN_UNGE"},
		{in: "Kunst - design", want: "KUNST___DESIGN"},
		{in: "Mad og drikke", want: "MAD_OG_DRIKKE"},
		{in: "   ", want: ""},
		{in: "Ære", want: "ÆRE"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTag(tt.in))
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b\n1,2;3")))
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b\n1;2")))
	assert.Equal(t, ',', sniffDelimiter([]byte("single")))
}

func TestParseCSV(t *testing.T) {
	items, stats, err := ParseCSV([]byte(evalCSVSemicolon))
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Rows: 4, Kept: 2, Dropped: 2}, stats)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "101", first.Item.ID)
	assert.Equal(t, "Jazz i parken", first.Item.Title)
	assert.Equal(t, "Kulturhuset", first.Item.Organizer)
	assert.Equal(t, "Live jazz hele dagen", first.Item.Description)
	assert.Equal(t, domain.GroundTruth{
		{Tag: "MUSIK", Priority: 1},
		{Tag: "UDENDØRS", Priority: 2},
	}, first.GroundTruth)

	second := items[1]
	assert.Equal(t, domain.GroundTruth{
		{Tag: "SPORT", Priority: 1},
		{Tag: "BØRN_UNGE", Priority: 3},
	}, second.GroundTruth)
}

func TestParseCSV_CommaAndQuotes(t *testing.T) {
	items, _, err := ParseCSV([]byte("\ufeff" + evalCSVComma))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "1", items[0].Item.ID)
	assert.Equal(t, "Foredrag, om historie", items[0].Item.Title)
	assert.Equal(t, []string{"FOREDRAG"}, items[0].GroundTruth.Tags())
}

func TestParseJSONL(t *testing.T) {
	data := []byte(`{"arrangement_titel":"Koncert","ground_truth_tags":["Musik","Kunst","Mad","Sport"]}
not json

{"arrangement_nummer":"9","arrangement_titel":"Tom","ground_truth_tags":[]}
`)

	items, stats, err := parseJSONL(data)
	require.NoError(t, err)

	assert.Equal(t, LoadStats{Rows: 3, Kept: 1, Dropped: 2}, stats)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"MUSIK", "KUNST", "MAD"}, items[0].GroundTruth.Tags())
	assert.NotEmpty(t, items[0].Item.ID)

	again, _, err := parseJSONL(data)
	require.NoError(t, err)
	assert.Equal(t, items[0].Item.ID, again[0].Item.ID)
}

func TestFileProvider_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eval.csv")
	require.NoError(t, os.WriteFile(path, []byte(evalCSVSemicolon), 0o600))

	items, err := NewFileProvider(path, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = NewFileProvider(filepath.Join(dir, "missing.csv"), nil).Load(context.Background())
	require.ErrorIs(t, err, coreerrors.ErrDatasetUnavailable)
}

func TestParseCatalog(t *testing.T) {
	data := []byte("Hovedkategori;Underkategori;Beskrivelse;Relevante tilbudseksempler\n" +
		"Kultur;Musik;Koncerter og musik;koncert, festival\n" +
		"Sport;;Idræt;\n" +
		";Løst;uden hovedkategori;\n" +
		"Kultur;Kunst - design;Udstillinger;\n")

	catalog, skipped, err := ParseCatalog(data)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	assert.Equal(t, []string{"MUSIK", "SPORT", "KUNST___DESIGN"}, catalog.Tags())

	rule, ok := catalog.Rule("MUSIK")
	require.True(t, ok)
	assert.Equal(t, "Kultur - Musik", rule.DisplayName)
	assert.Equal(t, []string{"koncert", "festival"}, rule.Examples)

	rule, ok = catalog.Rule("SPORT")
	require.True(t, ok)
	assert.Equal(t, "Sport", rule.DisplayName)
}

func TestParseCatalog_AlternateHeaders(t *testing.T) {
	catalog, _, err := ParseCatalog([]byte("main_category,sub_category,description\nEvents,Talks,Talks and lectures\n"))
	require.NoError(t, err)
	assert.True(t, catalog.Has("TALKS"))

	_, _, err = ParseCatalog([]byte("main_category\n\n"))
	require.ErrorIs(t, err, coreerrors.ErrEmptyCatalog)
}

func TestLoadCatalog_MissingFileFallsBack(t *testing.T) {
	catalog, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.csv"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{FallbackTag}, catalog.Tags())
}
