package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/remiges-tech/khoj/query"
)

func testRecord() LineRecord {
	return LineRecord{
		ID:         "2",
		ShabadID:   "1",
		SourceID:   "G",
		SourcePage: 1,
		Gurmukhi:   "ijin syivAw; iqin pwieAw mwnu ]",
		Transliterations: map[string]string{
			"english": "jin sevi-aa, tin paa-i-aa maan ||",
			"hindi":   "जिन सेविआ तिन पाइआ मानु ॥",
		},
		Translations: map[string]string{
			"english": "Those who serve Him are honored.",
		},
		Writer:  "Guru Nanak Dev Ji",
		Section: &Section{ID: 1, NameEnglish: "Jap Ji Sahib", NameGurmukhi: "jpu jI swihb"},
	}
}

func TestLineRecordLanguages(t *testing.T) {
	rec := testRecord()
	assert.Equal(t, "जिन सेविआ तिन पाइआ मानु ॥", rec.Transliteration("hindi"))
	assert.Equal(t, "jin sevi-aa, tin paa-i-aa maan ||", rec.Transliteration("shahmukhi"))
	assert.Equal(t, "Those who serve Him are honored.", rec.Translation("spanish"))
	assert.Equal(t, "", LineRecord{}.Translation("english"))
}

func TestLineRecordCitation(t *testing.T) {
	rec := testRecord()
	assert.Equal(t, `Guru Nanak Dev Ji. "Jap Ji Sahib", Ang 1`, rec.Citation("Ang"))

	rec.Writer = ""
	rec.SourcePage = 0
	assert.Equal(t, `"Jap Ji Sahib"`, rec.Citation("Ang"))

	rec.Section = nil
	assert.Equal(t, "", rec.Citation("Ang"))
}

func TestLineRecordIndexForms(t *testing.T) {
	rec := testRecord()
	assert.Equal(t, "jsqpm]", rec.Letters())
	assert.Equal(t, "ijin syivAw iqin pwieAw mwnu ]", rec.Plain())
}

func TestQueryOptionsShape(t *testing.T) {
	rec := testRecord()

	bare := QueryOptions{}.Shape(rec)
	assert.Nil(t, bare.Translations)
	assert.Nil(t, bare.Transliterations)
	assert.Nil(t, bare.Section)
	assert.Empty(t, bare.Writer)
	assert.Equal(t, rec.Gurmukhi, bare.Gurmukhi)

	full := QueryOptions{
		IncludeTranslations:     true,
		IncludeTransliterations: true,
		IncludeCitations:        true,
	}.Shape(rec)
	assert.Equal(t, rec, full)

	assert.NotNil(t, rec.Translations, "shaping never mutates the source record")
}

func TestCollect(t *testing.T) {
	candidates := []LineRecord{
		{ID: "3", Gurmukhi: "so purKu inrMjnu hir purKu inrMjnu"},
		{ID: "2", Gurmukhi: "ijin syivAw; iqin pwieAw mwnu ]"},
		{ID: "1", Gurmukhi: "ijin syivAw iqin pwieAw mwnu"},
	}
	options := QueryOptions{MaxResults: 20}

	got := Collect(candidates, query.Parse("jsq"), options)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "2", got[1].ID)
	}

	got = Collect(candidates, query.Parse("jsq"), QueryOptions{MaxResults: 1})
	assert.Len(t, got, 1)

	got = Collect(candidates, query.Parse("#nwmu"), options)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
