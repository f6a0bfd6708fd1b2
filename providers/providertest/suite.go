// Package providertest holds the behaviour every lookup provider must share,
// as a test suite each provider package runs against its own backend.
package providertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/query"
)

// Key is the namespace the suite indexes into.
const Key = "suite"

// Lines returns the fixture lines. The fourth line is stored in Unicode to
// check that both encodings are indexed alike.
func Lines() []providers.LineRecord {
	section := &providers.Section{ID: 1, NameEnglish: "Jap Ji Sahib", NameGurmukhi: "jpu jI swihb"}
	return []providers.LineRecord{
		{
			ID: "1", ShabadID: "A", SourceID: "G", SourcePage: 2,
			Gurmukhi:         "ijin syivAw; iqin pwieAw mwnu ]",
			Transliterations: map[string]string{"english": "jin sevi-aa, tin paa-i-aa maan ||"},
			Translations:     map[string]string{"english": "Those who serve Him are honored."},
			Writer:           "Guru Nanak Dev Ji",
			Section:          section,
		},
		{
			ID: "2", ShabadID: "B", SourceID: "G", SourcePage: 10,
			Gurmukhi: "so purKu inrMjnu hir purKu inrMjnu hir Agmw Agm Apwrw ]",
		},
		{
			ID: "3", ShabadID: "A", SourceID: "G", SourcePage: 1,
			Gurmukhi:         "siq nwmu krqw purKu",
			Transliterations: map[string]string{"english": "sat naam kartaa purakh", "hindi": "सति नामु करता पुरखु"},
			Writer:           "Guru Nanak Dev Ji",
			Section:          section,
		},
		{
			ID: "4", ShabadID: "C", SourceID: "G", SourcePage: 3,
			Gurmukhi: "ਸਤਿ ਨਾਮੁ",
		},
		{
			ID: "5", ShabadID: "D", SourceID: "G", SourcePage: 4,
			Gurmukhi: "Sbd gur pIrw",
		},
	}
}

// Run exercises provider p, which must start empty and is closed when the
// suite finishes. refresh, when not nil, is called after every write for
// backends whose writes become searchable asynchronously.
func Run(t *testing.T, p providers.Provider, refresh func()) {
	t.Helper()
	ctx := context.Background()
	all := providers.QueryOptions{MaxResults: 20}

	if refresh == nil {
		refresh = func() {}
	}
	search := func(t *testing.T, raw string, options providers.QueryOptions) []string {
		t.Helper()
		results, err := p.Query(ctx, Key, query.Parse(raw), options)
		require.NoError(t, err)
		require.NotNil(t, results)
		return ids(results)
	}

	require.NoError(t, p.Index(ctx, Key, Lines()))
	refresh()

	t.Run("Matching", func(t *testing.T) {
		tests := []struct {
			raw  string
			want []string
		}{
			{"jsq", []string{"1"}},
			{"sn", []string{"3", "4"}},
			{"s n", []string{"2"}},
			{"AAA", []string{"2"}},
			{"Sg", []string{"5"}},
			{"sg", []string{"5"}},
			{"__", []string{"1", "2", "3", "4", "5"}},
			{"xyz", []string{}},
			{"#siq nwmu", []string{"3", "4"}},
			{"#purKu", []string{"2", "3"}},
			{"#syivAw iqin", []string{"1"}},
			{"#Sbd", []string{"5"}},
			{"#sbd", []string{}},
			{"#nwmu ]", []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.raw, func(t *testing.T) {
				assert.Equal(t, tt.want, search(t, tt.raw, all))
			})
		}
	})

	t.Run("MaxResults", func(t *testing.T) {
		assert.Equal(t, []string{"2"}, search(t, "#purKu", providers.QueryOptions{MaxResults: 1}))
	})

	t.Run("Shaping", func(t *testing.T) {
		results, err := p.Query(ctx, Key, query.Parse("jsq"), all)
		require.NoError(t, err)
		require.Len(t, results, 1)
		bare := results[0]
		assert.Equal(t, "ijin syivAw; iqin pwieAw mwnu ]", bare.Gurmukhi)
		assert.Equal(t, "A", bare.ShabadID)
		assert.Equal(t, 2, bare.SourcePage)
		assert.Nil(t, bare.Translations)
		assert.Nil(t, bare.Transliterations)
		assert.Nil(t, bare.Section)

		results, err = p.Query(ctx, Key, query.Parse("jsq"), providers.QueryOptions{
			MaxResults:              20,
			IncludeTranslations:     true,
			IncludeTransliterations: true,
			IncludeCitations:        true,
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		full := results[0]
		assert.Equal(t, "Those who serve Him are honored.", full.Translation("english"))
		assert.Equal(t, "jin sevi-aa, tin paa-i-aa maan ||", full.Transliteration("english"))
		assert.Equal(t, `Guru Nanak Dev Ji. "Jap Ji Sahib", Ang 2`, full.Citation("Ang"))
	})

	t.Run("Namespaces", func(t *testing.T) {
		other := Key + "-other"
		require.NoError(t, p.Index(ctx, other, Lines()[:1]))
		refresh()

		results, err := p.Query(ctx, other, query.Parse("sn"), all)
		require.NoError(t, err)
		assert.Empty(t, results)

		require.NoError(t, p.DeleteAll(ctx, other))
		refresh()

		results, err = p.Query(ctx, other, query.Parse("jsq"), all)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, []string{"1"}, search(t, "jsq", all))
	})

	t.Run("Replace", func(t *testing.T) {
		replaced := Lines()[4]
		replaced.Gurmukhi = "gur pIrw"
		require.NoError(t, p.Index(ctx, Key, []providers.LineRecord{replaced}))
		refresh()

		assert.Equal(t, []string{}, search(t, "Sg", all))
		assert.Equal(t, []string{"5"}, search(t, "gp", all))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, p.Delete(ctx, Key, "3"))
		require.NoError(t, p.Delete(ctx, Key, "missing"))
		refresh()

		assert.Equal(t, []string{"2"}, search(t, "#purKu", all))
		assert.Equal(t, []string{"4"}, search(t, "sn", all))
	})

	t.Run("DeleteAll", func(t *testing.T) {
		require.NoError(t, p.DeleteAll(ctx, Key))
		refresh()

		assert.Equal(t, []string{}, search(t, "__", all))
	})

	t.Run("Close", func(t *testing.T) {
		require.NoError(t, p.Close())
		assert.NoError(t, p.Close())
	})
}

func ids(records []providers.LineRecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.ID
	}
	return out
}
