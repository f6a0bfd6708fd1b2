package bleve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/khoj/providers"
	"github.com/remiges-tech/khoj/providers/providertest"
	"github.com/remiges-tech/khoj/query"
)

func TestProviderInMemory(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	providertest.Run(t, p, nil)
}

func TestProviderOnDisk(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lines.bleve")

	p, err := New(Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, p.Index(ctx, providertest.Key, providertest.Lines()))
	require.NoError(t, p.Close())

	p, err = New(Config{Path: path})
	require.NoError(t, err)
	defer p.Close()

	results, err := p.Query(ctx, providertest.Key, query.Parse("#purKu"), providers.QueryOptions{MaxResults: 20})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[0].ID)
	assert.Equal(t, "3", results[1].ID)
}

func TestProviderLiteralWildcardCharacters(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Index(ctx, "k", []providers.LineRecord{
		{ID: "1", Gurmukhi: "a*b"},
		{ID: "2", Gurmukhi: "axb"},
	}))

	results, err := p.Query(ctx, "k", query.Parse("#a*b"), providers.QueryOptions{MaxResults: 20})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)
}

func TestProviderClosed(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	require.NoError(t, p.Close())

	ctx := context.Background()
	_, err = p.Query(ctx, "k", query.Parse("jsq"), providers.QueryOptions{MaxResults: 20})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Index(ctx, "k", providertest.Lines()), ErrClosed)
	assert.ErrorIs(t, p.Delete(ctx, "k", "1"), ErrClosed)
	assert.ErrorIs(t, p.DeleteAll(ctx, "k"), ErrClosed)
}

func TestWildcardFor(t *testing.T) {
	tests := []struct {
		raw         string
		wantField   string
		wantPattern string
		wantExact   bool
		wantOK      bool
	}{
		{"jsq", "first_letters", "*jsq*", true, true},
		{"j q", "first_letters", "*j?q*", true, true},
		{"j?q", "first_letters", "*j?q*", false, true},
		{"#siq nwmu", "gurmukhi_plain", "*siq nwmu*", true, true},
		{"#a*b", "gurmukhi_plain", "*a?b*", false, true},
		{"#", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			field, pattern, exact, ok := wildcardFor(query.Parse(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantField, field)
			assert.Equal(t, tt.wantPattern, pattern)
			assert.Equal(t, tt.wantExact, exact)
		})
	}
}
