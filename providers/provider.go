// Package providers defines the interface that all line lookup providers must implement,
// and the LineRecord they store and return.
package providers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/remiges-tech/khoj/gurmukhi"
	"github.com/remiges-tech/khoj/query"
)

// DefaultLanguage is the language picked when a requested one is missing.
const DefaultLanguage = "english"

// Section is the part of a source a line belongs to, e.g. a raag.
type Section struct {
	ID           int    `json:"id"`
	NameEnglish  string `json:"name_english"`
	NameGurmukhi string `json:"name_gurmukhi"`
}

// LineRecord is one line of a source as stored by a provider. Providers return
// copies; callers treat them as read-only.
type LineRecord struct {
	// ID is the unique identifier of the line.
	ID string `json:"id"`

	ShabadID   string `json:"shabad_id,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
	SourcePage int    `json:"source_page,omitempty"`

	// Gurmukhi is the line text with vishraams, in either encoding.
	Gurmukhi string `json:"gurmukhi"`

	// Transliterations and Translations are keyed by language.
	Transliterations map[string]string `json:"transliterations,omitempty"`
	Translations     map[string]string `json:"translations,omitempty"`

	// Writer and Section are citation data.
	Writer  string   `json:"writer,omitempty"`
	Section *Section `json:"section,omitempty"`
}

// Transliteration returns the transliteration in lang, falling back to
// DefaultLanguage, or "" when neither is present.
func (r LineRecord) Transliteration(lang string) string {
	return pick(r.Transliterations, lang)
}

// Translation returns the translation in lang, falling back to
// DefaultLanguage, or "" when neither is present.
func (r LineRecord) Translation(lang string) string {
	return pick(r.Translations, lang)
}

func pick(texts map[string]string, lang string) string {
	if text, ok := texts[lang]; ok {
		return text
	}
	return texts[DefaultLanguage]
}

// Citation formats where the line comes from, e.g.
//
//	Guru Nanak Dev Ji. "Jap Ji Sahib", Ang 1
//
// It returns "" when the record carries no section.
func (r LineRecord) Citation(pageName string) string {
	if r.Section == nil {
		return ""
	}

	var b strings.Builder
	if r.Writer != "" {
		b.WriteString(r.Writer)
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "%q", r.Section.NameEnglish)
	if r.SourcePage > 0 {
		fmt.Fprintf(&b, ", %s %d", pageName, r.SourcePage)
	}
	return b.String()
}

// Letters returns the first-letter projection the line is indexed under.
func (r LineRecord) Letters() string {
	return gurmukhi.Letters(r.Gurmukhi)
}

// Plain returns the vishraam-free ASCII text the line is indexed under.
func (r LineRecord) Plain() string {
	return gurmukhi.Plain(r.Gurmukhi)
}

// QueryOptions contains options for query operations.
type QueryOptions struct {
	// MaxResults limits the number of results returned.
	MaxResults int

	// IncludeTranslations, IncludeTransliterations and IncludeCitations select
	// which optional parts of a record are returned. Providers may skip loading
	// the parts that are not requested.
	IncludeTranslations     bool
	IncludeTransliterations bool
	IncludeCitations        bool
}

// Shape returns a copy of r holding only the parts options asks for.
func (o QueryOptions) Shape(r LineRecord) LineRecord {
	if !o.IncludeTranslations {
		r.Translations = nil
	}
	if !o.IncludeTransliterations {
		r.Transliterations = nil
	}
	if !o.IncludeCitations {
		r.Writer = ""
		r.Section = nil
	}
	return r
}

// Collect verifies candidates against q and returns the shaped matches ordered
// by ID, at most MaxResults of them. Providers whose native query
// only narrows candidates use it to finish a lookup.
func Collect(candidates []LineRecord, q query.SearchQuery, options QueryOptions) []LineRecord {
	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b LineRecord) int {
		return strings.Compare(a.ID, b.ID)
	})

	results := make([]LineRecord, 0, min(len(sorted), max(options.MaxResults, 0)))
	for _, rec := range sorted {
		if len(results) >= options.MaxResults {
			break
		}
		if q.Match(rec.Gurmukhi) {
			results = append(results, options.Shape(rec))
		}
	}
	return results
}

// Provider defines the interface that all lookup providers must implement.
// All methods must be safe for concurrent use. The 'key' parameter acts as
// a namespace to allow multiple datasets to coexist.
type Provider interface {
	// Index adds or updates lines. A line with an existing key+ID is replaced.
	Index(ctx context.Context, key string, records []LineRecord) error

	// Query returns the lines matching q ordered by ID, limited to
	// MaxResults. Returns an empty slice (not nil) if nothing matches.
	Query(ctx context.Context, key string, q query.SearchQuery, options QueryOptions) ([]LineRecord, error)

	// Delete removes a line from the index.
	// Deleting a non-existent line succeeds without error (idempotent).
	Delete(ctx context.Context, key, id string) error

	// DeleteAll removes all lines for a given key namespace.
	// This operation cannot be undone.
	DeleteAll(ctx context.Context, key string) error

	// Close closes the provider connection and releases resources.
	// It is safe to call multiple times. After Close, other methods will fail.
	Close() error
}
