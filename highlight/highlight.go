// Package highlight splits a display string of a matched line into the words
// before the match, the matched words and the words after it.
//
// The match is always located in the line's Gurmukhi and translated to a range
// of word indexes, which is then applied to the target string. A target such as
// a transliteration is word-aligned with the Gurmukhi but not character-aligned,
// so no character offsets cross from one string to the other.
package highlight

import (
	"strings"

	"github.com/remiges-tech/khoj/gurmukhi"
	"github.com/remiges-tech/khoj/query"
)

const wordSeparator = " "

// Span is a target string split around a match. Before, Match and After
// concatenate to the target with its vishraams removed. A part carries a
// trailing space when a later part follows it.
type Span struct {
	Before string
	Match  string
	After  string
}

// Matched reports whether the span has a highlighted part.
func (s Span) Matched() bool {
	return s.Match != ""
}

// String rejoins the three parts.
func (s Span) String() string {
	return s.Before + s.Match + s.After
}

// Context carries what every highlighter needs about the matched line.
type Context struct {
	// Gurmukhi is the line the query was matched against, in either encoding.
	Gurmukhi string
}

// Highlight splits target around the first match of q in ctx.Gurmukhi. It is a
// pure function. An empty target or query yields an empty Span; a target whose
// line does not match yields the whole target in After.
func Highlight(target string, ctx Context, q query.SearchQuery) Span {
	if target == "" || q.Value == "" {
		return Span{}
	}

	line := gurmukhi.StripVishraams(ctx.Gurmukhi)
	words := strings.Split(gurmukhi.StripVishraams(target), wordSeparator)

	var (
		r  wordRange
		ok bool
	)
	switch q.Mode {
	case query.FullWord:
		r, ok = fullWordRange(line, q.Value)
	default:
		r, ok = firstLetterRange(line, q.Value)
	}
	if !ok {
		return Span{After: strings.Join(words, wordSeparator)}
	}

	return split(words, r)
}

// ForLine returns a highlighter for the display strings of one line.
func ForLine(line string, q query.SearchQuery) func(target string) Span {
	ctx := Context{Gurmukhi: line}
	return func(target string) Span {
		return Highlight(target, ctx, q)
	}
}

// wordRange is a half-open range of word indexes.
type wordRange struct {
	start, end int
}

// fullWordRange finds value as a contiguous run of line and widens it to the
// whole words it touches.
func fullWordRange(line, value string) (wordRange, bool) {
	needle := []rune(strings.TrimSpace(value))
	if len(needle) == 0 {
		return wordRange{}, false
	}

	haystack := []rune(gurmukhi.ToASCII(line))
	pos := indexRunes(haystack, needle)
	if pos < 0 {
		return wordRange{}, false
	}

	// Words are counted by the separators before each edge of the match: the
	// match starts in the word after the last separator before it and ends in
	// the word holding its final rune.
	end := pos + len(needle)
	return wordRange{
		start: countSeparators(haystack[:pos]),
		end:   countSeparators(haystack[:end]) + 1,
	}, true
}

// firstLetterRange finds value in the line's first-letter projection. The
// projection holds one letter per word, so the match position is a word index.
func firstLetterRange(line, value string) (wordRange, bool) {
	pattern := query.CompilePattern(value)
	pos := pattern.Find(gurmukhi.Letters(line))
	if pos < 0 {
		return wordRange{}, false
	}

	return wordRange{start: pos, end: pos + pattern.Len()}, true
}

func split(words []string, r wordRange) Span {
	n := len(words)
	start := clamp(r.start, 0, n)
	end := clamp(r.end, start, n)

	span := Span{
		Before: strings.Join(words[:start], wordSeparator),
		Match:  strings.Join(words[start:end], wordSeparator),
		After:  strings.Join(words[end:], wordSeparator),
	}
	if start > 0 && start < n {
		span.Before += wordSeparator
	}
	if end > start && end < n {
		span.Match += wordSeparator
	}

	return span
}

func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if equalRunes(haystack[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func countSeparators(rs []rune) int {
	n := 0
	for _, r := range rs {
		if r == ' ' {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
