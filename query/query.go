// Package query turns raw search box input into a SearchQuery: an optional
// anchor selecting the match mode, and the remaining input normalized to the
// ASCII Gurmukhi encoding.
package query

import (
	"strings"
	"unicode/utf8"

	"github.com/remiges-tech/khoj/gurmukhi"
)

// MatchMode selects how a query is matched against a line.
type MatchMode int

const (
	// FirstLetter matches the query against the first letter of each word.
	// Example: "jsq" matches "ijin syivAw iqin pwieAw".
	FirstLetter MatchMode = iota
	// FullWord matches the query as a contiguous run of the line's text.
	// Example: "#syivAw" matches "ijin syivAw iqin pwieAw".
	FullWord
)

func (m MatchMode) String() string {
	switch m {
	case FirstLetter:
		return "first-letter"
	case FullWord:
		return "full-word"
	default:
		return "unknown"
	}
}

const (
	// AnchorFullWord selects FullWord mode when it is the first input rune.
	AnchorFullWord = '#'

	// WildcardKey is the keystroke that stands for any single letter in
	// FirstLetter mode.
	WildcardKey = ' '

	// WildcardMarker replaces WildcardKey in a parsed FirstLetter value.
	WildcardMarker = '_'
)

// anchors maps anchor runes to the mode they select.
var anchors = map[rune]MatchMode{
	AnchorFullWord: FullWord,
}

// SearchQuery is the parsed form of search input.
type SearchQuery struct {
	// Anchor is the leading operator rune, or 0 when the input had none.
	Anchor rune

	// Mode is the match mode selected by Anchor, FirstLetter by default.
	Mode MatchMode

	// Value is the input after the anchor in ASCII Gurmukhi. In FirstLetter
	// mode every WildcardKey has been replaced with WildcardMarker.
	Value string
}

// Parse parses raw input. It never fails: any input, including the empty
// string, yields a query, though a short one may not be worth dispatching.
// Only the first rune is considered as an anchor; repeated anchor runes are
// part of the value.
func Parse(raw string) SearchQuery {
	q := SearchQuery{Mode: FirstLetter}

	remainder := raw
	if r, size := utf8.DecodeRuneInString(raw); size > 0 {
		if mode, ok := anchors[r]; ok {
			q.Anchor = r
			q.Mode = mode
			remainder = raw[size:]
		}
	}

	value := gurmukhi.ToASCII(remainder)
	if q.Mode == FirstLetter {
		value = strings.ReplaceAll(value, string(WildcardKey), string(WildcardMarker))
	}
	q.Value = value

	return q
}

// Len returns the length of the value in runes.
func (q SearchQuery) Len() int {
	return utf8.RuneCountInString(q.Value)
}

// Dispatchable reports whether the value has at least minChars runes.
func (q SearchQuery) Dispatchable(minChars int) bool {
	return q.Value != "" && q.Len() >= minChars
}

// HasAnchor reports whether the input started with an anchor rune.
func (q SearchQuery) HasAnchor() bool {
	return q.Anchor != 0
}

// String returns input that parses back to q.
func (q SearchQuery) String() string {
	value := q.Value
	if q.Mode == FirstLetter {
		value = strings.ReplaceAll(value, string(WildcardMarker), string(WildcardKey))
	}
	if q.HasAnchor() {
		return string(q.Anchor) + value
	}
	return value
}

// Match reports whether a stored line, in either encoding, matches q. It is
// the reference predicate lookup backends verify their candidates with.
func (q SearchQuery) Match(line string) bool {
	if q.Value == "" {
		return false
	}

	switch q.Mode {
	case FullWord:
		needle := strings.TrimSpace(q.Value)
		return needle != "" && strings.Contains(gurmukhi.Plain(line), needle)
	default:
		return CompilePattern(q.Value).Find(gurmukhi.Letters(line)) >= 0
	}
}
