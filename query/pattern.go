package query

import (
	"strings"

	"github.com/remiges-tech/khoj/gurmukhi"
)

// Pattern is a compiled FirstLetter value. Each rune matches one projected
// letter; WildcardMarker matches any one letter.
type Pattern struct {
	runes []rune
}

// CompilePattern compiles a FirstLetter value. Accents are stripped so that a
// dotted letter matches its base letter, as in the projection.
func CompilePattern(value string) Pattern {
	return Pattern{runes: []rune(gurmukhi.StripAccentsASCII(value))}
}

// Len returns the number of letters the pattern spans.
func (p Pattern) Len() int {
	return len(p.runes)
}

// Find returns the rune index of the first match of p in letters, or -1.
func (p Pattern) Find(letters string) int {
	if len(p.runes) == 0 {
		return -1
	}

	haystack := []rune(letters)
	for start := 0; start+len(p.runes) <= len(haystack); start++ {
		if p.matchAt(haystack, start) {
			return start
		}
	}
	return -1
}

func (p Pattern) matchAt(haystack []rune, start int) bool {
	for i, r := range p.runes {
		if r != WildcardMarker && haystack[start+i] != r {
			return false
		}
	}
	return true
}

// Segments splits the pattern into its literal runs, dropping wildcards.
func (p Pattern) Segments() []string {
	return strings.FieldsFunc(string(p.runes), func(r rune) bool {
		return r == WildcardMarker
	})
}

// LongestSegment returns the longest literal run, or "" for an all-wildcard
// pattern. Index backends use it to narrow candidates before verifying them.
func (p Pattern) LongestSegment() string {
	longest := ""
	for _, seg := range p.Segments() {
		if len([]rune(seg)) > len([]rune(longest)) {
			longest = seg
		}
	}
	return longest
}

// String returns the pattern with accents stripped.
func (p Pattern) String() string {
	return string(p.runes)
}
