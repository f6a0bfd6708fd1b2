package gurmukhi

import "strings"

// Vishraams are the pause marks embedded in stored lines.
const (
	VishraamHeavy  = ';'
	VishraamMedium = ','
	VishraamLight  = '.'
)

// placeholder stands in for a word with no runes in a first-letter projection.
const placeholder = ' '

var accents = map[rune]rune{
	'\u0A36': 'ਸ',
	'\u0A59': 'ਖ',
	'\u0A5A': 'ਗ',
	'\u0A5B': 'ਜ',
	'\u0A5E': 'ਫ',
	'\u0A33': 'ਲ',
	'ਆ': 'ਅ',
	'ਐ': 'ਅ',
	'ਔ': 'ਅ',
	'ਇ': 'ੲ',
	'ਈ': 'ੲ',
	'ਏ': 'ੲ',
	'ਉ': 'ੳ',
	'ਊ': 'ੳ',
	'ਓ': 'ੳ',
}

// asciiAccents is accents restated in single ASCII keystrokes.
var asciiAccents map[rune]rune

func init() {
	asciiAccents = make(map[rune]rune)
	for from, to := range accents {
		a, b := []rune(ToASCII(string(from))), []rune(ToASCII(string(to)))
		if len(a) == 1 && len(b) == 1 {
			asciiAccents[a[0]] = b[0]
		}
	}
}

// StripVishraams removes pause marks. Spaces are untouched, so word positions
// are preserved.
func StripVishraams(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case VishraamHeavy, VishraamMedium, VishraamLight:
			return -1
		}
		return r
	}, s)
}

// StripAccents replaces dotted consonants and independent vowels in Unicode
// text with their base letter or carrier, and drops any remaining nukta.
func StripAccents(s string) string {
	return strings.Map(func(r rune) rune {
		if r == nukta {
			return -1
		}
		if base, ok := accents[r]; ok {
			return base
		}
		return r
	}, s)
}

// StripAccentsASCII is StripAccents for ASCII-encoded text such as a typed
// first-letter query.
func StripAccentsASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 'æ' {
			return -1
		}
		if base, ok := asciiAccents[r]; ok {
			return base
		}
		return r
	}, s)
}

// FirstLetters projects a Unicode line to exactly one rune per space-separated
// word: the first letter of the word, or its first rune when it has no letter.
// Empty words (from repeated spaces) project to a space.
func FirstLetters(s string) string {
	words := strings.Split(s, " ")

	var b strings.Builder
	for _, word := range words {
		b.WriteRune(firstLetter(word))
	}
	return b.String()
}

func firstLetter(word string) rune {
	first := placeholder
	for i, r := range word {
		if i == 0 {
			first = r
		}
		if IsLetter(r) || IsIndependentVowel(r) {
			return r
		}
	}
	return first
}

// Letters returns the ASCII first-letter projection of a stored line, in either
// encoding, after removing vishraams and accents. The result has one rune per
// word of the line, which makes a match index in it a word index.
func Letters(line string) string {
	projected := FirstLetters(StripAccents(ToUnicode(StripVishraams(line))))

	var b strings.Builder
	for _, r := range projected {
		ascii := []rune(ToASCII(string(r)))
		if len(ascii) == 0 {
			b.WriteRune(placeholder)
			continue
		}
		b.WriteRune(ascii[0])
	}
	return b.String()
}

// Plain returns a stored line in ASCII encoding with vishraams removed, the
// form full-word queries are matched against.
func Plain(line string) string {
	return ToASCII(StripVishraams(line))
}
