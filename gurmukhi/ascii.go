// Package gurmukhi converts between Unicode Gurmukhi and the ASCII keyboard
// encoding (GurbaniAkhar layout) in which lines are stored and queries are typed,
// and provides the normalizations used for matching: vishraam stripping,
// accent stripping and first-letter projection.
package gurmukhi

import (
	"strings"
)

const (
	sihari = 'ਿ'
	nukta  = '਼'
	virama = '੍'

	// ekOnkar has a two character ASCII form.
	ekOnkar      = 'ੴ'
	ekOnkarASCII = "<>"
)

// unicodeToASCII maps single Gurmukhi code points to their ASCII keystrokes.
var unicodeToASCII = map[rune]string{
	// carriers
	'ੳ': "a", 'ਅ': "A", 'ੲ': "e",

	// consonants
	'ਸ': "s", 'ਹ': "h", 'ਕ': "k", 'ਖ': "K", 'ਗ': "g", 'ਘ': "G", 'ਙ': "|",
	'ਚ': "c", 'ਛ': "C", 'ਜ': "j", 'ਝ': "J", 'ਞ': `\`,
	'ਟ': "t", 'ਠ': "T", 'ਡ': "f", 'ਢ': "F", 'ਣ': "x",
	'ਤ': "q", 'ਥ': "Q", 'ਦ': "d", 'ਧ': "D", 'ਨ': "n",
	'ਪ': "p", 'ਫ': "P", 'ਬ': "b", 'ਭ': "B", 'ਮ': "m",
	'ਯ': "X", 'ਰ': "r", 'ਲ': "l", 'ਵ': "v", 'ੜ': "V",

	// consonants with a dot below
	'\u0A36': "S", '\u0A59': "^", '\u0A5A': "Z", '\u0A5B': "z", '\u0A5E': "&", '\u0A33': "L",

	// independent vowels
	'ਆ': "Aw", 'ਇ': "ie", 'ਈ': "eI", 'ਉ': "au", 'ਊ': "aU",
	'ਏ': "ey", 'ਐ': "AY", 'ਓ': "E", 'ਔ': "AO",

	// vowel signs and modifiers
	'ਾ': "w", sihari: "i", 'ੀ': "I", 'ੁ': "u", 'ੂ': "U",
	'ੇ': "y", 'ੈ': "Y", 'ੋ': "o", 'ੌ': "O",
	'ੰ': "M", 'ਂ': "N", 'ੱ': "~", nukta: "æ", virama: "@",

	// punctuation and digits
	ekOnkar: ekOnkarASCII, '॥': "]", '।': "[",
	'੦': "0", '੧': "1", '੨': "2", '੩': "3", '੪': "4",
	'੫': "5", '੬': "6", '੭': "7", '੮': "8", '੯': "9",
}

// nuktaForms maps a base consonant followed by a nukta to the ASCII key of its
// precomposed form. Normalized Unicode text carries these decomposed.
var nuktaForms = map[rune]string{
	'ਸ': "S", 'ਖ': "^", 'ਗ': "Z", 'ਜ': "z", 'ਫ': "&", 'ਲ': "L",
}

// subjoined maps the consonant following a virama to its single ASCII form.
var subjoined = map[rune]string{
	'ਰ': "R",
	'ਹ': "H",
	'ਵ': "Í",
}

var (
	asciiToUnicode   map[rune]string
	asciiToSubjoined map[rune]rune
)

func init() {
	asciiToUnicode = make(map[rune]string, len(unicodeToASCII))
	for u, a := range unicodeToASCII {
		runes := []rune(a)
		if len(runes) != 1 {
			// Multi-keystroke forms decompose into their parts on the way back.
			continue
		}
		asciiToUnicode[runes[0]] = string(u)
	}
	asciiToUnicode['W'] = "ਾਂ"

	asciiToSubjoined = make(map[rune]rune, len(subjoined))
	for u, a := range subjoined {
		asciiToSubjoined[[]rune(a)[0]] = u
	}
}

// IsLetter reports whether r is a Gurmukhi consonant or vowel carrier.
func IsLetter(r rune) bool {
	switch {
	case r >= 'ਕ' && r <= 'ਹ':
		// unassigned code points inside the consonant range
		return r != 0x0A29 && r != 0x0A31 && r != 0x0A34 && r != 0x0A37
	case r >= '\u0A59' && r <= 'ੜ', r == '\u0A5E':
		return true
	case r == 'ਅ', r == 'ੲ', r == 'ੳ':
		return true
	}
	return false
}

// IsIndependentVowel reports whether r is a precomposed independent vowel.
func IsIndependentVowel(r rune) bool {
	return (r >= 'ਆ' && r <= 'ਊ') || r == 'ਏ' || r == 'ਐ' || r == 'ਓ' || r == 'ਔ'
}

// ToASCII converts Unicode Gurmukhi to the ASCII keyboard encoding. Runes that
// have no mapping, including ASCII input, pass through unchanged, so ToASCII is
// idempotent on already-encoded text.
func ToASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	encode(&b, []rune(s))
	return b.String()
}

func encode(b *strings.Builder, rs []rune) {
	for i := 0; i < len(rs); i++ {
		r := rs[i]

		// Sihari is typed before the consonant cluster it follows in Unicode.
		if IsLetter(r) {
			end := clusterEnd(rs, i)
			if end < len(rs) && rs[end] == sihari {
				b.WriteByte('i')
				encode(b, rs[i:end])
				i = end
				continue
			}
		}

		if i+1 < len(rs) && rs[i+1] == nukta {
			if a, ok := nuktaForms[r]; ok {
				b.WriteString(a)
				i++
				continue
			}
		}

		if r == virama && i+1 < len(rs) {
			if a, ok := subjoined[rs[i+1]]; ok {
				b.WriteString(a)
				i++
				continue
			}
		}

		if a, ok := unicodeToASCII[r]; ok {
			b.WriteString(a)
			continue
		}
		b.WriteRune(r)
	}
}

// clusterEnd returns the index just past the consonant cluster starting at i:
// the letter, an optional nukta and any virama-joined consonants.
func clusterEnd(rs []rune, i int) int {
	j := i + 1
	for j < len(rs) {
		switch {
		case rs[j] == nukta:
			j++
		case rs[j] == virama && j+1 < len(rs) && IsLetter(rs[j+1]):
			j += 2
		default:
			return j
		}
	}
	return j
}

// ToUnicode converts ASCII-encoded Gurmukhi to Unicode. Unicode input passes
// through unchanged.
func ToUnicode(s string) string {
	rs := []rune(s)

	var b strings.Builder
	b.Grow(len(s) * 3)

	for i := 0; i < len(rs); i++ {
		r := rs[i]

		if r == '<' && i+1 < len(rs) && rs[i+1] == '>' {
			b.WriteRune(ekOnkar)
			i++
			continue
		}

		if r == 'i' && i+1 < len(rs) && isASCIILetter(rs[i+1]) {
			end := asciiClusterEnd(rs, i+1)
			decode(&b, rs[i+1:end])
			b.WriteRune(sihari)
			i = end - 1
			continue
		}

		decode(&b, rs[i:i+1])
	}

	return b.String()
}

func decode(b *strings.Builder, rs []rune) {
	for _, r := range rs {
		if u, ok := asciiToSubjoined[r]; ok {
			b.WriteRune(virama)
			b.WriteRune(u)
			continue
		}
		if u, ok := asciiToUnicode[r]; ok {
			b.WriteString(u)
			continue
		}
		b.WriteRune(r)
	}
}

func isASCIILetter(r rune) bool {
	u, ok := asciiToUnicode[r]
	if !ok {
		return false
	}
	first := []rune(u)[0]
	return IsLetter(first)
}

func asciiClusterEnd(rs []rune, i int) int {
	j := i + 1
	for j < len(rs) {
		if _, ok := asciiToSubjoined[rs[j]]; ok || rs[j] == 'æ' {
			j++
			continue
		}
		break
	}
	return j
}
