package gurmukhi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToASCII(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"sihari moves before consonant", "ਸਤਿ ਨਾਮੁ", "siq nwmu"},
		{"ek onkar", "ੴ", "<>"},
		{"subjoined rara", "ਪ੍ਰਭ", "pRB"},
		{"sihari before conjunct", "ਪ੍ਰਿਅ", "ipRA"},
		{"decomposed nukta", "ਸ\u0A3Cਬਦ", "Sbd"},
		{"precomposed nukta", "\u0A36ਬਦ", "Sbd"},
		{"independent vowel", "ਓਹ", "Eh"},
		{"digits and dandas", "॥੧॥", "]1]"},
		{"ascii passes through", "ijin syivAw", "ijin syivAw"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToASCII(tt.input))
		})
	}
}

func TestToUnicode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"sihari after consonant", "siq nwmu", "ਸਤਿ ਨਾਮੁ"},
		{"ek onkar", "<> siq", "ੴ ਸਤਿ"},
		{"subjoined", "pRB", "ਪ੍ਰਭ"},
		{"unicode passes through", "ਜਿਨਿ", "ਜਿਨਿ"},
		{"trailing sihari is left alone", "i", "ਿ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToUnicode(tt.input))
		})
	}
}

func TestASCIIRoundTrip(t *testing.T) {
	lines := []string{
		"ijin syivAw iqin pwieAw mwnu",
		"<> siqnwmu krqw purKu inrBau inrvYru",
		"pRBu imlY ]1]",
	}

	for _, line := range lines {
		assert.Equal(t, line, ToASCII(ToUnicode(line)), line)
	}
}

func TestStripVishraams(t *testing.T) {
	assert.Equal(t, "siq nwmu krqw", StripVishraams("siq; nwmu, krqw."))
	assert.Equal(t, "a  b", StripVishraams("a ; b"), "spaces are kept")
	assert.Equal(t, "", StripVishraams(""))
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "ਸਬਦ", StripAccents("ਸ\u0A3Cਬਦ"))
	assert.Equal(t, "ਸਬਦ", StripAccents("\u0A36ਬਦ"))
	assert.Equal(t, "ੳਹ ਅਪ ੲਕ", StripAccents("ਓਹ ਆਪ ਇਕ"))
}

func TestStripAccentsASCII(t *testing.T) {
	assert.Equal(t, "sbd", StripAccentsASCII("Sbd"))
	assert.Equal(t, "a", StripAccentsASCII("E"))
	assert.Equal(t, "Kj", StripAccentsASCII("^z"))
	assert.Equal(t, "j_s", StripAccentsASCII("j_s"))
}

func TestFirstLetters(t *testing.T) {
	assert.Equal(t, "ਜਸ", FirstLetters("ਜਿਨਿ ਸੇਵਿਆ"))
	assert.Equal(t, "॥", FirstLetters("॥੧॥"))
	assert.Equal(t, "ੳ ਬ", FirstLetters("ੳ  ਬ"), "empty words keep their slot")
}

func TestLetters(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"ascii line", "ijin syivAw iqin pwieAw mwnu", "jsqpm"},
		{"unicode line", "ਜਿਨਿ ਸੇਵਿਆ", "js"},
		{"vishraams removed", "ijin syivAw; iqin pwieAw. mwnu", "jsqpm"},
		{"accents stripped", "Sbd ^sm", "sK"},
		{"non-letter words keep a slot", "<> siq nwmu ]1]", "<sn]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Letters(tt.line)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLettersOneRunePerWord(t *testing.T) {
	line := "so purKu inrMjnu hir purKu inrMjnu hir Agmw Agm Apwrw ]"
	words := len([]rune(Letters(line)))
	assert.Equal(t, 11, words)
}

func TestPlain(t *testing.T) {
	assert.Equal(t, "siq nwmu", Plain("ਸਤਿ; ਨਾਮੁ"))
	assert.Equal(t, "siq nwmu", Plain("siq; nwmu"))
}
