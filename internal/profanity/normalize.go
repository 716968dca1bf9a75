package profanity

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var leetspeak = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"@", "a",
	"$", "s",
	"!", "i",
	"*", "",
)

// Normalize maps a raw transcript word onto the form used for matching:
// surrounding punctuation is trimmed, diacritics are removed, case is folded, leetspeak is decoded, separators
// (hyphen, underscore, slash) become spaces, and all other punctuation is
// dropped. Leetspeak runs before punctuation stripping so "sh!t" and "a$$"
// decode instead of losing their symbols.
func Normalize(word string) string {
	folded := strings.TrimFunc(stripMarks(word), isEdgePunct)
	folded = cases.Fold().String(folded)
	folded = leetspeak.Replace(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/' || r == '–' || r == '—':
			pendingSpace = true
		}
	}
	return b.String()
}

// isEdgePunct reports punctuation that is trimmed from the ends of a word
// before leetspeak decoding. Symbols that decode to letters are kept.
func isEdgePunct(r rune) bool {
	switch r {
	case '$', '@', '*':
		return false
	}
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// phraseKey lowercases a raw token and trims surrounding punctuation for
// phrase-window comparison.
func phraseKey(raw string) string {
	trimmed := strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
	return cases.Fold().String(trimmed)
}
