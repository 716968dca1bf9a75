package transcript

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Token is one transcribed word with its timing in seconds.
type Token struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (t Token) String() string {
	return fmt.Sprintf("%q@%.2f-%.2f", t.Text, t.Start, t.End)
}

// Clean drops tokens with empty text or unusable timings and returns the
// remainder in chronological order. Tokens whose end precedes their start are
// given a zero-length span at their start.
func Clean(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		tok.Text = strings.TrimSpace(tok.Text)
		if tok.Text == "" {
			continue
		}
		if math.IsNaN(tok.Start) || math.IsNaN(tok.End) || tok.Start < 0 {
			continue
		}
		if tok.End < tok.Start {
			tok.End = tok.Start
		}
		out = append(out, tok)
	}
	slices.SortStableFunc(out, func(a, b Token) int { return cmp.Compare(a.Start, b.Start) })
	return out
}
