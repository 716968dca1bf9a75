package profanity

import (
	"regexp"
	"slices"
	"strings"

	"bleep/internal/interval"
	"bleep/internal/transcript"
)

// OverlapTolerance is how far two detected intervals must overlap before they
// are merged. Adjacent words stay separate so each can be censored on its own.
const OverlapTolerance = 0.1

// MinWordLength is the shortest normalized word that can match.
const MinWordLength = 3

var (
	profaneSet   map[string]struct{}
	allowSet     map[string]struct{}
	phraseSet    map[string]struct{}
	boundedAny   *regexp.Regexp
	elongated    []*regexp.Regexp
	maxPhraseLen int
)

func init() {
	profaneSet = toSet(profaneWords, Normalize)
	allowSet = toSet(allowedWords, Normalize)
	phraseSet = toSet(phrases, func(s string) string { return s })

	alternatives := make([]string, 0, len(profaneSet))
	for word := range profaneSet {
		if len(word) >= MinWordLength {
			alternatives = append(alternatives, regexp.QuoteMeta(word))
		}
	}
	// Longest first so the alternation prefers whole compounds.
	slices.SortFunc(alternatives, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	boundedAny = regexp.MustCompile(`\b(?:` + strings.Join(alternatives, "|") + `)\b`)

	for _, pattern := range elongations {
		elongated = append(elongated, regexp.MustCompile(pattern))
	}
	for phrase := range phraseSet {
		maxPhraseLen = max(maxPhraseLen, len(strings.Fields(phrase)))
	}
}

func toSet(values []string, mapFn func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if key := mapFn(v); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}

// IsProfane reports whether a single raw word is profane.
func IsProfane(word string) bool {
	normalized := Normalize(word)
	if len(normalized) < MinWordLength {
		return false
	}
	if _, ok := allowSet[normalized]; ok {
		return false
	}
	if _, ok := profaneSet[normalized]; ok {
		return true
	}
	if boundedAny.MatchString(normalized) {
		return true
	}
	for _, part := range strings.Fields(normalized) {
		for _, pattern := range elongated {
			if pattern.MatchString(part) {
				return true
			}
		}
	}
	return false
}

// IsPhrase reports whether the space-joined words form a known phrase.
func IsPhrase(words ...string) bool {
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = phraseKey(w)
	}
	_, ok := phraseSet[strings.Join(keys, " ")]
	return ok
}

// Detect returns raw censor intervals for every profane word and known phrase
// in tokens, in chronological order. Tokens with empty text are ignored and
// every token is consumed by at most one match. At each position the phrase
// windows ending there are tried longest first, then the word itself.
func Detect(tokens []transcript.Token) []interval.Interval {
	words := make([]transcript.Token, 0, len(tokens))
	for _, tok := range tokens {
		if strings.TrimSpace(tok.Text) != "" {
			words = append(words, tok)
		}
	}
	if len(words) == 0 {
		return nil
	}

	consumed := make([]bool, len(words))
	found := make([]interval.Interval, 0)

	for i := range words {
		if consumed[i] {
			continue
		}
		if iv, ok := matchPhraseEndingAt(words, consumed, i); ok {
			found = append(found, iv)
			continue
		}
		if IsProfane(words[i].Text) {
			consumed[i] = true
			found = append(found, interval.Interval{
				Start: words[i].Start,
				End:   words[i].End,
				Label: strings.TrimSpace(words[i].Text),
			})
		}
	}
	return mergeOverlapping(found)
}

func matchPhraseEndingAt(words []transcript.Token, consumed []bool, end int) (interval.Interval, bool) {
	for size := min(maxPhraseLen, end+1); size >= 2; size-- {
		start := end - size + 1
		if slices.Contains(consumed[start:end+1], true) {
			continue
		}
		raw := make([]string, 0, size)
		for _, w := range words[start : end+1] {
			raw = append(raw, w.Text)
		}
		if !IsPhrase(raw...) {
			continue
		}
		for j := start; j <= end; j++ {
			consumed[j] = true
		}
		labels := make([]string, len(raw))
		for j, r := range raw {
			labels[j] = strings.TrimSpace(r)
		}
		return interval.Interval{
			Start: words[start].Start,
			End:   words[end].End,
			Label: strings.Join(labels, " "),
		}, true
	}
	return interval.Interval{}, false
}

func mergeOverlapping(found []interval.Interval) []interval.Interval {
	if len(found) == 0 {
		return nil
	}
	slices.SortStableFunc(found, func(a, b interval.Interval) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	merged := make([]interval.Interval, 0, len(found))
	for _, cur := range found {
		n := len(merged)
		if n > 0 && slices.Contains(merged, cur) {
			continue
		}
		if n > 0 && cur.Start < merged[n-1].End-OverlapTolerance {
			last := &merged[n-1]
			last.End = max(last.End, cur.End)
			last.Label = interval.AppendLabel(last.Label, cur.Label)
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
