package interval

import (
	"fmt"
	"math"
	"strings"
)

const (
	// MinDuration is the shortest span the editor will censor.
	MinDuration = 0.08
	// MaxDuration caps any single censored span.
	MaxDuration = 5.0
	// MaxMergeGap joins intervals whose gap is at most this many seconds.
	MaxMergeGap = 0.5
)

// Interval is a [Start, End) span in seconds marked for censoring.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"label"`
}

// Duration returns End-Start.
func (iv Interval) Duration() float64 {
	return iv.End - iv.Start
}

// Valid reports whether the interval has finite bounds with 0 <= Start < End.
func (iv Interval) Valid() bool {
	if math.IsNaN(iv.Start) || math.IsNaN(iv.End) || math.IsInf(iv.Start, 0) || math.IsInf(iv.End, 0) {
		return false
	}
	return iv.Start >= 0 && iv.Start < iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%.3f, %.3f] %q", iv.Start, iv.End, iv.Label)
}

// Overlaps reports whether a and b share any time strictly inside both spans.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// AppendLabel joins next onto label with a single space unless label already
// contains it.
func AppendLabel(label, next string) string {
	next = strings.TrimSpace(next)
	switch {
	case next == "":
		return label
	case label == "":
		return next
	case strings.Contains(label, next):
		return label
	default:
		return label + " " + next
	}
}
