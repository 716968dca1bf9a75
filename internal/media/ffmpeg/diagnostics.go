package ffmpeg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bleep/internal/services"
)

// fatalPatterns mark an invocation as failed even when ffmpeg exits 0.
var fatalPatterns = []string{
	"moov atom not found",
	"Invalid data found when processing input",
	"Non-monotonous DTS",
	"Conversion failed!",
	"Error while decoding",
	"Error opening",
	"Invalid argument",
}

var (
	progressClock   = regexp.MustCompile(`time=\s*(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)`)
	progressSeconds = regexp.MustCompile(`time=\s*(\d+(?:\.\d+)?)(?:\s|$)`)
	durationHeader  = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// FatalPattern returns the first ffmpeg fatal pattern present in diagnostics.
func FatalPattern(diagnostics string) (string, bool) {
	return matchPattern(diagnostics, fatalPatterns)
}

func matchPattern(diagnostics string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		if strings.Contains(diagnostics, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// Check classifies a finished ffmpeg invocation. A non-zero exit code or a
// fatal diagnostic pattern yields an error wrapping services.ErrEncoding.
func Check(label string, result Result) error {
	return CheckPatterns(label, result, fatalPatterns)
}

// CheckPatterns is Check with the caller's fatal patterns, for tools whose
// diagnostics do not follow ffmpeg's wording.
func CheckPatterns(label string, result Result, patterns []string) error {
	if result.ExitCode != 0 {
		return services.Wrap(services.ErrEncoding, label, "", fmt.Sprintf("exit code %d: %s", result.ExitCode, Tail(result.Diagnostics, 5)), nil)
	}
	if pattern, ok := matchPattern(result.Diagnostics, patterns); ok {
		return services.Wrap(services.ErrEncoding, label, "", fmt.Sprintf("fatal diagnostic %q: %s", pattern, Tail(result.Diagnostics, 5)), nil)
	}
	return nil
}

// ParseProgress extracts elapsed seconds from an ffmpeg time= marker, accepting
// both HH:MM:SS.ms and plain seconds forms.
func ParseProgress(chunk string) (float64, bool) {
	if m := progressClock.FindStringSubmatch(chunk); m != nil {
		return clockSeconds(m[1], m[2], m[3])
	}
	if m := progressSeconds.FindStringSubmatch(chunk); m != nil {
		seconds, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return seconds, true
	}
	return 0, false
}

// ParseDuration extracts the first "Duration: HH:MM:SS.cc" header.
func ParseDuration(diagnostics string) (float64, bool) {
	m := durationHeader.FindStringSubmatch(diagnostics)
	if m == nil {
		return 0, false
	}
	return clockSeconds(m[1], m[2], m[3])
}

func clockSeconds(h, m, s string) (float64, bool) {
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

// Tail returns the last n non-empty diagnostic lines joined by " | ".
func Tail(diagnostics string, n int) string {
	lines := strings.Split(strings.TrimSpace(diagnostics), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, " | ")
}

// ProgressRange maps elapsed media seconds onto a percent sub-range.
type ProgressRange struct {
	From, To float64
	Total    float64
}

// Percent returns the mapped percent, clamped to [From, To]. Unknown totals
// report From.
func (r ProgressRange) Percent(elapsed float64) float64 {
	if r.Total <= 0 || elapsed <= 0 {
		return r.From
	}
	ratio := elapsed / r.Total
	if ratio > 1 {
		ratio = 1
	}
	return r.From + (r.To-r.From)*ratio
}
