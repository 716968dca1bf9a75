package interval

import (
	"log/slog"
	"math"
	"slices"

	"bleep/internal/logging"
)

// Sanitize returns intervals safe for editing media of the given duration.
// The output is chronological, non-overlapping, and every interval lies within
// [0, duration] with a length in [MinDuration, MaxDuration]. Intervals that
// cannot be repaired are logged and skipped.
func Sanitize(raw []Interval, duration float64, logger *slog.Logger) []Interval {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(raw) == 0 {
		return nil
	}
	if !(duration > MinDuration) || math.IsInf(duration, 0) {
		logging.WarnWithContext(logger, "media duration unusable; skipping all censor intervals", "interval_duration_invalid",
			logging.Float64("duration", duration),
			logging.Int("intervals", len(raw)),
			logging.String(logging.FieldImpact, "no audio will be censored"),
		)
		return nil
	}

	candidates := make([]Interval, 0, len(raw))
	for _, iv := range raw {
		if !finite(iv.Start) || !finite(iv.End) || iv.End <= iv.Start {
			discard(logger, iv, "start must be before end")
			continue
		}
		if iv.End <= 0 {
			discard(logger, iv, "ends before media start")
			continue
		}
		if iv.Start >= duration {
			discard(logger, iv, "starts beyond media duration")
			continue
		}
		candidates = append(candidates, iv)
	}
	slices.SortStableFunc(candidates, func(a, b Interval) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		default:
			return 0
		}
	})

	merged := make([]Interval, 0, len(candidates))
	for _, iv := range candidates {
		if n := len(merged); n > 0 && iv.Start <= merged[n-1].End+MaxMergeGap {
			last := &merged[n-1]
			last.End = max(last.End, iv.End)
			last.Label = AppendLabel(last.Label, iv.Label)
			continue
		}
		merged = append(merged, iv)
	}

	out := make([]Interval, 0, len(merged))
	for _, iv := range merged {
		clamped := clamp(iv, duration)
		if n := len(out); n > 0 && clamped.Start < out[n-1].End {
			clamped.Start = out[n-1].End
		}
		if reason := invalidReason(clamped, duration); reason != "" {
			discard(logger, iv, reason)
			continue
		}
		out = append(out, clamped)
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(iv Interval, duration float64) Interval {
	iv.Start = min(max(iv.Start, 0), duration-MinDuration)
	iv.End = min(max(iv.End, iv.Start+MinDuration), duration)
	if iv.End-iv.Start > MaxDuration {
		iv.End = iv.Start + MaxDuration
	}
	return iv
}

// tolerance absorbs float rounding in start+MinDuration arithmetic.
const tolerance = 1e-9

func invalidReason(iv Interval, duration float64) string {
	switch {
	case iv.End <= iv.Start:
		return "empty after clamping"
	case iv.End > duration+tolerance:
		return "exceeds media duration"
	case iv.Duration() < MinDuration-tolerance:
		return "shorter than minimum duration"
	case iv.Duration() > MaxDuration+tolerance:
		return "longer than maximum duration"
	default:
		return ""
	}
}

func discard(logger *slog.Logger, iv Interval, reason string) {
	logging.WarnWithContext(logger, "censor interval discarded", "interval_discarded",
		logging.Float64("start", iv.Start),
		logging.Float64("end", iv.End),
		logging.String("label", iv.Label),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "this span will not be censored"),
		logging.String(logging.FieldErrorHint, "check transcript timestamps for this word"),
	)
}
