// Package interval defines censor intervals and the sanitizer that makes raw
// detector output safe for sample-level editing.
//
// Sanitize merges near-adjacent intervals, clamps each one to the media bounds
// and to the [MinDuration, MaxDuration] range, and drops (with a warning)
// anything that remains invalid. Sanitization never splits an interval.
package interval
