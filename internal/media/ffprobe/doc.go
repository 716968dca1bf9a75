// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect (or a Prober bound to a binary name) runs ffprobe and returns a
// Result. Helper methods expose stream counts, the first video/audio stream,
// durations, sample rates, and frame rates parsed from ffprobe's rational
// strings.
package ffprobe
