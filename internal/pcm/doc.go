// Package pcm edits mono 16-bit little-endian PCM audio.
//
// Apply overwrites interval byte ranges of a decoded buffer with a sine tone
// or silence without changing its length. Editor wraps the full audio path:
// decode through ffmpeg, sanitize intervals against the decoded duration,
// apply edits, re-encode to AAC, and validate the result. When nothing needs
// censoring the source file is copied byte for byte instead.
package pcm
