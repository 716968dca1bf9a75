// Package language normalizes the transcription language setting to the
// ISO 639-1 codes Whisper accepts.
package language
