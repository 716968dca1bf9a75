// Package pipeline runs one censoring job from input video to validated
// output.
//
// A job moves through fixed stages: verify the input, extract mono PCM
// audio, transcribe it, detect profanity, censor the audio, mux it back with
// the original video, remux for streaming, and validate the result. Each
// stage reports progress through a progress.SafeSink, and the first failure
// aborts the job. Every intermediate artifact lives in a per-job work
// directory that is removed when the job ends; the final file is kept only on
// success.
package pipeline
