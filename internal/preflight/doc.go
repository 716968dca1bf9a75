// Package preflight provides readiness checks for the directories, binaries
// and transcription backend bleep depends on.
//
// The daemon runs RunAll at startup and logs failures without refusing to
// start; the CLI "bleep status" command prints the same results. Checks for
// features that are not configured are skipped.
package preflight
