// Package logging assembles the slog loggers used by the CLI, the daemon, and
// the pipeline.
//
// It owns the console and JSON handlers, level parsing, and output routing
// (stdout plus an optional log file). Context helpers tag log lines with job
// IDs, stages, and correlation IDs taken from services context values. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
