package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bleep/internal/config"
)

// ConfigOption adjusts a test config after its directories are laid out
// under base.
type ConfigOption func(t testing.TB, cfg *config.Config, base string)

// NewConfig returns a valid config whose work, output and log directories
// live under a fresh t.TempDir. Validation polling is shortened so tests
// waiting on file stability stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()
	base := t.TempDir()

	cfg := config.Default()
	cfg.Transcription.APIKey = "sk-test"
	cfg.Paths.APIBind = "127.0.0.1:0"
	for dir, field := range map[string]*string{
		"work":   &cfg.Paths.WorkDir,
		"output": &cfg.Paths.OutputDir,
		"logs":   &cfg.Paths.LogDir,
	} {
		*field = filepath.Join(base, dir)
	}
	cfg.Validation.StabilityIntervalMillis = 5
	cfg.Validation.StabilityTimeoutSeconds = 1

	for _, opt := range opts {
		opt(t, &cfg, base)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithWatchDir turns on the watch folder at <base>/watch.
func WithWatchDir() ConfigOption {
	return func(_ testing.TB, cfg *config.Config, base string) {
		cfg.Paths.WatchDir = filepath.Join(base, "watch")
	}
}

// WithStubbedBinaries puts no-op executables named after names (ffmpeg and
// ffprobe by default) first on PATH so dependency checks pass.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, _ *config.Config, base string) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		bin := filepath.Join(base, "bin")
		if err := os.MkdirAll(bin, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", bin, err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(bin, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				t.Fatalf("stub %s: %v", name, err)
			}
		}
		t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir recovers the temp root NewConfig created for cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
