package preflight

import (
	"context"

	"bleep/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the free space below which the work directory check fails.
// Decoded PCM for a feature-length video runs to several hundred megabytes.
const minFreeBytes = 2 << 30

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, minFreeBytes),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Paths.WatchDir != "" {
		results = append(results, CheckDirectoryAccess("Watch directory", cfg.Paths.WatchDir))
	}

	for _, dep := range CheckSystemDeps(ctx, cfg) {
		r := Result{Name: dep.Name, Passed: dep.Available || dep.Optional, Detail: dep.Detail}
		if dep.Available {
			r.Detail = dep.Command
		} else if dep.Optional {
			r.Detail = dep.Detail + " (optional)"
		}
		results = append(results, r)
	}

	if cfg.Transcription.Provider == config.ProviderOpenAI {
		results = append(results, CheckTranscriptionAPI(ctx, cfg.Transcription))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
