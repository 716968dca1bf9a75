package main

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"bleep/internal/pipeline"
	"bleep/internal/progress"
	"bleep/internal/services"
)

func TestProcessCommandWritesResult(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeVideo(t, env, "clip.mp4")

	var got pipeline.Request
	inner := writeOutputProcessor(3)
	env.processor = processorFunc(func(ctx context.Context, req pipeline.Request, sink progress.Sink) (pipeline.Result, error) {
		got = req
		return inner(ctx, req, sink)
	})

	outDir := filepath.Join(env.baseDir, "custom-out")
	stdout, stderr, err := runCLI(t, env, "process", input, "--silence", "--json", "--output-dir", outDir, "--name", "clean")
	if err != nil {
		t.Fatalf("process: %v (stderr %s)", err, stderr)
	}

	if got.InputPath != input || got.OutputDir != outDir || got.OutputName != "clean" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Tone == nil || *got.Tone {
		t.Fatalf("expected silence override, got %v", got.Tone)
	}
	if got.JobID == "" {
		t.Fatal("expected generated job id")
	}

	var result pipeline.Result
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("decode result %q: %v", stdout, err)
	}
	if result.CensoredCount != 3 || result.OutputPath != filepath.Join(outDir, "clean") {
		t.Fatalf("unexpected result: %+v", result)
	}
	requireContains(t, stderr, "[transcribing")
	requireContains(t, stderr, "done: ")
}

func TestProcessCommandDefaultsToConfiguredOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeVideo(t, env, "clip.mp4")

	var got pipeline.Request
	env.processor = processorFunc(func(ctx context.Context, req pipeline.Request, sink progress.Sink) (pipeline.Result, error) {
		got = req
		return pipeline.Result{JobID: req.JobID}, nil
	})
	if _, _, err := runCLI(t, env, "process", input); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got.OutputDir != env.cfg.Paths.OutputDir {
		t.Fatalf("expected configured output dir, got %q", got.OutputDir)
	}
	if got.Tone != nil {
		t.Fatalf("expected no tone override, got %v", *got.Tone)
	}
}

func TestProcessCommandReportsFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeVideo(t, env, "clip.mp4")
	env.processor = processorFunc(func(context.Context, pipeline.Request, progress.Sink) (pipeline.Result, error) {
		return pipeline.Result{}, services.Wrap(services.ErrTranscription, "transcribing", "whisper", "rate limited", nil)
	})

	_, stderr, err := runCLI(t, env, "process", input)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	requireContains(t, stderr, "failed: ")
	requireContains(t, stderr, "rate limited")
}

func TestProcessCommandRejectsConflictingFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "process", "x.mp4", "--tone", "--silence")
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("expected flag conflict, got %v", err)
	}
}
