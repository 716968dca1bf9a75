package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bleep/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("expected missing-dir failure, got %+v", result)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("space", dir, 1); !r.Passed || !strings.HasSuffix(r.Detail, "free") {
		t.Fatalf("expected pass with 1 byte minimum, got %+v", r)
	}
	if r := CheckFreeSpace("space", dir, 1<<62); r.Passed {
		t.Fatalf("expected failure with absurd minimum, got %+v", r)
	}
	if r := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func modelsServer(t *testing.T, key string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+key {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"whisper-1","object":"model"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckTranscriptionAPI(t *testing.T) {
	srv := modelsServer(t, "good-key")

	tests := []struct {
		name     string
		key      string
		wantPass bool
		detail   string
	}{
		{name: "ok", key: "good-key", wantPass: true, detail: "API reachable"},
		{name: "bad key", key: "bad-key", detail: "auth failed"},
		{name: "missing key", key: "", detail: "API key missing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := CheckTranscriptionAPI(context.Background(), config.Transcription{APIKey: tc.key, BaseURL: srv.URL + "/v1"})
			if result.Passed != tc.wantPass {
				t.Fatalf("passed=%v, want %v (%s)", result.Passed, tc.wantPass, result.Detail)
			}
			if !strings.Contains(result.Detail, tc.detail) {
				t.Fatalf("detail %q does not mention %q", result.Detail, tc.detail)
			}
		})
	}
}

func TestRunAllSkipsUnconfiguredChecks(t *testing.T) {
	base := t.TempDir()
	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", binDir)

	cfg := config.Default()
	cfg.Transcription.Provider = config.ProviderWhisperX
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.WatchDir = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), &cfg)
	names := make(map[string]Result)
	for _, r := range results {
		names[r.Name] = r
	}
	if _, ok := names["Watch directory"]; ok {
		t.Fatal("watch directory checked although unset")
	}
	if _, ok := names["Transcription API"]; ok {
		t.Fatal("API checked for whisperx provider")
	}
	if r := names["yt-dlp"]; !r.Passed || !strings.Contains(r.Detail, "optional") {
		t.Fatalf("missing yt-dlp should pass as optional, got %+v", r)
	}
	if r := names["uvx"]; r.Passed {
		t.Fatalf("missing uvx should fail for whisperx, got %+v", r)
	}
	if r := names["FFmpeg"]; !r.Passed {
		t.Fatalf("stubbed ffmpeg should pass, got %+v", r)
	}
	failed := Failed(results)
	if len(failed) == 0 {
		t.Fatal("expected at least the uvx failure")
	}
}
