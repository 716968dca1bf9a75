package acquire_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bleep/internal/acquire"
	"bleep/internal/logging"
	"bleep/internal/media/ffmpeg"
	"bleep/internal/services"
	"bleep/internal/testsupport"
)

func TestLocalFileAcquire(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.MP4")
	testsupport.WriteFile(t, video, 1024)
	empty := filepath.Join(dir, "empty.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "notes.txt")
	testsupport.WriteFile(t, text, 10)

	tests := []struct {
		name    string
		source  string
		wantErr string
	}{
		{name: "video", source: video},
		{name: "missing", source: filepath.Join(dir, "missing.mp4"), wantErr: "no such file"},
		{name: "directory", source: dir, wantErr: "not a regular file"},
		{name: "empty", source: empty, wantErr: "is empty"},
		{name: "extension", source: text, wantErr: "unsupported extension"},
		{name: "blank", source: "  ", wantErr: "empty path"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := acquire.LocalFile{}.Acquire(context.Background(), tc.source, dir)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Acquire: %v", err)
				}
				if got != video {
					t.Fatalf("got %q want %q", got, video)
				}
				return
			}
			if !errors.Is(err, services.ErrAcquisition) {
				t.Fatalf("expected acquisition error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected %q in %v", tc.wantErr, err)
			}
		})
	}
}

func TestIsRemote(t *testing.T) {
	cases := map[string]bool{
		"https://www.youtube.com/watch?v=abc": true,
		"http://example.com/video.mp4":        true,
		"/tmp/video.mp4":                      false,
		"ftp://example.com/video.mp4":         false,
		"https://":                            false,
		"":                                    false,
	}
	for source, want := range cases {
		if got := acquire.IsRemote(source); got != want {
			t.Errorf("IsRemote(%q) = %v want %v", source, got, want)
		}
	}
}

func formatArg(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-f" {
			return args[i+1]
		}
	}
	return ""
}

func TestRemoteFallsBackToBestFormat(t *testing.T) {
	workDir := t.TempDir()
	var formats []string
	runner := testsupport.RunnerFunc(func(_ context.Context, inv ffmpeg.Invocation) (ffmpeg.Result, error) {
		formats = append(formats, formatArg(inv.Args))
		if len(formats) == 1 {
			result := ffmpeg.Result{ExitCode: 1, Diagnostics: "ERROR: Requested format is not available"}
			return result, inv.Check(result)
		}
		path := filepath.Join(workDir, "source.mp4")
		testsupport.WriteMP4(t, path, 2048)
		_, _ = fmt.Fprintf(inv.Stdout, "%s\n", path)
		return ffmpeg.Result{}, nil
	})

	remote := &acquire.Remote{Runner: runner, Logger: logging.NewNop()}
	got, err := remote.Acquire(context.Background(), "https://youtu.be/abc", workDir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got != filepath.Join(workDir, "source.mp4") {
		t.Fatalf("unexpected path %q", got)
	}
	if len(formats) != 2 || !strings.Contains(formats[0], "ext=mp4") || formats[1] != "bestvideo+bestaudio/best" {
		t.Fatalf("unexpected format attempts: %v", formats)
	}
}

func TestRemotePrivateVideoStopsImmediately(t *testing.T) {
	calls := 0
	runner := testsupport.RunnerFunc(func(_ context.Context, inv ffmpeg.Invocation) (ffmpeg.Result, error) {
		calls++
		result := ffmpeg.Result{ExitCode: 1, Diagnostics: "ERROR: [youtube] abc: Private video. Sign in if you've been granted access"}
		return result, inv.Check(result)
	})
	remote := &acquire.Remote{Runner: runner}
	_, err := remote.Acquire(context.Background(), "https://youtu.be/abc", t.TempDir())
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if !errors.Is(err, services.ErrAcquisition) || !errors.Is(err, acquire.ErrUnavailable) {
		t.Fatalf("expected unavailable acquisition error, got %v", err)
	}
	if services.Kind(err) != services.KindAcquisition {
		t.Fatalf("expected acquisition kind, got %q", services.Kind(err))
	}
}

func TestRemoteUsesYtDlpDiagnostics(t *testing.T) {
	workDir := t.TempDir()
	runner := testsupport.RunnerFunc(func(_ context.Context, inv ffmpeg.Invocation) (ffmpeg.Result, error) {
		result := ffmpeg.Result{Diagnostics: "[Merger] ffmpeg said: Invalid argument while probing a side stream"}
		if err := inv.Check(result); err != nil {
			return result, err
		}
		path := filepath.Join(workDir, "source.mp4")
		testsupport.WriteMP4(t, path, 2048)
		_, _ = fmt.Fprintf(inv.Stdout, "%s\n", path)
		return result, nil
	})
	remote := &acquire.Remote{Runner: runner, Logger: logging.NewNop()}
	if _, err := remote.Acquire(context.Background(), "https://youtu.be/abc", workDir); err != nil {
		t.Fatalf("ffmpeg wording in yt-dlp output should not fail the download: %v", err)
	}

	failing := testsupport.RunnerFunc(func(_ context.Context, inv ffmpeg.Invocation) (ffmpeg.Result, error) {
		result := ffmpeg.Result{Diagnostics: "ERROR: unable to download video data: HTTP Error 403"}
		return result, inv.Check(result)
	})
	remote = &acquire.Remote{Runner: failing}
	if _, err := remote.Acquire(context.Background(), "https://youtu.be/abc", t.TempDir()); !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected yt-dlp ERROR line to fail acquisition, got %v", err)
	}
}

func TestRouterDispatch(t *testing.T) {
	var remoteCalled bool
	router := acquire.Router{
		Remote: acquireFunc(func(context.Context, string, string) (string, error) {
			remoteCalled = true
			return "/tmp/remote.mp4", nil
		}),
	}
	if _, err := router.Acquire(context.Background(), "https://example.com/v", t.TempDir()); err != nil {
		t.Fatalf("remote: %v", err)
	}
	if !remoteCalled {
		t.Fatal("expected remote acquirer to be used")
	}

	video := filepath.Join(t.TempDir(), "clip.mov")
	testsupport.WriteFile(t, video, 64)
	got, err := router.Acquire(context.Background(), video, t.TempDir())
	if err != nil || got != video {
		t.Fatalf("local: got %q err %v", got, err)
	}

	if _, err := (acquire.Router{}).Acquire(context.Background(), "https://example.com/v", ""); !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected disabled remote error, got %v", err)
	}
}

type acquireFunc func(ctx context.Context, source, workDir string) (string, error)

func (f acquireFunc) Acquire(ctx context.Context, source, workDir string) (string, error) {
	return f(ctx, source, workDir)
}
