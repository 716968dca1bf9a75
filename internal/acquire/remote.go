package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bleep/internal/fallback"
	"bleep/internal/logging"
	"bleep/internal/media/ffmpeg"
	"bleep/internal/services"
)

// ErrUnavailable reports a remote video that cannot be fetched by any format.
var ErrUnavailable = errors.New("video is private or unavailable")

var unavailableMarkers = []string{
	"Private video",
	"Video unavailable",
	"This video is not available",
	"members-only",
	"Sign in to confirm your age",
}

// ytdlpFatalPatterns mark a yt-dlp run as failed even when it exits 0.
var ytdlpFatalPatterns = []string{"ERROR:"}

// Remote downloads videos with yt-dlp.
type Remote struct {
	Runner ffmpeg.Runner
	// Binary is the yt-dlp executable; default "yt-dlp".
	Binary string
	Logger *slog.Logger
}

// Acquire downloads source into workDir, trying an MP4-native format first
// and then the best available streams merged into MP4.
func (r *Remote) Acquire(ctx context.Context, source, workDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Canceled(stageAcquisition, err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "remote", "ensure work dir", err)
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(r.Logger, "acquire"))

	path, err := fallback.Chain(ctx,
		r.strategy(source, workDir, "mp4", "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]"),
		r.strategy(source, workDir, "best", "bestvideo+bestaudio/best"),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", services.Canceled(stageAcquisition, ctx.Err())
		}
		if errors.Is(err, ErrUnavailable) {
			return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "remote",
				"video is private or unavailable; use a public video or a local file", err)
		}
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "remote", "download failed", err)
	}
	logger.Info("remote video downloaded",
		logging.String("source", source),
		logging.String("path", path),
		logging.String(logging.FieldEventType, "remote_downloaded"),
	)
	return path, nil
}

func (r *Remote) strategy(source, workDir, name, format string) fallback.Strategy[string] {
	return fallback.Strategy[string]{Name: name, Run: func(ctx context.Context) (string, error) {
		var stdout bytes.Buffer
		result, err := r.Runner.Run(ctx, ffmpeg.Invocation{
			Binary: r.binary(),
			Args: []string{
				"--no-playlist", "--no-warnings", "--no-progress",
				"-f", format,
				"--merge-output-format", "mp4",
				"-o", filepath.Join(workDir, "source.%(ext)s"),
				"--no-simulate", "--print", "after_move:filepath",
				source,
			},
			Stdout:        &stdout,
			Label:         "yt-dlp " + name,
			FatalPatterns: ytdlpFatalPatterns,
		})
		if err != nil {
			if unavailable(result.Diagnostics) {
				return "", fallback.Abort(fmt.Errorf("%w: %w", ErrUnavailable, err))
			}
			return "", err
		}
		path := lastLine(stdout.String())
		if path == "" {
			return "", errors.New("yt-dlp reported no output file")
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if info.Size() == 0 {
			return "", fmt.Errorf("downloaded file %s is empty", path)
		}
		return path, nil
	}}
}

func (r *Remote) binary() string {
	if b := strings.TrimSpace(r.Binary); b != "" {
		return b
	}
	return "yt-dlp"
}

func unavailable(diagnostics string) bool {
	for _, marker := range unavailableMarkers {
		if strings.Contains(diagnostics, marker) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
