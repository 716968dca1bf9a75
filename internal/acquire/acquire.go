// Package acquire turns a job source (a local path or a remote URL) into a
// local video file the pipeline can read.
package acquire

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"bleep/internal/services"
)

const stageAcquisition = "acquisition"

// Acquirer produces a local video path for source.
type Acquirer interface {
	Acquire(ctx context.Context, source, workDir string) (string, error)
}

// VideoExtensions lists the container extensions accepted for local input.
var VideoExtensions = []string{".mp4", ".mov", ".mkv", ".webm", ".avi", ".m4v"}

// IsVideoFile reports whether path has an accepted video extension.
func IsVideoFile(path string) bool {
	return slices.Contains(VideoExtensions, strings.ToLower(filepath.Ext(path)))
}

// IsRemote reports whether source is an http(s) URL.
func IsRemote(source string) bool {
	u, err := url.Parse(strings.TrimSpace(source))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// LocalFile accepts existing regular video files in place.
type LocalFile struct{}

// Acquire validates source and returns its absolute path.
func (LocalFile) Acquire(ctx context.Context, source, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Canceled(stageAcquisition, err)
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "local file", "empty path", nil)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "local file", "resolve path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "local file", "", err)
	}
	if !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "local file", fmt.Sprintf("%s is not a regular file", abs), nil)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "local file", fmt.Sprintf("%s is empty", abs), nil)
	}
	if !IsVideoFile(abs) {
		return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "local file",
			fmt.Sprintf("unsupported extension %q (accepted: %s)", filepath.Ext(abs), strings.Join(VideoExtensions, ", ")), nil)
	}
	return abs, nil
}

// Router dispatches URLs to Remote and everything else to Local.
type Router struct {
	Local  Acquirer
	Remote Acquirer
}

// Acquire resolves source with the matching acquirer.
func (r Router) Acquire(ctx context.Context, source, workDir string) (string, error) {
	if IsRemote(source) {
		if r.Remote == nil {
			return "", services.Wrap(services.ErrAcquisition, stageAcquisition, "remote", "remote sources are not enabled", nil)
		}
		return r.Remote.Acquire(ctx, source, workDir)
	}
	local := r.Local
	if local == nil {
		local = LocalFile{}
	}
	return local.Acquire(ctx, source, workDir)
}
