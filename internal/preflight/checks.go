package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/sys/unix"

	"bleep/internal/config"
	"bleep/internal/deps"
	"bleep/internal/transcript"
)

// CheckTranscriptionAPI verifies the Whisper-compatible endpoint answers and
// accepts the configured key. It lists models with a single attempt and a
// 30-second timeout.
func CheckTranscriptionAPI(ctx context.Context, cfg config.Transcription) Result {
	const name = "Transcription API"
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	client := openai.NewClientWithConfig(clientCfg)

	if _, err := client.ListModels(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

func pathFailure(name, path, problem string) Result {
	return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, problem)}
}

// CheckDirectoryAccess passes when path is a directory the current user can
// list, read and write.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return pathFailure(name, path, "does not exist")
	case err != nil:
		return pathFailure(name, path, "stat: "+err.Error())
	case !info.IsDir():
		return pathFailure(name, path, "is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return pathFailure(name, path, "insufficient permissions: "+err.Error())
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// CheckFreeSpace fails when the filesystem holding path has less than
// minBytes available to unprivileged users.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return pathFailure(name, path, "statfs: "+err.Error())
	}
	free := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%s free", humanize.IBytes(free))
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need at least %s)", detail, humanize.IBytes(minBytes))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSystemDeps evaluates the external binaries for the given config. Both
// the daemon status endpoint and the CLI use this list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio extraction, censoring and muxing",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
		{
			Name:        "yt-dlp",
			Command:     cfg.YTDLPBinary(),
			Description: "Required for URL sources",
			Optional:    true,
			VersionArgs: []string{"--version"},
		},
	}
	if cfg.Transcription.Provider == config.ProviderWhisperX {
		requirements = append(requirements, deps.Requirement{
			Name:        "uvx",
			Command:     transcript.UVXCommand,
			Description: "Required for WhisperX transcription",
		})
	}
	return deps.CheckBinaries(ctx, requirements)
}

func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth failed (check transcription.api_key)"
		}
		return fmt.Sprintf("API error (%d): %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("API error (%d)", reqErr.HTTPStatusCode)
	}
	return err.Error()
}
