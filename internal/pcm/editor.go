package pcm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"bleep/internal/fileutil"
	"bleep/internal/interval"
	"bleep/internal/logging"
	"bleep/internal/media/ffmpeg"
	"bleep/internal/media/ffprobe"
	"bleep/internal/services"
)

// Prober inspects media files.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Editor censors an audio file through ffmpeg.
type Editor struct {
	Runner       ffmpeg.Runner
	Prober       Prober
	FFmpegBinary string
	// Bitrate is the AAC bitrate used when re-encoding; default 192k.
	Bitrate string
	Logger  *slog.Logger
}

// Report summarizes a Censor call.
type Report struct {
	// OutputPath is the written file. On the copy path it keeps the source
	// extension so the container matches its contents.
	OutputPath     string
	Applied        int
	Copied         bool
	DecodedSeconds float64
	Intervals      []interval.Interval
}

const stageEditing = "editing"

// Censor writes dst as src with raw intervals censored. Intervals are
// sanitized against the decoded duration first. When none remain, src is
// copied unchanged next to dst; Report.OutputPath names the result.
func (e *Editor) Censor(ctx context.Context, src, dst string, raw []interval.Interval, opts EditOptions) (Report, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.Logger, "pcm"))
	if len(raw) == 0 {
		return e.copyThrough(src, dst, 0, logger)
	}

	var pcm bytes.Buffer
	result, err := e.Runner.Run(ctx, ffmpeg.Invocation{
		Binary: e.binary(),
		Args: []string{
			"-hide_banner", "-nostdin",
			"-i", src,
			"-vn", "-map", "0:a:0",
			"-f", "s16le", "-acodec", "pcm_s16le",
			"-ac", "1", "-ar", fmt.Sprint(SampleRate),
			"pipe:1",
		},
		Stdout: &pcm,
		Label:  "decode audio",
	})
	if err != nil {
		return Report{}, wrapStage(err, "decode audio")
	}
	decoded := pcm.Bytes()
	duration, ok := ffmpeg.ParseDuration(result.Diagnostics)
	if !ok || duration <= 0 {
		duration = DurationOf(decoded)
	}

	clean := interval.Sanitize(raw, duration, logger)
	if len(clean) == 0 {
		logger.Info("no censorable intervals after sanitization; copying audio",
			logging.Int("raw_intervals", len(raw)),
			logging.String(logging.FieldEventType, "audio_copy"),
		)
		return e.copyThrough(src, dst, duration, logger)
	}

	edited := Apply(decoded, clean, opts)
	if _, err := e.Runner.Run(ctx, ffmpeg.Invocation{
		Binary: e.binary(),
		Args: []string{
			"-hide_banner", "-y",
			"-f", "s16le", "-ar", fmt.Sprint(SampleRate), "-ac", "1",
			"-i", "pipe:0",
			"-c:a", "aac", "-b:a", e.bitrate(),
			"-movflags", "+faststart",
			dst,
		},
		Stdin: bytes.NewReader(edited),
		Label: "encode audio",
	}); err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return Report{}, wrapStage(err, "encode audio")
	}

	if err := e.validate(ctx, dst); err != nil {
		_ = fileutil.RemoveIfExists(dst)
		return Report{}, err
	}

	logger.Info("audio censored",
		logging.Int("intervals", len(clean)),
		logging.Float64("duration_seconds", duration),
		logging.Bool("tone", opts.Tone),
		logging.String(logging.FieldEventType, "audio_censored"),
	)
	return Report{OutputPath: dst, Applied: len(clean), DecodedSeconds: duration, Intervals: clean}, nil
}

func (e *Editor) copyThrough(src, dst string, duration float64, logger *slog.Logger) (Report, error) {
	dst = copyTarget(src, dst)
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return Report{}, services.Wrap(services.ErrEncoding, stageEditing, "copy audio", "", err)
	}
	logger.Debug("audio copied unchanged", logging.String("dst", dst))
	return Report{OutputPath: dst, Copied: true, DecodedSeconds: duration}, nil
}

func copyTarget(src, dst string) string {
	srcExt := filepath.Ext(src)
	dstExt := filepath.Ext(dst)
	if srcExt == "" || strings.EqualFold(srcExt, dstExt) {
		return dst
	}
	return strings.TrimSuffix(dst, dstExt) + srcExt
}

func (e *Editor) validate(ctx context.Context, path string) error {
	probe, err := e.Prober.Probe(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageEditing, "probe censored audio", "", err)
	}
	audio, ok := probe.FirstAudio()
	if !ok {
		return services.Wrap(services.ErrValidation, stageEditing, "probe censored audio", "no audio stream", nil)
	}
	var problems []string
	if !audio.IsCodec("aac") {
		problems = append(problems, fmt.Sprintf("codec %q", audio.CodecName))
	}
	if audio.SampleRateHz() != SampleRate {
		problems = append(problems, fmt.Sprintf("sample rate %q", audio.SampleRate))
	}
	if audio.Channels != 1 {
		problems = append(problems, fmt.Sprintf("%d channels", audio.Channels))
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, stageEditing, "probe censored audio",
			"unexpected "+strings.Join(problems, ", "), nil)
	}

	if _, err := e.Runner.Run(ctx, ffmpeg.Invocation{
		Binary: e.binary(),
		Args:   []string{"-hide_banner", "-nostdin", "-v", "error", "-i", path, "-f", "null", "-"},
		Label:  "verify censored audio",
	}); err != nil {
		return services.Wrap(services.ErrValidation, stageEditing, "decode censored audio", "", err)
	}
	return nil
}

func wrapStage(err error, op string) error {
	if services.Kind(err) == services.KindCanceled {
		return err
	}
	return services.Wrap(services.ErrEncoding, stageEditing, op, "", err)
}

func (e *Editor) binary() string {
	if b := strings.TrimSpace(e.FFmpegBinary); b != "" {
		return b
	}
	return "ffmpeg"
}

func (e *Editor) bitrate() string {
	if b := strings.TrimSpace(e.Bitrate); b != "" {
		return b
	}
	return "192k"
}
