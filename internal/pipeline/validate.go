package pipeline

import (
	"fmt"

	"bleep/internal/fileutil"
	"bleep/internal/logging"
	"bleep/internal/media/ffmpeg"
	"bleep/internal/media/ffprobe"
	"bleep/internal/services"
)

var mp4Signature = []byte("ftyp")

// validateOutput confirms the remuxed file is a playable MP4 before it is
// published.
func (r *jobRun) validateOutput() (ffprobe.Result, error) {
	ctx := r.stageCtx()
	path := r.job.FinalPath

	probe, err := r.p.prober.Probe(ctx, path)
	if err != nil {
		return ffprobe.Result{}, r.corrupt("probe output", "", err)
	}
	if probe.VideoStreamCount() == 0 || probe.AudioStreamCount() == 0 {
		return ffprobe.Result{}, r.corrupt("probe output",
			fmt.Sprintf("expected video and audio, found %d video and %d audio streams",
				probe.VideoStreamCount(), probe.AudioStreamCount()), nil)
	}

	checks := []struct {
		label string
		args  []string
	}{
		{"validate decode", []string{"-hide_banner", "-nostdin", "-v", "error", "-i", path, "-map", "0:v:0", "-map", "0:a:0", "-f", "null", "-"}},
		{"validate first frame", []string{"-hide_banner", "-nostdin", "-v", "error", "-i", path, "-frames:v", "1", "-f", "null", "-"}},
	}
	for _, check := range checks {
		if _, err := r.p.runner.Run(ctx, ffmpeg.Invocation{
			Binary: r.p.opts.FFmpegBinary,
			Args:   check.args,
			Label:  check.label,
		}); err != nil {
			return ffprobe.Result{}, r.corrupt(check.label, "", err)
		}
	}

	ok, err := fileutil.HasSignature(path, 4, mp4Signature)
	if err != nil {
		return ffprobe.Result{}, r.corrupt("check container", "", err)
	}
	if !ok {
		return ffprobe.Result{}, r.corrupt("check container", "missing ftyp box", nil)
	}

	size, err := fileutil.WaitStable(ctx, path, r.p.opts.Stability)
	if err != nil {
		return ffprobe.Result{}, r.corrupt("wait for stable size", "", err)
	}
	if size < r.p.opts.MinOutputBytes {
		return ffprobe.Result{}, r.corrupt("check size",
			fmt.Sprintf("output is %d bytes, below minimum %d", size, r.p.opts.MinOutputBytes), nil)
	}

	r.logger.Info("output validated",
		logging.Int64("size_bytes", size),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
		logging.String(logging.FieldEventType, "output_validated"),
	)
	return probe, nil
}

func (r *jobRun) corrupt(op, msg string, err error) error {
	if err != nil && services.Kind(err) == services.KindCanceled {
		return r.fail(services.ErrCorruptOutput, op, err)
	}
	return services.Wrap(services.ErrCorruptOutput, r.stage.Name, op, msg, err)
}
