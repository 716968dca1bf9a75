package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bleep/internal/config"
	"bleep/internal/fileutil"
	"bleep/internal/interval"
	"bleep/internal/logging"
	"bleep/internal/media/ffmpeg"
	"bleep/internal/media/ffprobe"
	"bleep/internal/pcm"
	"bleep/internal/profanity"
	"bleep/internal/progress"
	"bleep/internal/services"
	"bleep/internal/transcript"
)

// Prober inspects media files.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
}

// Options tunes a Processor.
type Options struct {
	WorkDir         string
	FFmpegBinary    string
	AudioBitrate    string
	Tone            bool
	ToneFrequencyHz float64
	MinOutputBytes  int64
	// DriftSeconds is the input/censored audio duration gap that is logged.
	DriftSeconds float64
	Stability    fileutil.StabilityOptions
}

// OptionsFromConfig maps configuration onto processor options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		WorkDir:         cfg.Paths.WorkDir,
		FFmpegBinary:    cfg.FFmpegBinary(),
		AudioBitrate:    cfg.Censor.AudioBitrate,
		Tone:            cfg.Censor.ToneEnabled,
		ToneFrequencyHz: cfg.Censor.ToneFrequencyHz,
		MinOutputBytes:  cfg.Validation.MinOutputBytes,
		DriftSeconds:    cfg.Validation.DurationDriftSeconds,
		Stability: fileutil.StabilityOptions{
			Interval: cfg.StabilityInterval(),
			Timeout:  cfg.StabilityTimeout(),
		},
	}
}

// DefaultMinOutputBytes rejects implausibly small outputs.
const DefaultMinOutputBytes = 100 * 1024

// Request describes one job.
type Request struct {
	// JobID is generated when empty.
	JobID     string
	InputPath string
	OutputDir string
	// OutputName overrides the derived output filename.
	OutputName string
	// Tone overrides the configured tone/silence choice.
	Tone *bool
}

// Result describes a finished job.
type Result struct {
	JobID          string              `json:"job_id"`
	OutputFilename string              `json:"output_filename"`
	OutputPath     string              `json:"output_path"`
	CensoredCount  int                 `json:"censored_count"`
	Intervals      []interval.Interval `json:"intervals,omitempty"`
	Duration       float64             `json:"duration_seconds"`
	AudioCopied    bool                `json:"audio_copied"`
}

// Processor runs censoring jobs. It holds no per-job state, so one value can
// serve concurrent jobs.
type Processor struct {
	opts        Options
	runner      ffmpeg.Runner
	prober      Prober
	transcriber transcript.Transcriber
	editor      *pcm.Editor
	logger      *slog.Logger
}

// New builds a Processor.
func New(opts Options, runner ffmpeg.Runner, prober Prober, transcriber transcript.Transcriber, logger *slog.Logger) *Processor {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.AudioBitrate == "" {
		opts.AudioBitrate = "192k"
	}
	if opts.MinOutputBytes <= 0 {
		opts.MinOutputBytes = DefaultMinOutputBytes
	}
	if opts.DriftSeconds <= 0 {
		opts.DriftSeconds = 2
	}
	logger = logging.NewComponentLogger(logger, "pipeline")
	return &Processor{
		opts:        opts,
		runner:      runner,
		prober:      prober,
		transcriber: transcriber,
		editor: &pcm.Editor{
			Runner:       runner,
			Prober:       prober,
			FFmpegBinary: opts.FFmpegBinary,
			Bitrate:      opts.AudioBitrate,
			Logger:       logger,
		},
		logger: logger,
	}
}

// ProcessVideo censors inputPath into outputDir using the configured
// defaults.
func (p *Processor) ProcessVideo(ctx context.Context, inputPath, outputDir string, sink progress.Sink) (Result, error) {
	return p.Process(ctx, Request{InputPath: inputPath, OutputDir: outputDir}, sink)
}

// Process runs every stage for req. Exactly one terminal event reaches sink.
func (p *Processor) Process(ctx context.Context, req Request, sink progress.Sink) (result Result, err error) {
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	ctx = services.WithJobID(ctx, req.JobID)
	logger := logging.WithContext(ctx, p.logger)
	events := progress.NewSafeSink(req.JobID, sink, p.logger)
	started := time.Now()

	run := &jobRun{p: p, ctx: ctx, events: events, logger: logger, stage: StageReceived}
	if err := run.enter(StageReceived); err != nil {
		events.Fail(StageReceived.Name, err)
		return Result{}, err
	}

	job, err := newJob(p.opts.WorkDir, req.JobID, req.InputPath, req.OutputDir, req.OutputName)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, StageReceived.Name, "prepare job", "", err)
		events.Fail(StageReceived.Name, err)
		return Result{}, err
	}
	run.job = job

	defer func() {
		job.cleanup(logger)
		if err != nil {
			logging.ErrorWithContext(logger, "job failed", "job_failed",
				logging.String(logging.FieldStage, run.stage.Name),
				logging.String("error_kind", services.Kind(err)),
				logging.Error(err),
			)
			events.Fail(run.stage.Name, err)
			return
		}
		logger.Info("job complete",
			logging.String("output", result.OutputPath),
			logging.Int("censored", result.CensoredCount),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "job_complete"),
		)
		events.Complete(result.OutputPath, StageComplete.Message)
	}()

	tone := p.opts.Tone
	if req.Tone != nil {
		tone = *req.Tone
	}
	logger.Info("job started",
		logging.String("input", req.InputPath),
		logging.String("output", job.OutputPath),
		logging.Bool("tone", tone),
		logging.String(logging.FieldEventType, "job_start"),
	)

	if err := run.enter(StageVerifying); err != nil {
		return Result{}, err
	}
	input, err := run.verifyInput()
	if err != nil {
		return Result{}, err
	}

	if err := run.enter(StageExtracting); err != nil {
		return Result{}, err
	}
	if err := run.extractAudio(); err != nil {
		return Result{}, err
	}

	if err := run.enter(StageTranscribing); err != nil {
		return Result{}, err
	}
	tokens, err := run.transcribe()
	if err != nil {
		return Result{}, err
	}

	if err := run.enter(StageDetecting); err != nil {
		return Result{}, err
	}
	raw, err := detect(tokens)
	if err != nil {
		return Result{}, err
	}
	logger.Info("profanity detected",
		logging.Int("tokens", len(tokens)),
		logging.Int("raw_intervals", len(raw)),
		logging.String(logging.FieldEventType, "detection_complete"),
	)

	if err := run.enter(StageEditing); err != nil {
		return Result{}, err
	}
	report, err := p.editor.Censor(run.stageCtx(), job.AudioPath, job.track(job.CensoredAudioPath), raw, pcm.EditOptions{
		Tone:        tone,
		FrequencyHz: p.opts.ToneFrequencyHz,
	})
	if err != nil {
		return Result{}, err
	}
	if report.OutputPath != job.CensoredAudioPath {
		job.CensoredAudioPath = job.track(report.OutputPath)
	}
	audio, err := run.checkCensoredAudio(input)
	if err != nil {
		return Result{}, err
	}

	if err := run.enter(StageCombining); err != nil {
		return Result{}, err
	}
	if err := run.combine(input, audio); err != nil {
		return Result{}, err
	}

	if err := run.enter(StageRemuxing); err != nil {
		return Result{}, err
	}
	if err := run.remux(); err != nil {
		return Result{}, err
	}

	if err := run.enter(StageValidating); err != nil {
		return Result{}, err
	}
	final, err := run.validateOutput()
	if err != nil {
		return Result{}, err
	}
	if err := job.publish(); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, run.stage.Name, "publish output", "", err)
	}

	return Result{
		JobID:          job.ID,
		OutputFilename: filepath.Base(job.OutputPath),
		OutputPath:     job.OutputPath,
		CensoredCount:  report.Applied,
		Intervals:      report.Intervals,
		Duration:       final.DurationSeconds(),
		AudioCopied:    report.Copied,
	}, nil
}

// jobRun carries per-job state through the stage helpers.
type jobRun struct {
	p      *Processor
	ctx    context.Context
	job    *Job
	events *progress.SafeSink
	logger *slog.Logger
	stage  Stage
}

// enter checks for cancellation and reports the start of s.
func (r *jobRun) enter(s Stage) error {
	if err := r.ctx.Err(); err != nil {
		return services.Canceled(r.stage.Name, err)
	}
	r.stage = s
	r.events.Progress(s.Name, s.Percent, s.Message)
	r.logger.Debug("stage started",
		logging.String(logging.FieldStage, s.Name),
		logging.Float64("percent", s.Percent),
		logging.String(logging.FieldEventType, "stage_start"),
	)
	return nil
}

func (r *jobRun) stageCtx() context.Context {
	return services.WithStage(r.ctx, r.stage.Name)
}

// fail tags err with marker unless it already carries it. Cancellation is
// always reported as such.
func (r *jobRun) fail(marker error, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case services.Kind(err) == services.KindCanceled:
		if errors.Is(err, services.ErrCanceled) {
			return err
		}
		return services.Canceled(r.stage.Name, err)
	case errors.Is(err, marker):
		return err
	}
	return services.Wrap(marker, r.stage.Name, op, "", err)
}

func (r *jobRun) verifyInput() (ffprobe.Result, error) {
	probe, err := r.p.prober.Probe(r.stageCtx(), r.job.InputPath)
	if err != nil {
		return ffprobe.Result{}, r.fail(services.ErrAcquisition, "probe input", err)
	}
	if probe.VideoStreamCount() == 0 {
		return ffprobe.Result{}, services.Wrap(services.ErrAcquisition, r.stage.Name, "probe input", "input has no video stream", nil)
	}
	if probe.AudioStreamCount() == 0 {
		return ffprobe.Result{}, services.Wrap(services.ErrAcquisition, r.stage.Name, "probe input", "input has no audio stream", nil)
	}
	video, _ := probe.FirstVideo()
	r.logger.Info("input verified",
		logging.String("video_codec", video.CodecName),
		logging.Int("width", video.Width),
		logging.Int("height", video.Height),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
		logging.String(logging.FieldEventType, "input_verified"),
	)
	return probe, nil
}

func (r *jobRun) extractAudio() error {
	_, err := r.p.runner.Run(r.stageCtx(), ffmpeg.Invocation{
		Binary: r.p.opts.FFmpegBinary,
		Args:   extractArgs(r.job.InputPath, r.job.track(r.job.AudioPath)),
		Label:  "extract audio",
	})
	return r.fail(services.ErrEncoding, "extract audio", err)
}

func (r *jobRun) transcribe() ([]transcript.Token, error) {
	if r.p.transcriber == nil {
		return nil, services.Wrap(services.ErrConfiguration, r.stage.Name, "transcribe", "no transcriber configured", nil)
	}
	tokens, err := r.p.transcriber.Transcribe(r.stageCtx(), r.job.AudioPath)
	if err != nil && !errors.Is(err, transcript.ErrNoSpeech) {
		return nil, r.fail(services.ErrTranscription, "transcribe", err)
	}
	tokens = transcript.Clean(tokens)
	if len(tokens) == 0 {
		// Nothing to censor; the editor copies the audio through.
		logging.WarnWithContext(r.logger, "transcript is empty", "transcript_empty",
			logging.String(logging.FieldImpact, "audio is kept unchanged"),
			logging.String(logging.FieldErrorHint, "check that the video has audible speech"),
		)
	}
	return tokens, nil
}

// detect runs the detector, converting a panic into a detection error.
func detect(tokens []transcript.Token) (out []interval.Interval, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = services.Wrap(services.ErrDetection, StageDetecting.Name, "detect", fmt.Sprintf("detector panic: %v", rec), nil)
		}
	}()
	return profanity.Detect(tokens), nil
}

// checkCensoredAudio probes the edited track and warns when its duration
// drifts from the input.
func (r *jobRun) checkCensoredAudio(input ffprobe.Result) (ffprobe.Result, error) {
	probe, err := r.p.prober.Probe(r.stageCtx(), r.job.CensoredAudioPath)
	if err != nil {
		return ffprobe.Result{}, r.fail(services.ErrValidation, "probe censored audio", err)
	}
	if probe.AudioStreamCount() == 0 {
		return ffprobe.Result{}, services.Wrap(services.ErrValidation, r.stage.Name, "probe censored audio", "no audio stream", nil)
	}
	inDur, outDur := input.DurationSeconds(), probe.DurationSeconds()
	if inDur > 0 && outDur > 0 && math.Abs(inDur-outDur) > r.p.opts.DriftSeconds {
		logging.WarnWithContext(r.logger, "censored audio duration drifts from input", "audio_drift",
			logging.Float64("input_seconds", inDur),
			logging.Float64("audio_seconds", outDur),
			logging.String(logging.FieldErrorHint, "output is trimmed to the shorter stream"),
			logging.String(logging.FieldImpact, "audio may end before the video"),
		)
	}
	return probe, nil
}

func (r *jobRun) combine(input, audio ffprobe.Result) error {
	video, _ := input.FirstVideo()
	audioStream, _ := audio.FirstAudio()
	videoDuration := video.DurationSeconds()
	if videoDuration <= 0 {
		videoDuration = input.DurationSeconds()
	}
	plan := combinePlan{
		Video:         video,
		VideoDuration: videoDuration,
		AudioDuration: audio.DurationSeconds(),
		CopyAudio:     audioStream.IsCodec("aac"),
		AudioBitrate:  r.p.opts.AudioBitrate,
	}
	total := plan.duration()
	if total <= 0 {
		total = max(plan.VideoDuration, plan.AudioDuration)
	}
	span := ffmpeg.ProgressRange{From: StageCombining.Percent, To: combineProgressEnd, Total: total}
	sampler := logging.NewProgressSampler(25)

	r.logger.Info("combining audio and video",
		logging.Bool("copy_video", plan.copyVideo()),
		logging.Bool("copy_audio", plan.CopyAudio),
		logging.String(logging.FieldEventType, "combine_start"),
	)
	_, err := r.p.runner.Run(r.stageCtx(), ffmpeg.Invocation{
		Binary: r.p.opts.FFmpegBinary,
		Args:   plan.args(r.job.InputPath, r.job.CensoredAudioPath, r.job.track(r.job.CombinedPath)),
		Progress: func(elapsed float64) {
			pct := span.Percent(elapsed)
			r.events.Progress(StageCombining.Name, pct, StageCombining.Message)
			if sampler.ShouldLog(pct, StageCombining.Name) {
				r.logger.Debug("combine progress", logging.Float64("percent", pct))
			}
		},
		Label: "combine",
	})
	return r.fail(services.ErrEncoding, "combine", err)
}

func (r *jobRun) remux() error {
	probe, err := r.p.prober.Probe(r.stageCtx(), r.job.CombinedPath)
	if err != nil {
		return r.fail(services.ErrEncoding, "probe combined", err)
	}
	h264 := false
	if video, ok := probe.FirstVideo(); ok {
		h264 = video.IsCodec("h264")
	}
	_, err = r.p.runner.Run(r.stageCtx(), ffmpeg.Invocation{
		Binary: r.p.opts.FFmpegBinary,
		Args:   remuxArgs(r.job.CombinedPath, r.job.track(r.job.FinalPath), h264),
		Label:  "remux",
	})
	return r.fail(services.ErrEncoding, "remux", err)
}
