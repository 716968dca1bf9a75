package main

import (
	"context"
	"log/slog"

	"bleep/internal/acquire"
	"bleep/internal/config"
	"bleep/internal/media/ffmpeg"
	"bleep/internal/media/ffprobe"
	"bleep/internal/pipeline"
	"bleep/internal/progress"
	"bleep/internal/transcript"
)

// processor is the slice of the pipeline the CLI drives.
type processor interface {
	Process(ctx context.Context, req pipeline.Request, sink progress.Sink) (pipeline.Result, error)
}

func buildProcessor(cfg *config.Config, logger *slog.Logger) (processor, error) {
	runner := ffmpeg.ExecRunner{}
	prober := ffprobe.Prober{Binary: cfg.FFprobeBinary()}
	transcriber, err := transcript.New(cfg, runner, prober, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.OptionsFromConfig(cfg), runner, prober, transcriber, logger), nil
}

func buildAcquirer(cfg *config.Config, logger *slog.Logger) acquire.Acquirer {
	return acquire.Router{
		Local: acquire.LocalFile{},
		Remote: &acquire.Remote{
			Runner: ffmpeg.ExecRunner{},
			Binary: cfg.YTDLPBinary(),
			Logger: logger,
		},
	}
}
