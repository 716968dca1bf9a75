package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"bleep/internal/acquire"
	"bleep/internal/config"
	"bleep/internal/logging"
	"bleep/internal/pipeline"
	"bleep/internal/services"
)

type processOptions struct {
	silence   bool
	tone      bool
	outputDir string
	name      string
	json      bool
	verbose   bool
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process <file-or-url>",
		Short: "Censor one video in the foreground",
		Long: "Transcribe the audio of a local video file or URL, replace profanity with a tone\n" +
			"or silence, and write a web-streamable MP4 to the output directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.silence && opts.tone {
				return errors.New("--silence and --tone are mutually exclusive")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runProcess(runCtx, cmd, ctx, cfg, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.silence, "silence", false, "Replace profanity with silence")
	cmd.Flags().BoolVar(&opts.tone, "tone", false, "Replace profanity with a tone")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for the censored video (default: paths.output_dir)")
	cmd.Flags().StringVar(&opts.name, "name", "", "Output filename (default: <input>_censored.mp4)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Also write logs to stderr")
	return cmd
}

func (o processOptions) toneOverride() *bool {
	switch {
	case o.tone:
		v := true
		return &v
	case o.silence:
		v := false
		return &v
	default:
		return nil
	}
}

func runProcess(runCtx context.Context, cmd *cobra.Command, ctx *commandContext, cfg *config.Config, source string, opts processOptions) error {
	outputs := []string{cfg.LogFilePath()}
	if opts.verbose {
		outputs = append(outputs, "stderr")
	}
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	proc, err := ctx.newProcessor(cfg, logger)
	if err != nil {
		return err
	}

	outputDir := opts.outputDir
	if outputDir == "" {
		outputDir = cfg.Paths.OutputDir
	}
	if outputDir, err = config.ExpandPath(outputDir); err != nil {
		return err
	}

	jobID := uuid.NewString()
	runCtx = services.WithJobID(runCtx, jobID)
	renderer := newProgressRenderer(cmd.ErrOrStderr())

	input := source
	if acquire.IsRemote(source) {
		input, err = acquireRemote(runCtx, cfg, logger, renderer, source, jobID)
		if err != nil {
			renderer.finish(false, err.Error())
			return err
		}
	}

	start := time.Now()
	result, err := proc.Process(runCtx, pipeline.Request{
		JobID:      jobID,
		InputPath:  input,
		OutputDir:  outputDir,
		OutputName: opts.name,
		Tone:       opts.toneOverride(),
	}, renderer.sink())
	if err != nil {
		detail := services.Details(err)
		renderer.finish(false, detail.Message)
		if detail.Kind == services.KindCanceled {
			return context.Canceled
		}
		return err
	}

	renderer.finish(true, fmt.Sprintf("%s (%d censored, %s)", result.OutputPath, result.CensoredCount, time.Since(start).Round(time.Second)))
	if opts.json {
		return writeJSON(cmd, result)
	}
	return nil
}

// acquireRemote downloads source into the job's work directory, which the
// pipeline removes when it finishes.
func acquireRemote(ctx context.Context, cfg *config.Config, logger *slog.Logger, renderer *progressRenderer, source, jobID string) (string, error) {
	workDir := filepath.Join(cfg.Paths.WorkDir, pipeline.JobDirPrefix+jobID)
	renderer.render("acquiring", 0, "Downloading "+source)
	path, err := buildAcquirer(cfg, logger).Acquire(services.WithStage(ctx, "acquiring"), source, workDir)
	if err != nil {
		_ = os.RemoveAll(workDir)
		return "", err
	}
	return path, nil
}
