package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bleep/internal/acquire"
	"bleep/internal/api"
	"bleep/internal/jobs"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		silence bool
		tone    bool
		name    string
		follow  bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file-or-url>",
		Short: "Queue a video for the daemon",
		Long: "Queue a local video or URL. When the daemon is not running the job is written\n" +
			"straight to the job database and picked up on the next daemon start.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if silence && tone {
				return errors.New("--silence and --tone are mutually exclusive")
			}
			source, err := resolveSource(args[0])
			if err != nil {
				return err
			}
			req := api.SubmitRequest{
				Source:     source,
				Tone:       processOptions{silence: silence, tone: tone}.toneOverride(),
				OutputName: name,
			}

			client, clientErr := ctx.apiClient(cmd.Context())
			if clientErr != nil {
				if follow {
					return clientErr
				}
				return submitOffline(cmd, ctx, req, asJSON)
			}

			job, err := client.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON && !follow {
				return writeJSON(cmd, job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s\n", job.ID)
			if !follow {
				return nil
			}
			return followJob(cmd.Context(), cmd, client, job.ID)
		},
	}

	cmd.Flags().BoolVar(&silence, "silence", false, "Replace profanity with silence")
	cmd.Flags().BoolVar(&tone, "tone", false, "Replace profanity with a tone")
	cmd.Flags().StringVar(&name, "name", "", "Output filename")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream progress until the job finishes (requires the daemon)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the queued job as JSON")
	return cmd
}

// resolveSource turns a local argument into an absolute path to an existing
// video file. URLs pass through untouched.
func resolveSource(arg string) (string, error) {
	if acquire.IsRemote(arg) {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("source %s is not a regular file", abs)
	}
	if !acquire.IsVideoFile(abs) {
		return "", fmt.Errorf("source %s is not a supported video file", abs)
	}
	return abs, nil
}

func submitOffline(cmd *cobra.Command, ctx *commandContext, req api.SubmitRequest, asJSON bool) error {
	return ctx.withStore(func(store *jobs.Store) error {
		job, err := store.Enqueue(cmd.Context(), jobs.NewJob{
			Source:     req.Source,
			Tone:       req.Tone,
			OutputName: req.OutputName,
		})
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(cmd, api.FromJob(job))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s (daemon not running; it will start on next launch)\n", job.ID)
		return nil
	})
}

func followJob(ctx context.Context, cmd *cobra.Command, client *api.Client, id string) error {
	renderer := newProgressRenderer(cmd.ErrOrStderr())
	var final api.Event
	err := client.Follow(ctx, id, func(e api.Event) error {
		if e.Terminal() {
			final = e
			return nil
		}
		renderer.render(e.Stage, e.Percent, e.Message)
		return nil
	})
	if err != nil {
		return err
	}
	switch final.Kind {
	case "complete":
		msg := final.Message
		if job, ok := awaitCompleted(ctx, client, id); ok {
			msg = fmt.Sprintf("%s (%d censored)", job.OutputPath, job.CensoredCount)
		}
		renderer.finish(true, msg)
		return nil
	case "error":
		renderer.finish(false, final.Message)
		return fmt.Errorf("job %s failed: %s", id, final.Message)
	default:
		renderer.finish(false, "event stream ended before the job finished")
		return fmt.Errorf("job %s: event stream closed early", id)
	}
}

// awaitCompleted polls briefly for the stored completion, which the daemon
// records just after it publishes the terminal event.
func awaitCompleted(ctx context.Context, client *api.Client, id string) (api.Job, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		job, err := client.Get(ctx, id)
		if err == nil && job.Status == string(jobs.StatusCompleted) {
			return job, true
		}
		select {
		case <-ctx.Done():
			return api.Job{}, false
		case <-ticker.C:
		}
	}
}
