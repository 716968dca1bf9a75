package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bleep/internal/api"
	"bleep/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage queued jobs",
	}
	cmd.AddCommand(newJobsListCommand(ctx))
	cmd.AddCommand(newJobsShowCommand(ctx))
	cmd.AddCommand(newJobsCancelCommand(ctx))
	cmd.AddCommand(newJobsRetryCommand(ctx))
	cmd.AddCommand(newJobsRemoveCommand(ctx))
	cmd.AddCommand(newJobsClearCommand(ctx))
	return cmd
}

// jobsFacade runs job operations against the daemon when it answers and
// against the job database otherwise.
type jobsFacade struct {
	client *api.Client
	store  *jobs.Store
}

func withJobs(cmd *cobra.Command, ctx *commandContext, fn func(jobsFacade) error) error {
	if client, err := ctx.apiClient(cmd.Context()); err == nil {
		return fn(jobsFacade{client: client})
	}
	return ctx.withStore(func(store *jobs.Store) error {
		return fn(jobsFacade{store: store})
	})
}

func (f jobsFacade) list(ctx context.Context, statuses []jobs.Status) ([]api.Job, error) {
	if f.client != nil {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		return f.client.List(ctx, names...)
	}
	list, err := f.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return api.FromJobs(list), nil
}

func (f jobsFacade) get(ctx context.Context, id string) (api.Job, error) {
	if f.client != nil {
		return f.client.Get(ctx, id)
	}
	job, err := f.store.Get(ctx, id)
	if err != nil {
		return api.Job{}, err
	}
	return api.FromJob(job), nil
}

func (f jobsFacade) cancel(ctx context.Context, id string) error {
	if f.client != nil {
		return f.client.Cancel(ctx, id)
	}
	ok, err := f.store.CancelQueued(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("job %s is not queued; only the daemon can stop a running job", id)
	}
	return nil
}

func (f jobsFacade) retry(ctx context.Context, id string) error {
	if f.client != nil {
		_, err := f.client.Retry(ctx, id)
		return err
	}
	n, err := f.store.Retry(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s is not failed or canceled", id)
	}
	return nil
}

func (f jobsFacade) remove(ctx context.Context, id string) error {
	if f.client != nil {
		return f.client.Remove(ctx, id)
	}
	if _, err := f.store.Get(ctx, id); err != nil {
		return err
	}
	removed, err := f.store.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("job %s is processing; cancel it before removing", id)
	}
	return nil
}

func (f jobsFacade) clear(ctx context.Context) (int64, error) {
	if f.client != nil {
		return f.client.ClearFinished(ctx)
	}
	return f.store.ClearFinished(ctx)
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFlags []string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]jobs.Status, 0, len(statusFlags))
			for _, value := range statusFlags {
				status, ok := jobs.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				statuses = append(statuses, status)
			}
			return withJobs(cmd, ctx, func(f jobsFacade) error {
				list, err := f.list(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJobTable(list))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (queued, processing, completed, failed, canceled)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}

func renderJobTable(list []api.Job) string {
	rows := make([][]string, 0, len(list))
	for _, job := range list {
		stage := job.Progress.Stage
		if job.Status == string(jobs.StatusFailed) && job.ErrorKind != "" {
			stage = job.ErrorKind
		}
		rows = append(rows, []string{
			shortID(job.ID),
			job.Status,
			stage,
			fmt.Sprintf("%.0f%%", job.Progress.Percent),
			fmt.Sprintf("%d", job.CensoredCount),
			sourceLabel(job.Source),
		})
	}
	return renderTable(
		[]string{"ID", "Status", "Stage", "Progress", "Censored", "Source"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sourceLabel(source string) string {
	if strings.Contains(source, "://") {
		return source
	}
	return filepath.Base(source)
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(cmd, ctx, func(f jobsFacade) error {
				job, err := f.get(cmd.Context(), args[0])
				if err != nil {
					return notFoundMessage(args[0], err)
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				printJob(cmd, job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the job as JSON")
	return cmd
}

func printJob(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(out, "%-10s %s\n", label+":", value)
		}
	}
	line("ID", job.ID)
	line("Status", job.Status)
	line("Source", job.Source)
	line("Progress", fmt.Sprintf("%s %.0f%% %s", job.Progress.Stage, job.Progress.Percent, job.Progress.Message))
	if job.Tone != nil {
		line("Tone", yesNo(*job.Tone))
	}
	line("Output", job.OutputPath)
	if job.Status == string(jobs.StatusCompleted) {
		line("Censored", fmt.Sprintf("%d", job.CensoredCount))
	}
	if job.ErrorMessage != "" {
		line("Error", fmt.Sprintf("%s: %s", job.ErrorKind, job.ErrorMessage))
	}
	line("Created", job.CreatedAt)
	line("Finished", job.FinishedAt)
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(cmd, ctx, func(f jobsFacade) error {
				if err := f.cancel(cmd.Context(), args[0]); err != nil {
					return notFoundMessage(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Canceled job %s\n", args[0])
				return nil
			})
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Requeue a failed or canceled job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(cmd, ctx, func(f jobsFacade) error {
				if err := f.retry(cmd.Context(), args[0]); err != nil {
					return notFoundMessage(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued job %s\n", args[0])
				return nil
			})
		},
	}
}

func newJobsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a job record that is not running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(cmd, ctx, func(f jobsFacade) error {
				if err := f.remove(cmd.Context(), args[0]); err != nil {
					return notFoundMessage(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed job %s\n", args[0])
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed, failed and canceled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJobs(cmd, ctx, func(f jobsFacade) error {
				n, err := f.clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d finished job(s)\n", n)
				return nil
			})
		},
	}
}

func notFoundMessage(id string, err error) error {
	if errors.Is(err, jobs.ErrNotFound) || errors.Is(err, api.ErrNotFound) {
		return fmt.Errorf("job %s not found", id)
	}
	return err
}
