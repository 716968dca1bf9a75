package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bleep/internal/api"
	"bleep/internal/jobs"
	"bleep/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const statusLabelWidth = 22

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	text := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		text += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", text)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + line + ansiReset
		}
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ""
	}
}

type statusReport struct {
	Checks []checkReport     `json:"checks"`
	Daemon *api.DaemonStatus `json:"daemon,omitempty"`
	Jobs   *jobs.Summary     `json:"jobs,omitempty"`
}

type checkReport struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check dependencies, configuration and daemon state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var report statusReport
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				report.Checks = append(report.Checks, checkReport{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
			}

			if client, err := ctx.apiClient(cmd.Context()); err == nil {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				report.Daemon = &status
			} else {
				err := ctx.withStore(func(store *jobs.Store) error {
					summary, err := store.Summarize(cmd.Context())
					if err != nil {
						return err
					}
					report.Jobs = &summary
					return nil
				})
				if err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd, report)
			}
			printStatus(cmd.OutOrStdout(), report, isTerminal(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func printStatus(out io.Writer, report statusReport, colorize bool) {
	fmt.Fprintln(out, "Checks")
	for _, c := range report.Checks {
		kind := statusOK
		if !c.Passed {
			kind = statusError
		} else if strings.HasSuffix(c.Detail, "(optional)") {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(c.Name, kind, c.Detail, colorize))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Daemon")
	if report.Daemon == nil {
		fmt.Fprintln(out, renderStatusLine("Running", statusWarn, "no", colorize))
		if report.Jobs != nil {
			fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo, formatCounts(api.JobCounts(*report.Jobs)), colorize))
		}
		return
	}
	d := report.Daemon
	fmt.Fprintln(out, renderStatusLine("Running", statusOK, fmt.Sprintf("yes (pid %d)", d.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("Workers active", statusInfo, fmt.Sprintf("%d", len(d.Workflow.Active)), colorize))
	fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo, formatCounts(d.Workflow.Counts), colorize))
	if d.WatchDir != "" {
		fmt.Fprintln(out, renderStatusLine("Watch folder", statusInfo, d.WatchDir, colorize))
	}
	if d.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, d.Workflow.LastError, colorize))
	}
}

func formatCounts(c api.JobCounts) string {
	return fmt.Sprintf("%d total, %d queued, %d processing, %d completed, %d failed, %d canceled",
		c.Total, c.Queued, c.Processing, c.Completed, c.Failed, c.Canceled)
}
