package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bleep/internal/daemon"
	"bleep/internal/jobs"
	"bleep/internal/logging"
	"bleep/internal/progress"
	"bleep/internal/workflow"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the job queue, watch folder and HTTP API in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runDaemonProcess(signalCtx, cmd, ctx)
		},
	}
}

func runDaemonProcess(signalCtx context.Context, cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}

	proc, err := ctx.newProcessor(cfg, logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	mgr := workflow.NewManager(workflow.OptionsFromConfig(cfg), store, proc, buildAcquirer(cfg, logger), progress.NewHub(), logger)
	d, err := daemon.New(cfg, store, mgr, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if addr := d.APIAddress(); addr != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "bleep daemon listening on http://%s\n", addr)
	}
	logger.Info("bleep daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("api", d.APIAddress()),
		logging.String("watch_dir", cfg.Paths.WatchDir),
	)

	<-signalCtx.Done()
	logger.Info("bleep daemon stopping", logging.String(logging.FieldEventType, "daemon_stopping"))
	d.Stop()
	return nil
}
