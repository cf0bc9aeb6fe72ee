package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"galley/internal/pipeline"
	"galley/internal/services/renv"
)

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the R package library from " + renv.LockfileName,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(runCtx context.Context, runner *pipeline.Runner) error {
				outcome, err := runner.Restore(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Package library restored in %s\n", formatDuration(outcome.Duration))
				if outcome.Status != nil && outcome.Status.Summary != "" {
					fmt.Fprintf(out, "Status: %s\n", outcome.Status.Summary)
				}
				return nil
			})
		},
	}
}

func newSnapshotCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Record the current package library into " + renv.LockfileName,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(runCtx context.Context, runner *pipeline.Runner) error {
				outcome, err := runner.Snapshot(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Lockfile updated (%s) in %s\n", renv.LockfileName, formatDuration(outcome.Duration))
				return nil
			})
		},
	}
}
