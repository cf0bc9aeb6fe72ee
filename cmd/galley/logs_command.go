package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"galley/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lineCount int
		follow    bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent run log",
		Long: `Print the trailing lines of the newest run log in the configured log
directory. With --follow, keep streaming lines appended by a concurrent
render or restore until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, found, err := logs.Newest(cfg.Paths.LogDir, logFilePattern)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintln(out, "No log files found")
				return nil
			}
			fmt.Fprintf(out, "==> %s\n", path)
			lines, offset, err := logs.Tail(path, lineCount)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			if err := logs.Follow(signalCtx, path, offset, out); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lineCount, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream appended lines until interrupted")
	return cmd
}
