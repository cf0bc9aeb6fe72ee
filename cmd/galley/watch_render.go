package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"galley/internal/journal"
	"galley/internal/pipeline"
	"galley/internal/watch"
)

// runWatchRender renders once, then keeps re-rendering whenever the watcher
// reports a settled batch of source changes. Render failures are reported and
// the loop keeps going; only cancellation (Ctrl+C) ends it.
func runWatchRender(cmd *cobra.Command, cmdCtx *commandContext, opts pipeline.RenderOptions) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := cmdCtx.workflowLogger()
	if err != nil {
		return err
	}
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	reconcileJournal(signalCtx, store, logger)

	runner, err := pipeline.NewRunner(cfg, store, logger)
	if err != nil {
		return err
	}
	watcher, err := watch.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", cfg.ProjectRoot)

	renderOnce := func() {
		outcome, err := runner.Render(signalCtx, opts)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			fmt.Fprintf(out, "Render failed: %v\n", err)
		default:
			printRenderOutcome(out, outcome)
		}
	}
	renderOnce()

	for {
		select {
		case <-signalCtx.Done():
			fmt.Fprintln(out, "Watch stopped")
			return nil
		case batch, ok := <-watcher.Changes():
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "%d changed file(s); re-rendering\n", len(batch))
			renderOnce()
		}
	}
}
