package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"galley/internal/journal"
	"galley/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the project's run journal",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryStatsCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	historyCmd.AddCommand(newHistoryPurgeCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var kindFilters []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(kindFilters)
			if err != nil {
				return err
			}
			return ctx.withJournal(cmd, func(runCtx context.Context, store *journal.Store) error {
				runs, err := store.List(runCtx, limit, kinds...)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						string(run.Kind),
						string(run.Status),
						run.StartedAt.Local().Format("2006-01-02 15:04"),
						formatDuration(time.Duration(run.DurationSeconds * float64(time.Second))),
						runSummary(run),
					})
				}
				writeTable(cmd.OutOrStdout(),
					[]string{"ID", "Kind", "Status", "Started", "Duration", "Detail"},
					rows,
					alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&kindFilters, "kind", "k", nil, "Filter by run kind (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|uuid>",
		Short: "Show one run in full, including artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd, func(runCtx context.Context, store *journal.Store) error {
				run, err := lookupRun(runCtx, store, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s (#%d)\n", run.UUID, run.ID)
				fmt.Fprintf(out, "Kind:     %s\n", run.Kind)
				fmt.Fprintf(out, "Status:   %s\n", run.Status)
				if run.Detail != "" {
					fmt.Fprintf(out, "Detail:   %s\n", run.Detail)
				}
				fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
				if run.Finished() {
					fmt.Fprintf(out, "Finished: %s (%s)\n",
						run.FinishedAt.Local().Format(time.RFC3339),
						formatDuration(time.Duration(run.DurationSeconds*float64(time.Second))))
				}
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
				}
				if len(run.Artifacts) > 0 {
					rows := make([][]string, 0, len(run.Artifacts))
					for _, artifact := range run.Artifacts {
						rows = append(rows, []string{
							artifact.Path,
							formatBytes(artifact.Bytes),
							shortChecksum(artifact.SHA256),
						})
					}
					writeTable(out, []string{"Artifact", "Size", "SHA-256"}, rows, alignLeft, alignRight, alignLeft)
				}
				return nil
			})
		},
	}
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show run counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd, func(runCtx context.Context, store *journal.Store) error {
				health, err := store.Health(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nRunning: %d\nSucceeded: %d\nFailed: %d\n",
					health.Total,
					health.Running,
					health.Succeeded,
					health.Failed,
				)
				return nil
			})
		},
	}
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(cmd, func(runCtx context.Context, store *journal.Store) error {
				removed, err := store.Clear(runCtx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d runs from the journal\n", removed)
				return nil
			})
		},
	}
}

func newHistoryPurgeCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove finished runs older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("invalid retention window: %d days", days)
			}
			return ctx.withJournal(cmd, func(runCtx context.Context, store *journal.Store) error {
				removed, err := store.Purge(runCtx, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d runs older than %d days\n", removed, days)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Remove finished runs older than this many days")
	return cmd
}

func parseKinds(values []string) ([]journal.Kind, error) {
	kinds := make([]journal.Kind, 0, len(values))
	for _, value := range values {
		kind := journal.Kind(strings.ToLower(strings.TrimSpace(value)))
		if !journal.KnownKind(kind) {
			return nil, fmt.Errorf("unknown run kind %q (known kinds: %s)", value, joinKinds())
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func joinKinds() string {
	known := journal.Kinds()
	names := make([]string, 0, len(known))
	for _, kind := range known {
		names = append(names, string(kind))
	}
	return strings.Join(names, ", ")
}

func lookupRun(ctx context.Context, store *journal.Store, key string) (*journal.Run, error) {
	key = strings.TrimSpace(key)
	var run *journal.Run
	var err error
	if id, convErr := strconv.ParseInt(key, 10, 64); convErr == nil {
		run, err = store.GetByID(ctx, id)
	} else {
		run, err = store.GetByUUID(ctx, key)
	}
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, services.Wrap(services.ErrNotFound, "history", "show", fmt.Sprintf("run %q not found", key), nil)
	}
	return run, nil
}

func runSummary(run *journal.Run) string {
	detail := strings.TrimSpace(run.Detail)
	if run.Status == journal.StatusFailed && run.ErrorMessage != "" {
		message := run.ErrorMessage
		if len(message) > 48 {
			message = message[:45] + "..."
		}
		if detail == "" {
			return message
		}
		return detail + ": " + message
	}
	return detail
}
