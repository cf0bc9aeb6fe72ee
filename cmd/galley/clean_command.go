package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"galley/internal/workspace"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove render outputs and intermediate caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := workspace.Clean(cfg, all)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 {
				fmt.Fprintln(out, "Nothing to clean")
				return nil
			}
			for _, path := range result.Removed {
				fmt.Fprintf(out, "  - %s\n", path)
			}
			fmt.Fprintf(out, "Freed %s (%d files)\n", formatBytes(result.BytesFreed), result.FilesFreed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Also remove the package library cache and run journal")
	return cmd
}
