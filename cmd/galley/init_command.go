package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"galley/internal/config"
	"galley/internal/services/rlang"
	"galley/internal/workspace"
)

func newInitCommand() *cobra.Command {
	var title string
	var author string
	var formats []string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Scaffold a new reproducible-paper project",
		Long: `Init writes the starting files for a Quarto+R paper: the project manifest,
a paper skeleton, renv bootstrap files, a spell-check word list, CI and
container scaffolding, and a pinned R version marker when the runtime can
be probed. Existing files are kept unless --force is given.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			defaults := config.Default()
			rVersion := probeRVersion(cmd.Context(), defaults.Packages.Binary)

			result, err := workspace.Scaffold(workspace.ScaffoldOptions{
				Dir:      dir,
				Title:    title,
				Author:   author,
				Formats:  formats,
				RVersion: rVersion,
				Mirror:   defaults.Packages.Mirror,
				Force:    force,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created galley project %q at %s\n", result.Title, result.Root)
			for _, name := range result.Created {
				fmt.Fprintf(out, "  + %s\n", name)
			}
			for _, name := range result.Skipped {
				fmt.Fprintf(out, "  = %s (kept)\n", name)
			}
			if rVersion == "" {
				fmt.Fprintln(out, "R runtime not detected; version marker skipped")
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  galley restore   # build the R package library")
			fmt.Fprintln(out, "  galley render    # render the paper")
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Paper title (defaults to the directory name)")
	cmd.Flags().StringVar(&author, "author", "", "Author for the paper front matter")
	cmd.Flags().StringSliceVar(&formats, "formats", nil, "Output formats for the scaffolded paper")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite files that already exist")
	return cmd
}

// probeRVersion best-effort detects the local R version for the marker file.
// Scaffolding works without R installed, so failures just return empty.
func probeRVersion(ctx context.Context, binary string) string {
	client, err := rlang.New(binary)
	if err != nil {
		return ""
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	version, err := client.Version(probeCtx)
	if err != nil {
		return ""
	}
	return version.MajorMinor()
}
