package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"galley/internal/pipeline"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var formats []string
	var restore bool
	var watchMode bool

	cmd := &cobra.Command{
		Use:   "render [document...]",
		Short: "Render the paper with Quarto",
		Long: `Render the paper with Quarto. Without arguments the whole project is
rendered; name documents to restrict the run. Every render is recorded in the
project journal with checksums of the produced artifacts.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.RenderOptions{
				Targets: args,
				Formats: formats,
				Restore: restore,
			}
			if watchMode {
				return runWatchRender(cmd, ctx, opts)
			}
			return ctx.withRunner(cmd, func(runCtx context.Context, runner *pipeline.Runner) error {
				outcome, err := runner.Render(runCtx, opts)
				if err != nil {
					return err
				}
				printRenderOutcome(cmd.OutOrStdout(), outcome)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&formats, "to", nil, "Output format(s) to render (default: config or document header)")
	cmd.Flags().BoolVar(&restore, "restore", false, "Restore the package library before rendering")
	cmd.Flags().BoolVar(&watchMode, "watch", false, "Re-render whenever source files change")
	return cmd
}

func printRenderOutcome(out io.Writer, outcome *pipeline.RenderOutcome) {
	if outcome.Restored {
		fmt.Fprintln(out, "Package library restored")
	}
	fmt.Fprintf(out, "Rendered %s in %s\n", outcome.Run.Detail, formatDuration(outcome.Duration))
	if len(outcome.Artifacts) == 0 {
		return
	}
	rows := make([][]string, 0, len(outcome.Artifacts))
	for _, artifact := range outcome.Artifacts {
		rows = append(rows, []string{
			artifact.Path,
			formatBytes(artifact.Bytes),
			shortChecksum(artifact.SHA256),
		})
	}
	writeTable(out, []string{"Artifact", "Size", "SHA-256"}, rows, alignLeft, alignRight, alignLeft)
}
