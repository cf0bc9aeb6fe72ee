package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"galley/internal/pipeline"
)

func newSpellCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "spell [file...]",
		Short: "Spell check the paper sources with aspell",
		Long: `Spell check the paper sources. Without arguments every document matching
the configured extensions is checked. Words listed in the project word list
are accepted. Findings exit non-zero so CI can gate on them.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRunner(cmd, func(runCtx context.Context, runner *pipeline.Runner) error {
				outcome, err := runner.Spell(runCtx, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if outcome.Report.Clean() {
					fmt.Fprintf(out, "Spelling clean (%d files checked)\n", len(outcome.Files))
					return nil
				}

				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(outcome.Report.Findings))
				for _, finding := range outcome.Report.Findings {
					rows = append(rows, []string{
						projectRelative(cfg.ProjectRoot, finding.File),
						strings.Join(finding.Words, ", "),
					})
				}
				writeTable(out, []string{"File", "Unknown Words"}, rows)
				fmt.Fprintf(out, "Add accepted words to %s\n", cfg.Spelling.WordList)
				return fmt.Errorf("spelling: %s", outcome.Run.ErrorMessage)
			})
		},
	}
}
