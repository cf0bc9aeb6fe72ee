package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var verboseFlag bool

	ctx := newCommandContext(&configFlag, &verboseFlag)

	rootCmd := &cobra.Command{
		Use:   "galley",
		Short: "Reproducible-paper workflow for Quarto and R",
		Long: `Galley drives the render, package-restore, and spell-check workflow of a
Quarto manuscript backed by a pinned R environment. Run it from a project
directory created by 'galley init'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsConfigLoad(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newInitCommand(),
		newRenderCommand(ctx),
		newRestoreCommand(ctx),
		newSnapshotCommand(ctx),
		newSpellCommand(ctx),
		newCleanCommand(ctx),
		newDoctorCommand(ctx),
		newHistoryCommand(ctx),
		newLogsCommand(ctx),
		newConfigCommand(ctx),
		newTestNotifyCommand(ctx),
		newVersionCommand(),
	)

	return rootCmd
}
