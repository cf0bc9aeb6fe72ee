package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"galley/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and scaffold configuration",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a starter configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveConfigTarget(targetPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(target); err == nil {
				if !overwrite {
					return fmt.Errorf("%s already exists; rerun with --overwrite to replace it", target)
				}
			} else if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("init config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sample configuration written to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set ntfy_topic if you want push notifications for long renders.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the file if it already exists")
	return cmd
}

// resolveConfigTarget expands the --path flag, falling back to the default
// config location when the flag is empty.
func resolveConfigTarget(flagPath string) (string, error) {
	flagPath = strings.TrimSpace(flagPath)
	if flagPath == "" {
		target, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return target, nil
	}
	target, err := config.ExpandPath(flagPath)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.configExists {
				fmt.Fprintln(out, "No config file found; running on built-in defaults")
			}
			if cfg.InProject() {
				fmt.Fprintf(out, "Project root: %s\n", cfg.ProjectRoot)
			}
			fmt.Fprintln(out, "Configuration OK")
			return nil
		},
	}
}
