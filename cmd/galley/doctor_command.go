package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"galley/internal/config"
	"galley/internal/deps"
	"galley/internal/envguard"
	"galley/internal/journal"
	"galley/internal/preflight"
	"galley/internal/services/renv"
	"galley/internal/services/rlang"
	"galley/internal/version"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the environment, external tools, and project state",
		Long: `Doctor inspects everything a render depends on: configuration, the R
runtime, external tools, directory access, and the run journal. Required
tools that are missing make the command exit non-zero so CI can gate on it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p := newStatusPrinter(cmd.OutOrStdout())

			p.section("Environment")
			p.line("Version", statusInfo, version.Short())
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail += " (defaults; file absent)"
			}
			p.line("Config", statusInfo, configDetail)
			if cfg.InProject() {
				p.line("Project", statusOK, cfg.ProjectRoot)
			} else {
				p.line("Project", statusInfo, "not inside a galley project")
			}

			probeCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			var prober rlang.Prober
			observed := ""
			if client, err := rlang.New(cfg.Packages.Binary); err == nil {
				prober = client
				if ver, probeErr := client.Version(probeCtx); probeErr == nil {
					observed = ver.MajorMinor()
				}
			}
			if observed != "" {
				p.line("R runtime", statusOK, fmt.Sprintf("R %s (%s)", observed, cfg.Packages.Binary))
			} else {
				p.line("R runtime", statusWarn, fmt.Sprintf("could not probe %s", cfg.Packages.Binary))
			}

			if cfg.InProject() {
				if expected, ok := envguard.ReadMarker(cfg.MarkerPath()); ok {
					switch {
					case observed == "":
						p.line("Version marker", statusInfo, fmt.Sprintf("pins R %s (runtime not probed)", expected))
					case observed == expected:
						p.line("Version marker", statusOK, fmt.Sprintf("runtime matches pinned R %s", expected))
					default:
						p.line("Version marker", statusWarn, fmt.Sprintf("pins R %s but runtime is %s", expected, observed))
					}
				} else {
					p.line("Version marker", statusInfo, fmt.Sprintf("no %s file (project pins nothing)", cfg.Environment.VersionFile))
				}
				if renv.HasLockfile(cfg.ProjectRoot) {
					p.line("Lockfile", statusOK, renv.LockfileName+" present")
				} else {
					p.line("Lockfile", statusInfo, renv.LockfileName+" not found")
				}
			}

			p.section("Tools")
			requiredMissing := 0
			for _, status := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
				switch {
				case status.Available:
					detail := status.Command
					if status.Detail != "" {
						detail = status.Detail
					}
					p.line(status.Name, statusOK, detail)
				case status.Optional:
					p.line(status.Name, statusWarn, missingToolDetail(status))
				default:
					requiredMissing++
					p.line(status.Name, statusError, missingToolDetail(status))
				}
			}

			p.section("Checks")
			for _, result := range preflight.RunAll(cmd.Context(), cfg, prober) {
				kind := statusOK
				if !result.Passed {
					kind = statusWarn
				}
				p.line(result.Name, kind, result.Detail)
			}

			if cfg.InProject() {
				p.section("Journal")
				printJournalSection(cmd.Context(), cfg, p)
			}

			if requiredMissing > 0 {
				return fmt.Errorf("%d required tool(s) missing", requiredMissing)
			}
			return nil
		},
	}
}

// missingToolDetail explains what an unavailable tool would have been used for.
func missingToolDetail(status deps.Status) string {
	if status.Description == "" {
		return status.Detail
	}
	return fmt.Sprintf("%s (%s)", status.Detail, status.Description)
}

func printJournalSection(ctx context.Context, cfg *config.Config, p *statusPrinter) {
	store, err := journal.Open(cfg)
	if err != nil {
		p.line("Journal", statusWarn, fmt.Sprintf("could not open: %v", err))
		return
	}
	defer store.Close()

	health, err := store.Health(ctx)
	if err != nil {
		p.line("Journal", statusWarn, fmt.Sprintf("could not query: %v", err))
		return
	}
	p.line("Runs", statusInfo, fmt.Sprintf("%d total (%d succeeded, %d failed, %d running)",
		health.Total, health.Succeeded, health.Failed, health.Running))

	if last, err := store.Latest(ctx, journal.KindRender); err == nil && last != nil {
		kind := statusOK
		if last.Status == journal.StatusFailed {
			kind = statusWarn
		}
		p.line("Last render", kind, fmt.Sprintf("%s %s", last.Status, formatAge(last.StartedAt)))
	}
}
