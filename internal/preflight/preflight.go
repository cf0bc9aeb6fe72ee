package preflight

import (
	"context"

	"galley/internal/config"
	"galley/internal/deps"
	"galley/internal/services/rlang"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Project-scoped checks are only run when a project root is known.
func RunAll(ctx context.Context, cfg *config.Config, prober rlang.Prober) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))

	if cfg.InProject() {
		results = append(results, CheckDirectoryAccess("Project root", cfg.ProjectRoot))
		results = append(results, CheckDiskSpace("Project disk", cfg.ProjectRoot, minFreeBytes))
		results = append(results, CheckVersionMarker(ctx, cfg, prober))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

// CheckSystemDeps evaluates all external tools for the given config. The
// doctor command renders these as its Tools section and counts the missing
// required ones toward its exit status.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Quarto",
			Command:     cfg.Render.Binary,
			Description: "required for rendering manuscripts",
		},
		{
			Name:        "Rscript",
			Command:     cfg.Packages.Binary,
			Description: "required for R execution and package restores",
		},
		{
			Name:        "aspell",
			Command:     cfg.Spelling.Binary,
			Description: "used for spell checking manuscript sources",
			Optional:    true,
		},
		{
			Name:        "git",
			Command:     "git",
			Description: "used for version control and CI workflows",
			Optional:    true,
		},
		{
			Name:        "docker",
			Command:     "docker",
			Description: "used to build the reproducible container image",
			Optional:    true,
		},
	}
	statuses := deps.CheckBinaries(requirements)
	statuses = append(statuses, deps.CheckLatexForQuarto())
	return statuses
}
