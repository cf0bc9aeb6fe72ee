package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"galley/internal/config"
	"galley/internal/fileutil"
)

// CleanResult reports what a clean pass removed.
type CleanResult struct {
	Removed    []string
	BytesFreed int64
	FilesFreed int
}

// quartoIntermediates are generated directories the renderer leaves beside
// the sources.
var quartoIntermediates = []string{".quarto", "_freeze"}

// renvCaches hold the restored package library; removed only with all=true
// since restoring them costs real time.
var renvCaches = []string{
	filepath.Join("renv", "library"),
	filepath.Join("renv", "staging"),
}

// Clean removes render artifacts from the project. With all=true it also
// removes the package library caches and galley's own state directory.
func Clean(cfg *config.Config, all bool) (*CleanResult, error) {
	if err := cfg.RequireProject(); err != nil {
		return nil, err
	}

	targets := []string{cfg.OutputPath()}
	for _, rel := range quartoIntermediates {
		targets = append(targets, filepath.Join(cfg.ProjectRoot, rel))
	}
	if all {
		for _, rel := range renvCaches {
			targets = append(targets, filepath.Join(cfg.ProjectRoot, rel))
		}
		targets = append(targets, cfg.StateDir())
	}

	result := &CleanResult{}
	for _, target := range targets {
		if _, err := os.Stat(target); err != nil {
			continue
		}
		bytes, files, err := fileutil.TreeSize(target)
		if err != nil {
			bytes, files = 0, 0
		}
		if err := os.RemoveAll(target); err != nil {
			return result, fmt.Errorf("remove %s: %w", target, err)
		}
		rel, relErr := filepath.Rel(cfg.ProjectRoot, target)
		if relErr != nil {
			rel = target
		}
		result.Removed = append(result.Removed, rel)
		result.BytesFreed += bytes
		result.FilesFreed += files
	}
	return result, nil
}
