package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"galley/internal/fileutil"
	"galley/internal/journal"
	"galley/internal/logging"
	"galley/internal/notifications"
	"galley/internal/services"
	"galley/internal/services/quarto"
	"galley/internal/services/renv"
)

// RenderOptions control a single render run.
type RenderOptions struct {
	// Targets restricts the render to specific documents. Empty renders the
	// whole project.
	Targets []string
	// Formats overrides the configured output formats for this run.
	Formats []string
	// Restore forces a dependency restore before rendering even when
	// auto-restore is disabled or no lockfile is present.
	Restore bool
}

// RenderOutcome reports what a render run produced. Run is always populated
// once a journal entry exists, including on failure.
type RenderOutcome struct {
	Run       *journal.Run
	Artifacts []journal.Artifact
	Restored  bool
	Duration  time.Duration
}

// Render restores the package library when needed, renders the requested
// documents, and records the produced artifacts in the journal.
func (r *Runner) Render(ctx context.Context, opts RenderOptions) (*RenderOutcome, error) {
	if err := r.cfg.RequireProject(); err != nil {
		return nil, err
	}
	release, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	detail := renderDetail(opts.Targets)
	run, err := r.store.Begin(ctx, journal.KindRender, detail)
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, run.UUID)
	ctx = services.WithKind(ctx, string(journal.KindRender))
	logger := r.runLogger(run)

	start := time.Now()
	logger.Info("render started", logging.String("detail", detail))
	r.guard.Run(ctx, r.cfg.MarkerPath())
	r.publish(ctx, notifications.EventRenderStarted, notifications.Payload{"document": detail})

	outcome := &RenderOutcome{Run: run}

	if opts.Restore || (r.cfg.Packages.AutoRestore && renv.HasLockfile(r.cfg.ProjectRoot)) {
		if err := r.restoreLibrary(ctx, logger); err != nil {
			r.failRun(ctx, logger, run, err.Error())
			r.publish(ctx, notifications.EventRenderFailed, notifications.Payload{
				"document": detail,
				"error":    err.Error(),
			})
			return outcome, err
		}
		outcome.Restored = true
	}

	formats := opts.Formats
	if len(formats) == 0 {
		formats = r.cfg.Render.Formats
	}
	result, err := r.renderer.Render(ctx, quarto.RenderRequest{
		ProjectRoot: r.cfg.ProjectRoot,
		Targets:     opts.Targets,
		Formats:     formats,
		OutputDir:   r.cfg.Render.OutputDir,
		ExtraArgs:   r.cfg.Render.ExtraArgs,
	}, func(line string) {
		logger.Debug("renderer output",
			logging.String(logging.FieldTool, "quarto"),
			logging.String("line", line),
		)
	})
	if err != nil {
		err = wrapTool("render", "document render failed", err)
		r.failRun(ctx, logger, run, err.Error())
		r.publish(ctx, notifications.EventRenderFailed, notifications.Payload{
			"document": detail,
			"error":    err.Error(),
		})
		return outcome, err
	}

	artifacts := r.collectArtifacts(logger, result.Artifacts)
	if err := r.store.Finish(ctx, run, artifacts); err != nil {
		return outcome, err
	}
	outcome.Artifacts = artifacts
	outcome.Duration = time.Since(start)

	logger.Info("render completed",
		logging.Int("artifacts", len(artifacts)),
		logging.Duration("duration", outcome.Duration),
	)
	r.publish(ctx, notifications.EventRenderCompleted, notifications.Payload{
		"document": detail,
		"duration": formatDuration(outcome.Duration),
		"outputs":  artifactNames(artifacts),
	})
	return outcome, nil
}

// collectArtifacts fingerprints everything the renderer reported. Paths are
// stored project-relative so journal entries stay meaningful if the project
// moves.
func (r *Runner) collectArtifacts(logger *slog.Logger, paths []string) []journal.Artifact {
	artifacts := make([]journal.Artifact, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("render artifact not readable",
				logging.String(logging.FieldArtifact, path),
				logging.Error(err),
			)
			continue
		}
		if info.IsDir() {
			continue
		}
		sum, err := fileutil.ChecksumFile(path)
		if err != nil {
			logger.Warn("render artifact checksum failed",
				logging.String(logging.FieldArtifact, path),
				logging.Error(err),
			)
			sum = ""
		}
		artifacts = append(artifacts, journal.Artifact{
			Path:   r.relToRoot(path),
			SHA256: sum,
			Bytes:  info.Size(),
		})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	return artifacts
}

func renderDetail(targets []string) string {
	if len(targets) == 0 {
		return "project"
	}
	return strings.Join(targets, ", ")
}

func artifactNames(artifacts []journal.Artifact) string {
	names := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		names = append(names, filepath.Base(artifact.Path))
	}
	return strings.Join(names, ", ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}
