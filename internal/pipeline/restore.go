package pipeline

import (
	"context"
	"log/slog"
	"time"

	"galley/internal/journal"
	"galley/internal/logging"
	"galley/internal/notifications"
	"galley/internal/services"
	"galley/internal/services/renv"
)

// RestoreOutcome reports a dependency restore run. Status is nil when the
// post-restore library check could not be performed.
type RestoreOutcome struct {
	Run      *journal.Run
	Status   *renv.StatusReport
	Duration time.Duration
}

// Restore rebuilds the project package library from the lockfile.
func (r *Runner) Restore(ctx context.Context) (*RestoreOutcome, error) {
	if err := r.cfg.RequireProject(); err != nil {
		return nil, err
	}
	if !renv.HasLockfile(r.cfg.ProjectRoot) {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "restore", renv.LockfileName+" not found in project", nil)
	}
	release, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	run, err := r.store.Begin(ctx, journal.KindRestore, renv.LockfileName)
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, run.UUID)
	ctx = services.WithKind(ctx, string(journal.KindRestore))
	logger := r.runLogger(run)

	start := time.Now()
	logger.Info("restore started")
	r.guard.Run(ctx, r.cfg.MarkerPath())

	outcome := &RestoreOutcome{Run: run}
	if err := r.restoreLibrary(ctx, logger); err != nil {
		r.failRun(ctx, logger, run, err.Error())
		r.publish(ctx, notifications.EventRestoreFailed, notifications.Payload{"error": err.Error()})
		return outcome, err
	}

	if status, err := r.packages.Status(ctx, r.cfg.ProjectRoot); err != nil {
		logger.Debug("library status unavailable", logging.Error(err))
	} else {
		outcome.Status = &status
	}

	if err := r.store.Finish(ctx, run, nil); err != nil {
		return outcome, err
	}
	outcome.Duration = time.Since(start)
	logger.Info("restore completed", logging.Duration("duration", outcome.Duration))

	payload := notifications.Payload{"duration": formatDuration(outcome.Duration)}
	if outcome.Status != nil {
		payload["summary"] = outcome.Status.Summary
	}
	r.publish(ctx, notifications.EventRestoreCompleted, payload)
	return outcome, nil
}

// SnapshotOutcome reports a lockfile snapshot run.
type SnapshotOutcome struct {
	Run      *journal.Run
	Duration time.Duration
}

// Snapshot records the current package library state into the lockfile.
func (r *Runner) Snapshot(ctx context.Context) (*SnapshotOutcome, error) {
	if err := r.cfg.RequireProject(); err != nil {
		return nil, err
	}
	release, err := r.acquireLock()
	if err != nil {
		return nil, err
	}
	defer release()

	run, err := r.store.Begin(ctx, journal.KindSnapshot, renv.LockfileName)
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, run.UUID)
	ctx = services.WithKind(ctx, string(journal.KindSnapshot))
	logger := r.runLogger(run)

	start := time.Now()
	logger.Info("snapshot started")
	r.guard.Run(ctx, r.cfg.MarkerPath())

	outcome := &SnapshotOutcome{Run: run}
	if err := r.packages.Snapshot(ctx, r.cfg.ProjectRoot, func(line string) {
		logger.Debug("snapshot output",
			logging.String(logging.FieldTool, "renv"),
			logging.String("line", line),
		)
	}); err != nil {
		err = wrapTool("snapshot", "lockfile snapshot failed", err)
		r.failRun(ctx, logger, run, err.Error())
		return outcome, err
	}

	if err := r.store.Finish(ctx, run, nil); err != nil {
		return outcome, err
	}
	outcome.Duration = time.Since(start)
	logger.Info("snapshot completed", logging.Duration("duration", outcome.Duration))
	return outcome, nil
}

func (r *Runner) restoreLibrary(ctx context.Context, logger *slog.Logger) error {
	logger.Info("restoring package library", logging.String(logging.FieldTool, "renv"))
	err := r.packages.Restore(ctx, r.cfg.ProjectRoot, func(line string) {
		logger.Debug("restore output",
			logging.String(logging.FieldTool, "renv"),
			logging.String("line", line),
		)
	})
	if err != nil {
		return wrapTool("restore", "package library restore failed", err)
	}
	return nil
}
