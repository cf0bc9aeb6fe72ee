package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"galley/internal/config"
	"galley/internal/envguard"
	"galley/internal/journal"
	"galley/internal/logging"
	"galley/internal/notifications"
	"galley/internal/services"
	"galley/internal/services/aspell"
	"galley/internal/services/quarto"
	"galley/internal/services/renv"
	"galley/internal/services/rlang"
)

// lockFileName guards mutating workflows. The lock lives in the project
// state directory next to the journal database.
const lockFileName = "render.lock"

// Runner executes the paper workflows. Collaborators are interfaces so tests
// can substitute stub tools; production runners are built from configuration
// via NewRunner.
type Runner struct {
	cfg      *config.Config
	store    *journal.Store
	logger   *slog.Logger
	notifier notifications.Service
	guard    *envguard.Guard
	prober   rlang.Prober
	renderer quarto.Renderer
	packages renv.Manager
	speller  aspell.Checker
}

// Option overrides one of the runner's collaborators, primarily for tests.
type Option func(*Runner)

// WithRenderer replaces the document renderer client.
func WithRenderer(renderer quarto.Renderer) Option {
	return func(r *Runner) {
		if renderer != nil {
			r.renderer = renderer
		}
	}
}

// WithPackages replaces the package manager client.
func WithPackages(manager renv.Manager) Option {
	return func(r *Runner) {
		if manager != nil {
			r.packages = manager
		}
	}
}

// WithSpeller replaces the spell checker client.
func WithSpeller(checker aspell.Checker) Option {
	return func(r *Runner) {
		if checker != nil {
			r.speller = checker
		}
	}
}

// WithProber replaces the runtime version prober used by the version guard.
func WithProber(prober rlang.Prober) Option {
	return func(r *Runner) {
		if prober != nil {
			r.prober = prober
		}
	}
}

// WithNotifier replaces the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(r *Runner) {
		if notifier != nil {
			r.notifier = notifier
		}
	}
}

// NewRunner wires a runner from configuration. Collaborators not supplied
// through options are constructed from the configured binaries.
func NewRunner(cfg *config.Config, store *journal.Store, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "configuration required", nil)
	}
	base := logger
	runner := &Runner{
		cfg:    cfg,
		store:  store,
		logger: logging.WithComponent(base, "pipeline"),
	}
	for _, opt := range opts {
		opt(runner)
	}
	if runner.notifier == nil {
		runner.notifier = notifications.NewService(cfg)
	}
	if runner.renderer == nil {
		client, err := quarto.New(cfg.Render.Binary, cfg.Render.TimeoutSeconds)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "configure renderer", err)
		}
		runner.renderer = client
	}
	if runner.packages == nil {
		client, err := renv.New(cfg.Packages.Binary, cfg.Packages.Mirror, cfg.Packages.Cores, cfg.Packages.TimeoutSeconds)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "configure package manager", err)
		}
		runner.packages = client
	}
	if runner.speller == nil {
		client, err := aspell.New(cfg.Spelling.Binary, cfg.Spelling.Language, cfg.Spelling.Mode)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "configure spell checker", err)
		}
		runner.speller = client
	}
	if runner.prober == nil {
		prober, err := rlang.New(cfg.Packages.Binary)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "configure version prober", err)
		}
		runner.prober = prober
	}
	runner.guard = envguard.New(runner.prober, base)
	return runner, nil
}

// acquireLock serializes mutating workflows within one project so concurrent
// invocations fail fast instead of interleaving renders. The returned release
// function is safe to defer immediately.
func (r *Runner) acquireLock() (func(), error) {
	if err := os.MkdirAll(r.cfg.StateDir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "lock", "create state directory", err)
	}
	fileLock := flock.New(filepath.Join(r.cfg.StateDir(), lockFileName))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock", "acquire project lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "lock", "another galley run is already active in this project", nil)
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			r.logger.Warn("failed to release project lock", logging.Error(err))
		}
	}, nil
}

// wrapTool classifies a tool invocation failure: missing binaries are
// configuration errors, deadlines are timeouts, cancellation passes through
// unwrapped.
func wrapTool(operation, message string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, exec.ErrNotFound):
		return services.Wrap(services.ErrConfiguration, "pipeline", operation, message, err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "pipeline", operation, message, err)
	}
	return services.Wrap(services.ErrExternalTool, "pipeline", operation, message, err)
}

// runLogger tags the runner's logger with the journal run correlation fields.
func (r *Runner) runLogger(run *journal.Run) *slog.Logger {
	return r.logger.With(
		logging.String(logging.FieldRunID, run.UUID),
		logging.String(logging.FieldKind, string(run.Kind)),
	)
}

// failRun records the failure in the journal. Journal errors are logged, not
// returned, so the original workflow error stays primary.
func (r *Runner) failRun(ctx context.Context, logger *slog.Logger, run *journal.Run, message string) {
	if err := r.store.Fail(ctx, run, message); err != nil {
		logger.Error("failed to record run failure", logging.Error(err))
	}
}

func (r *Runner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		r.logger.Debug("notification publish failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

// relToRoot shortens an absolute path to its project-relative form when the
// path sits inside the project.
func (r *Runner) relToRoot(path string) string {
	rel, err := filepath.Rel(r.cfg.ProjectRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
