package renv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"galley/internal/toolexec"
)

// LockfileName is the dependency manifest renv maintains in the project root.
const LockfileName = "renv.lock"

// statusCleanMarker appears in renv::status() output when the lockfile and
// the installed library agree.
const statusCleanMarker = "No issues found"

// StatusReport summarizes lockfile/library agreement.
type StatusReport struct {
	// Synchronized is true when the library satisfies the lockfile.
	Synchronized bool
	// Summary holds the tool's own description of the state.
	Summary string
}

// Manager defines the behaviour required by the restore workflow.
type Manager interface {
	Restore(ctx context.Context, projectRoot string, onLine func(string)) error
	Snapshot(ctx context.Context, projectRoot string, onLine func(string)) error
	Status(ctx context.Context, projectRoot string) (StatusReport, error)
}

// Executor abstracts command execution for testability. Implementations must
// invoke onLine serially, even when merging multiple output streams.
type Executor interface {
	Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives renv through Rscript.
type Client struct {
	binary  string
	mirror  string
	cores   int
	timeout time.Duration
	exec    Executor
}

// New constructs a renv client.
func New(binary, mirror string, cores, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("rscript binary required")
	}
	client := &Client{
		binary:  binary,
		mirror:  strings.TrimSpace(mirror),
		cores:   cores,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    toolexec.Streamer{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Restore installs the package library recorded in the lockfile.
func (c *Client) Restore(ctx context.Context, projectRoot string, onLine func(string)) error {
	return c.run(ctx, projectRoot, `renv::restore(prompt = FALSE)`, onLine)
}

// Snapshot records the current library state into the lockfile.
func (c *Client) Snapshot(ctx context.Context, projectRoot string, onLine func(string)) error {
	return c.run(ctx, projectRoot, `renv::snapshot(prompt = FALSE)`, onLine)
}

// Status reports whether the library and lockfile agree.
func (c *Client) Status(ctx context.Context, projectRoot string) (StatusReport, error) {
	var lines []string
	err := c.run(ctx, projectRoot, `renv::status()`, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return StatusReport{}, err
	}
	summary := strings.TrimSpace(strings.Join(lines, "\n"))
	return StatusReport{
		Synchronized: strings.Contains(summary, statusCleanMarker),
		Summary:      summary,
	}, nil
}

func (c *Client) run(ctx context.Context, projectRoot, call string, onLine func(string)) error {
	if strings.TrimSpace(projectRoot) == "" {
		return errors.New("project root required")
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	expr := c.expression(call)
	if err := c.exec.Run(runCtx, projectRoot, c.binary, []string{"-e", expr}, onLine); err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("renv timed out after %s: %w", c.timeout, runCtx.Err())
		}
		if ctx.Err() != nil {
			return fmt.Errorf("renv: %w", ctx.Err())
		}
		return fmt.Errorf("renv: %w", err)
	}
	return nil
}

// expression prefixes the renv call with repository and parallelism options
// so restores hit the configured mirror with the configured worker count.
func (c *Client) expression(call string) string {
	var opts []string
	if c.mirror != "" {
		opts = append(opts, fmt.Sprintf("repos = c(CRAN = %q)", c.mirror))
	}
	if c.cores > 0 {
		opts = append(opts, fmt.Sprintf("Ncpus = %d", c.cores))
	}
	if len(opts) == 0 {
		return call
	}
	return fmt.Sprintf("options(%s); %s", strings.Join(opts, ", "), call)
}

// LockfilePath returns the manifest path for a project.
func LockfilePath(projectRoot string) string {
	return filepath.Join(projectRoot, LockfileName)
}

// HasLockfile reports whether the project carries a dependency manifest.
func HasLockfile(projectRoot string) bool {
	info, err := os.Stat(LockfilePath(projectRoot))
	return err == nil && !info.IsDir()
}

var _ Manager = (*Client)(nil)
