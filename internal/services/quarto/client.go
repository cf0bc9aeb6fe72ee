package quarto

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"galley/internal/toolexec"
)

// outputCreatedPrefix marks the renderer lines that name finished artifacts.
const outputCreatedPrefix = "Output created:"

// RenderRequest describes a single render invocation.
type RenderRequest struct {
	// ProjectRoot is the working directory for the renderer.
	ProjectRoot string
	// Targets restricts the render to specific documents. Empty renders the
	// whole project.
	Targets []string
	// Formats lists output formats passed via --to. Empty defers to the
	// document header.
	Formats []string
	// OutputDir overrides the renderer's output directory when set.
	OutputDir string
	// ExtraArgs are appended verbatim to the invocation.
	ExtraArgs []string
}

// RenderResult captures what a render produced.
type RenderResult struct {
	// Artifacts holds absolute paths of the files the renderer reported.
	Artifacts []string
}

// Renderer defines the behaviour required by the render workflow.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest, onLine func(string)) (RenderResult, error)
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

// Client wraps the Quarto CLI.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a Quarto client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("quarto binary required")
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    toolexec.Streamer{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Render executes quarto render and returns the artifacts it reported.
// Renderer output lines are forwarded to onLine as they arrive.
func (c *Client) Render(ctx context.Context, req RenderRequest, onLine func(string)) (RenderResult, error) {
	if strings.TrimSpace(req.ProjectRoot) == "" {
		return RenderResult{}, errors.New("project root required")
	}

	renderCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"render"}
	args = append(args, req.Targets...)
	if len(req.Formats) > 0 {
		args = append(args, "--to", strings.Join(req.Formats, ","))
	}
	if strings.TrimSpace(req.OutputDir) != "" {
		args = append(args, "--output-dir", req.OutputDir)
	}
	args = append(args, req.ExtraArgs...)

	var artifacts []string
	err := c.exec.Run(renderCtx, req.ProjectRoot, c.binary, args, func(line string) {
		if artifact, ok := parseOutputCreated(line); ok {
			artifacts = append(artifacts, resolveArtifact(req.ProjectRoot, artifact))
		}
		if onLine != nil {
			onLine(line)
		}
	})
	if err != nil {
		if renderCtx.Err() != nil && ctx.Err() == nil {
			return RenderResult{}, fmt.Errorf("quarto render timed out after %s: %w", c.timeout, renderCtx.Err())
		}
		if ctx.Err() != nil {
			return RenderResult{}, fmt.Errorf("quarto render: %w", ctx.Err())
		}
		return RenderResult{}, fmt.Errorf("quarto render: %w", err)
	}

	return RenderResult{Artifacts: dedupePaths(artifacts)}, nil
}

// Version reports the renderer version for diagnostics.
func (c *Client) Version(ctx context.Context) (string, error) {
	var lines []string
	err := c.exec.Run(ctx, "", c.binary, []string{"--version"}, func(line string) {
		lines = append(lines, strings.TrimSpace(line))
	})
	if err != nil {
		return "", fmt.Errorf("quarto version: %w", err)
	}
	for _, line := range lines {
		if line != "" {
			return line, nil
		}
	}
	return "", errors.New("quarto version: empty output")
}

func parseOutputCreated(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, outputCreatedPrefix) {
		return "", false
	}
	artifact := strings.TrimSpace(strings.TrimPrefix(trimmed, outputCreatedPrefix))
	if artifact == "" {
		return "", false
	}
	return artifact, true
}

func resolveArtifact(root, artifact string) string {
	if filepath.IsAbs(artifact) {
		return filepath.Clean(artifact)
	}
	return filepath.Join(root, artifact)
}

func dedupePaths(paths []string) []string {
	if len(paths) < 2 {
		return paths
	}
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if _, exists := seen[p]; exists {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

var _ Renderer = (*Client)(nil)
