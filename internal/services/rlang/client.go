package rlang

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// versionExpr prints the interpreter version the same way the project marker
// records it: major and minor joined by a period, no trailing newline.
const versionExpr = `cat(R.version$major, R.version$minor, sep=".")`

const probeTimeout = 30 * time.Second

// Version identifies an R interpreter release.
type Version struct {
	Major string
	Minor string
}

// MajorMinor returns the canonical marker form, e.g. "4.5.1". R's minor
// component already carries the patch level, so the joined value has three
// parts.
func (v Version) MajorMinor() string {
	if v.Major == "" && v.Minor == "" {
		return ""
	}
	return v.Major + "." + v.Minor
}

func (v Version) String() string {
	return v.MajorMinor()
}

// Prober reports the version of the installed R runtime.
type Prober interface {
	Version(ctx context.Context) (Version, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) (string, error)
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

// Client probes the R runtime through Rscript.
type Client struct {
	binary string
	exec   Executor
}

// New constructs an R runtime client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("rscript binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Version asks the interpreter for its release. The probe runs --vanilla so
// project profiles cannot print into the output being parsed.
func (c *Client) Version(ctx context.Context) (Version, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := c.exec.Output(ctx, c.binary, []string{"--vanilla", "-e", versionExpr})
	if err != nil {
		return Version{}, fmt.Errorf("probe R version: %w", err)
	}
	version, ok := ParseVersion(out)
	if !ok {
		return Version{}, fmt.Errorf("probe R version: unrecognized output %q", strings.TrimSpace(out))
	}
	return version, nil
}

// ParseVersion splits a joined version string into its major and minor
// components. The major component is everything before the first period.
func ParseVersion(raw string) (Version, bool) {
	raw = firstLine(raw)
	if raw == "" {
		return Version{}, false
	}
	major, minor, found := strings.Cut(raw, ".")
	if !found || major == "" || minor == "" {
		return Version{}, false
	}
	for _, part := range []string{major, minor} {
		for _, r := range part {
			if (r < '0' || r > '9') && r != '.' {
				return Version{}, false
			}
		}
	}
	return Version{Major: major, Minor: minor}, true
}

func firstLine(raw string) string {
	line, _, _ := strings.Cut(raw, "\n")
	return strings.TrimSpace(line)
}

var _ Prober = (*Client)(nil)

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%w: %s", err, detail)
		}
		return "", err
	}
	return stdout.String(), nil
}
