// Package toolexec starts external tools and streams their combined output
// line by line. The render and restore workflows use it to surface renderer
// and package-manager progress as it happens.
package toolexec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// maxLineBytes bounds a single output line; renderers occasionally emit very
// long lines for embedded resources.
const maxLineBytes = 1024 * 1024

// Streamer runs binaries on the host and satisfies the executor interfaces
// the service clients declare.
type Streamer struct{}

func (Streamer) Run(ctx context.Context, dir, binary string, args []string, onLine func(string)) error {
	return Stream(ctx, dir, binary, args, onLine)
}

// Stream executes binary with args under dir and hands every stdout and
// stderr line to onLine in arrival order. Delivery is serialized, so callers
// can accumulate state without locking. A nil onLine echoes the tool's output
// to this process's stderr instead.
func Stream(ctx context.Context, dir, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if onLine == nil {
		onLine = func(line string) { fmt.Fprintln(os.Stderr, line) }
	}
	var mu sync.Mutex
	deliver := func(line string) {
		mu.Lock()
		onLine(line)
		mu.Unlock()
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	// stderr drains on a side goroutine while this goroutine drains stdout;
	// with only two streams that is all the fan-in needed.
	errs := make(chan error, 1)
	go func() { errs <- drainLines(stderr, deliver) }()
	stdoutErr := drainLines(stdout, deliver)
	stderrErr := <-errs

	if scanErr := errors.Join(stdoutErr, stderrErr); scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("read output: %w", scanErr)
	}
	return cmd.Wait()
}

func drainLines(r io.Reader, deliver func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		deliver(scanner.Text())
	}
	return scanner.Err()
}
