// Package logs locates and reads galley's run log files.
//
// Every pipeline run writes a timestamped log file into the configured log
// directory. This package finds the newest one and supports tailing it,
// either as a fixed number of trailing lines or as a live follow that keeps
// streaming appended lines until the context is cancelled.
package logs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const followInterval = 250 * time.Millisecond

// Newest returns the most recently modified file in dir matching pattern.
// The boolean reports whether any log file was found.
func Newest(dir, pattern string) (string, bool, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", false, fmt.Errorf("glob log files: %w", err)
	}
	var newest string
	var newestMod time.Time
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = match
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", false, nil
	}
	return newest, true, nil
}

// Tail returns up to limit trailing lines of the file along with the offset
// of the end of the file, suitable as the starting point for Follow. A limit
// of zero or less returns no lines but still reports the end offset.
func Tail(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	var (
		ring  []string
		next  int
		total int
	)
	if limit > 0 {
		ring = make([]string, limit)
	}
	offset := int64(0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		offset += int64(len(scanner.Bytes())) + 1
		if limit > 0 {
			ring[next] = line
			next = (next + 1) % limit
		}
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	if info, err := file.Stat(); err == nil && offset > info.Size() {
		offset = info.Size()
	}

	if limit <= 0 || total == 0 {
		return nil, offset, nil
	}
	count := total
	if count > limit {
		count = limit
	}
	lines := make([]string, 0, count)
	start := (next - count + limit) % limit
	for i := 0; i < count; i++ {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, offset, nil
}

// Follow streams lines appended to the file after offset to out until ctx is
// cancelled, returning ctx.Err. Galley writes one log file per run and never
// rotates mid-run, so truncation is treated as a fresh start rather than an
// error.
func Follow(ctx context.Context, path string, offset int64, out io.Writer) error {
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()
	for {
		lines, next, err := readForward(path, offset)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		offset = next
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readForward returns the complete lines appended after offset. A trailing
// unterminated line is left for the next poll so a record mid-write is never
// emitted in half.
func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}
	var lines []string
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(data[:idx]))
		offset += int64(idx) + 1
		data = data[idx+1:]
	}
	return lines, offset, nil
}
