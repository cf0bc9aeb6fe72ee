package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newBufferLogger(t *testing.T, level string) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(level))
	handler := &consoleHandler{mu: &sync.Mutex{}, writer: buf, level: levelVar}
	return slog.New(handler), buf
}

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")
	logger = WithComponent(logger, "render")

	logger.Info("output created", String(FieldArtifact, "paper.pdf"), Int("pages", 12))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO render: output created") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "artifact=paper.pdf") {
		t.Fatalf("expected artifact attr in %q", line)
	}
	if !strings.Contains(line, "pages=12") {
		t.Fatalf("expected pages attr in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as prefix, not attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	logger.Warn("tool failed", String("detail", "exit status 1"))

	if !strings.Contains(buf.String(), `detail="exit status 1"`) {
		t.Fatalf("expected quoted detail, got %q", buf.String())
	}
}

func TestConsoleHandlerHonorsLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "warn")

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record should be suppressed: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "galley.log")

	logger, err := New(Options{Level: "debug", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file missing record: %q", string(data))
	}
}

func TestPruneOldLogsRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "galley-old.log")
	fresh := filepath.Join(dir, "galley-fresh.log")
	keep := filepath.Join(dir, "galley-keep.log")
	for _, path := range []string{old, fresh, keep} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	if err := os.Chtimes(keep, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	PruneOldLogs(NewNop(), 7, PruneTarget{Dir: dir, Pattern: "galley-*.log", Exclude: []string{keep}})

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed", old)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh log should survive: %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("excluded log should survive: %v", err)
	}
}
