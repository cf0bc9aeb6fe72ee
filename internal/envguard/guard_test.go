package envguard_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"galley/internal/envguard"
	"galley/internal/services/rlang"
)

type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) warnings() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []slog.Record
	for _, r := range h.records {
		if r.Level == slog.LevelWarn {
			out = append(out, r)
		}
	}
	return out
}

func renderRecord(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	return b.String()
}

type stubProber struct {
	version rlang.Version
	err     error
	calls   int
}

func (s *stubProber) Version(ctx context.Context) (rlang.Version, error) {
	s.calls++
	return s.version, s.err
}

func writeMarker(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "R-version")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write marker: %v", err)
	}
	return path
}

func TestMatchingMarkerStaysSilent(t *testing.T) {
	handler := &recordingHandler{}
	prober := &stubProber{version: rlang.Version{Major: "4", Minor: "5.1"}}
	guard := envguard.New(prober, slog.New(handler))

	result := guard.Run(context.Background(), writeMarker(t, "4.5.1\n"))

	if !result.Checked || !result.Match {
		t.Fatalf("expected checked match, got %+v", result)
	}
	if warns := handler.warnings(); len(warns) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warns))
	}
}

func TestMismatchWarnsOnceWithBothValues(t *testing.T) {
	handler := &recordingHandler{}
	prober := &stubProber{version: rlang.Version{Major: "4", Minor: "5.1"}}
	guard := envguard.New(prober, slog.New(handler))

	result := guard.Run(context.Background(), writeMarker(t, "4.4.0\n"))

	if !result.Checked || result.Match {
		t.Fatalf("expected checked mismatch, got %+v", result)
	}
	if result.Expected != "4.4.0" || result.Observed != "4.5.1" {
		t.Fatalf("unexpected versions: %+v", result)
	}
	warns := handler.warnings()
	if len(warns) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(warns))
	}
	rendered := renderRecord(warns[0])
	for _, value := range []string{"4.4.0", "4.5.1"} {
		if !strings.Contains(rendered, value) {
			t.Fatalf("expected warning to mention %q, got %q", value, rendered)
		}
	}
}

func TestMissingMarkerDoesNothing(t *testing.T) {
	handler := &recordingHandler{}
	prober := &stubProber{version: rlang.Version{Major: "4", Minor: "5.1"}}
	guard := envguard.New(prober, slog.New(handler))

	result := guard.Run(context.Background(), filepath.Join(t.TempDir(), "R-version"))

	if result.Checked {
		t.Fatalf("expected unchecked result, got %+v", result)
	}
	if warns := handler.warnings(); len(warns) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warns))
	}
	if prober.calls != 0 {
		t.Fatalf("expected runtime probe to be skipped, got %d calls", prober.calls)
	}
}

func TestBlankMarkerTreatedAsAbsent(t *testing.T) {
	handler := &recordingHandler{}
	prober := &stubProber{version: rlang.Version{Major: "4", Minor: "5.1"}}
	guard := envguard.New(prober, slog.New(handler))

	result := guard.Run(context.Background(), writeMarker(t, "\n   \n"))

	if result.Checked {
		t.Fatalf("expected unchecked result, got %+v", result)
	}
	if warns := handler.warnings(); len(warns) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warns))
	}
	if prober.calls != 0 {
		t.Fatalf("expected runtime probe to be skipped, got %d calls", prober.calls)
	}
}

func TestMarkerWhitespaceIsTrimmed(t *testing.T) {
	handler := &recordingHandler{}
	prober := &stubProber{version: rlang.Version{Major: "4", Minor: "5.1"}}
	guard := envguard.New(prober, slog.New(handler))

	result := guard.Run(context.Background(), writeMarker(t, "  4.5.1  \r\n"))

	if !result.Match {
		t.Fatalf("expected trimmed marker to match, got %+v", result)
	}
	if warns := handler.warnings(); len(warns) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warns))
	}
}

func TestRepeatedRunsReportSameOutcome(t *testing.T) {
	handler := &recordingHandler{}
	prober := &stubProber{version: rlang.Version{Major: "4", Minor: "5.1"}}
	guard := envguard.New(prober, slog.New(handler))
	marker := writeMarker(t, "4.4.0\n")

	first := guard.Run(context.Background(), marker)
	second := guard.Run(context.Background(), marker)

	if first != second {
		t.Fatalf("expected identical outcomes, got %+v then %+v", first, second)
	}
	if warns := handler.warnings(); len(warns) != 2 {
		t.Fatalf("expected one warning per run, got %d", len(warns))
	}
}

func TestProbeFailureStaysQuiet(t *testing.T) {
	handler := &recordingHandler{}
	prober := &stubProber{err: errors.New("Rscript not installed")}
	guard := envguard.New(prober, slog.New(handler))

	result := guard.Run(context.Background(), writeMarker(t, "4.5.1\n"))

	if result.Checked {
		t.Fatalf("expected unchecked result when probe fails, got %+v", result)
	}
	if warns := handler.warnings(); len(warns) != 0 {
		t.Fatalf("expected no warnings, got %d", len(warns))
	}
}

func TestReadMarkerUsesFirstLineOnly(t *testing.T) {
	path := writeMarker(t, "4.5.1\n4.9.9\n")
	value, ok := envguard.ReadMarker(path)
	if !ok || value != "4.5.1" {
		t.Fatalf("unexpected marker read: %q %v", value, ok)
	}
}

func TestReadMarkerMissingFile(t *testing.T) {
	if _, ok := envguard.ReadMarker(filepath.Join(t.TempDir(), "absent")); ok {
		t.Fatal("expected missing marker to report absent")
	}
}
