package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"galley/internal/config"
)

// ConfigOption adjusts the configuration NewConfig returns.
type ConfigOption func(*testConfig)

type testConfig struct {
	tb   testing.TB
	base string
	cfg  *config.Config
}

// NewConfig returns a Config whose log, cache, and project directories all
// live under a per-test temp directory. The project root exists on return;
// options mutate the result before it is handed back.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.ProjectRoot = filepath.Join(base, "project")

	if err := os.MkdirAll(cfgVal.ProjectRoot, 0o755); err != nil {
		t.Fatalf("mkdir project root: %v", err)
	}

	tc := &testConfig{tb: t, base: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(tc)
	}
	return tc.cfg
}

// WithoutProject clears the project root so the config behaves like a run
// outside any paper directory.
func WithoutProject() ConfigOption {
	return func(tc *testConfig) {
		tc.cfg.ProjectRoot = ""
	}
}

// WithMarker writes the environment version marker with the given content.
func WithMarker(content string) ConfigOption {
	return func(tc *testConfig) {
		path := tc.cfg.MarkerPath()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			tc.tb.Fatalf("write marker %s: %v", path, err)
		}
	}
}

// DefaultStubScript exits zero without output, so tool invocations succeed
// while version probes report nothing.
const DefaultStubScript = "#!/bin/sh\nexit 0\n"

// WriteStub places an executable shell script at dir/name and returns its path.
func WriteStub(t testing.TB, dir, name, script string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// WithStubbedBinaries puts no-op executables for the named tools on PATH.
// With no names, every external binary galley shells out to gets a stub.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(tc *testConfig) {
		if len(names) == 0 {
			names = []string{"quarto", "Rscript", "aspell"}
		}
		binDir := filepath.Join(tc.base, "bin")
		for _, name := range names {
			WriteStub(tc.tb, binDir, name, DefaultStubScript)
		}
		tc.tb.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir recovers the temp directory NewConfig seeded cfg's paths under.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
