package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"galley/internal/config"
	"galley/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// setupCLITestEnv isolates HOME, stubs the external binaries on PATH, and
// writes a project manifest so commands run against a throwaway project.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	combined := append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)
	cfg := testsupport.NewConfig(t, combined...)
	base := testsupport.BaseDir(cfg)

	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("isolate home: %v", err)
	}
	t.Setenv("HOME", home)

	configPath := filepath.Join(cfg.ProjectRoot, config.ProjectFileName)
	writeProjectConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeProjectConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nlog_dir = %q\ncache_dir = %q\n",
		cfg.Paths.LogDir,
		cfg.Paths.CacheDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write project file: %v", err)
	}
}

// overrideStub replaces one of the default PATH stubs with a custom script.
func overrideStub(t *testing.T, env *cliTestEnv, name, script string) {
	t.Helper()
	testsupport.WriteStub(t, filepath.Join(env.baseDir, "bin"), name, script)
}

func waitFor(t *testing.T, timeout time.Duration, fn func() bool) {
	t.Helper()
	for start := time.Now(); ; time.Sleep(10 * time.Millisecond) {
		if fn() {
			return
		}
		if time.Since(start) > timeout {
			t.Fatalf("condition not met within %s", timeout)
		}
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("output missing %q:\n%s", substr, output)
	}
}
