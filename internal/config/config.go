package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// ProjectFileName is the per-project configuration file that also marks the
// project root when discovered by walking up from the working directory.
const ProjectFileName = "galley.toml"

// StateDirName is the project-local directory holding the run journal and
// render lock. It is created on demand and safe to delete.
const StateDirName = ".galley"

// Paths contains machine-level directory configuration.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Render configures the document renderer invocation.
type Render struct {
	Binary         string   `toml:"binary"`
	Formats        []string `toml:"formats"`
	OutputDir      string   `toml:"output_dir"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	ExtraArgs      []string `toml:"extra_args"`
}

// Packages configures the dependency manager invocation. Mirror and Cores are
// handed to the external tool verbatim on every restore; they are never
// interpreted locally.
type Packages struct {
	Binary         string `toml:"binary"`
	Mirror         string `toml:"mirror"`
	Cores          int    `toml:"cores"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	AutoRestore    bool   `toml:"auto_restore"`
}

// Environment configures the startup version guard.
type Environment struct {
	// VersionFile is the marker file name, resolved against the project root.
	VersionFile string `toml:"version_file"`
}

// Spelling configures the spell checker run.
type Spelling struct {
	Binary     string   `toml:"binary"`
	Language   string   `toml:"language"`
	Mode       string   `toml:"mode"`
	WordList   string   `toml:"word_list"`
	Extensions []string `toml:"extensions"`
}

// Notifications configures ntfy pushes and which events produce them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Render         bool   `toml:"render"`
	Restore        bool   `toml:"restore"`
	Spelling       bool   `toml:"spelling"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains watch-mode tuning.
type Workflow struct {
	WatchDebounceMs int      `toml:"watch_debounce_ms"`
	WatchExtensions []string `toml:"watch_extensions"`
}

// Logging tunes galley's log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for galley.
//
// Sections by subsystem:
//   - Paths: machine-level log and cache directories
//   - Render: document renderer binary, formats, and timeout
//   - Packages: dependency manager binary, mirror, and core count
//   - Environment: version marker file for the startup guard
//   - Spelling: spell checker binary, dictionary, and word list
//   - Notifications: ntfy topic and event toggles
//   - Workflow: watch-mode debounce and extension filter
//   - Logging: output format, verbosity, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Render        Render        `toml:"render"`
	Packages      Packages      `toml:"packages"`
	Environment   Environment   `toml:"environment"`
	Spelling      Spelling      `toml:"spelling"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`

	// ProjectRoot is the directory containing the project file, or empty when
	// the configuration came from the user-level file (not inside a project).
	ProjectRoot string `toml:"-"`
}

// DefaultConfigPath returns the absolute path of the user-level configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/galley/config.toml")
}

// Load locates, parses, and validates a configuration file. The project file
// (galley.toml, found by walking up from the working directory) takes
// precedence over the user-level file so a project pins its own toolchain.
// The returned path is the file that was consulted and exists reports whether
// it was actually present.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locateConfig(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeInto(&cfg, resolved); err != nil {
			return nil, "", false, err
		}
		if filepath.Base(resolved) == ProjectFileName {
			cfg.ProjectRoot = filepath.Dir(resolved)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeInto(cfg *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer file.Close()
	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// locateConfig decides which file Load consults. An explicit path always
// wins, even when the file does not exist yet.
func locateConfig(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	if projectPath, ok := findProjectFile(); ok {
		return projectPath, true, nil
	}

	fallback, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(fallback)
	return fallback, err == nil && !info.IsDir(), nil
}

// findProjectFile walks up from the working directory looking for galley.toml.
func findProjectFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// InProject reports whether the configuration was loaded from a project file.
func (c *Config) InProject() bool {
	return strings.TrimSpace(c.ProjectRoot) != ""
}

// RequireProject returns an error when no project file was discovered.
func (c *Config) RequireProject() error {
	if !c.InProject() {
		return fmt.Errorf("not inside a galley project (no %s found; run 'galley init' to create one)", ProjectFileName)
	}
	return nil
}

// StateDir returns the project-local state directory path.
// Only meaningful inside a project.
func (c *Config) StateDir() string {
	if !c.InProject() {
		return ""
	}
	return filepath.Join(c.ProjectRoot, StateDirName)
}

// MarkerPath returns the absolute path of the version marker file.
// Only meaningful inside a project.
func (c *Config) MarkerPath() string {
	if !c.InProject() {
		return ""
	}
	return filepath.Join(c.ProjectRoot, c.Environment.VersionFile)
}

// OutputPath returns the absolute render output directory.
// Only meaningful inside a project.
func (c *Config) OutputPath() string {
	if !c.InProject() {
		return ""
	}
	if filepath.IsAbs(c.Render.OutputDir) {
		return c.Render.OutputDir
	}
	return filepath.Join(c.ProjectRoot, c.Render.OutputDir)
}

// WordListPath returns the absolute path of the project word list.
// Only meaningful inside a project.
func (c *Config) WordListPath() string {
	if !c.InProject() {
		return ""
	}
	if filepath.IsAbs(c.Spelling.WordList) {
		return c.Spelling.WordList
	}
	return filepath.Join(c.ProjectRoot, c.Spelling.WordList)
}

// EnsureDirectories creates the machine-level directories galley writes to.
// The project state directory is created lazily by the journal.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		switch {
		case path == "~":
			path = home
		case strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`):
			path = filepath.Join(home, path[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("make %q absolute: %w", path, err)
	}
	return absolute, nil
}

// ExpandPath resolves ~ prefixes and relative segments the same way
// configuration file paths are resolved.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// CreateSample writes the embedded sample configuration to path, creating
// parent directories as needed.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return nil
}

// Sample returns the embedded sample configuration, used by project scaffolding.
func Sample() string {
	return sampleConfig
}
