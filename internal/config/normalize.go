package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizePackages()
	c.normalizeEnvironment()
	c.normalizeSpelling()
	c.normalizeNotifications()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Binary = strings.TrimSpace(c.Render.Binary)
	if c.Render.Binary == "" {
		c.Render.Binary = defaultRenderBinary
	}
	c.Render.OutputDir = strings.TrimSpace(c.Render.OutputDir)
	if c.Render.OutputDir == "" {
		c.Render.OutputDir = defaultRenderOutputDir
	}
	c.Render.Formats = trimStrings(c.Render.Formats)
	c.Render.ExtraArgs = trimStrings(c.Render.ExtraArgs)
}

func (c *Config) normalizePackages() {
	c.Packages.Binary = strings.TrimSpace(c.Packages.Binary)
	if c.Packages.Binary == "" {
		c.Packages.Binary = defaultPackagesBinary
	}
	c.Packages.Mirror = strings.TrimSpace(c.Packages.Mirror)
	if c.Packages.Mirror == "" {
		c.Packages.Mirror = defaultPackagesMirror
	}
}

func (c *Config) normalizeEnvironment() {
	c.Environment.VersionFile = strings.TrimSpace(c.Environment.VersionFile)
	if c.Environment.VersionFile == "" {
		c.Environment.VersionFile = defaultVersionFile
	}
}

func (c *Config) normalizeSpelling() {
	c.Spelling.Binary = strings.TrimSpace(c.Spelling.Binary)
	if c.Spelling.Binary == "" {
		c.Spelling.Binary = defaultSpellingBinary
	}
	c.Spelling.Language = strings.TrimSpace(c.Spelling.Language)
	if c.Spelling.Language == "" {
		c.Spelling.Language = defaultSpellingLanguage
	}
	c.Spelling.Mode = strings.ToLower(strings.TrimSpace(c.Spelling.Mode))
	if c.Spelling.Mode == "" {
		c.Spelling.Mode = defaultSpellingMode
	}
	c.Spelling.WordList = strings.TrimSpace(c.Spelling.WordList)
	if c.Spelling.WordList == "" {
		c.Spelling.WordList = defaultSpellingWordList
	}
	c.Spelling.Extensions = normalizeExtensions(c.Spelling.Extensions)
	if len(c.Spelling.Extensions) == 0 {
		c.Spelling.Extensions = defaultSpellingExtensions()
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.WatchExtensions = normalizeExtensions(c.Workflow.WatchExtensions)
	if len(c.Workflow.WatchExtensions) == 0 {
		c.Workflow.WatchExtensions = defaultWatchExtensions()
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func trimStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	return out
}

// normalizeExtensions lowercases extensions, guarantees a leading dot, and
// drops duplicates so matching against filepath.Ext results stays uniform.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
