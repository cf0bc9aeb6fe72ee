package config

import (
	"errors"
	"fmt"
)

// Validate rejects option values the workflows cannot run with.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validateRender,
		c.validatePackages,
		c.validateSpelling,
		c.validateWorkflow,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.TimeoutSeconds <= 0 {
		return errors.New("render.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePackages() error {
	if c.Packages.TimeoutSeconds <= 0 {
		return errors.New("packages.timeout_seconds must be positive")
	}
	if c.Packages.Cores <= 0 {
		return errors.New("packages.cores must be positive")
	}
	return nil
}

func (c *Config) validateSpelling() error {
	switch c.Spelling.Mode {
	case "tex", "markdown", "none":
		return nil
	}
	return fmt.Errorf("spelling.mode %q is not supported (use tex, markdown, or none)", c.Spelling.Mode)
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.WatchDebounceMs <= 0 {
		return errors.New("workflow.watch_debounce_ms must be positive")
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
