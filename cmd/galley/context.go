package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"galley/internal/config"
	"galley/internal/journal"
	"galley/internal/logging"
	"galley/internal/pipeline"
)

// logFilePattern matches the per-run log files galley writes into the log
// directory.
const logFilePattern = "galley-*.log"

type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		verboseFlag: verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolvedPath
		c.configExists = exists
	})
	return c.config, c.configErr
}

// workflowLogger builds the CLI logger once per invocation: the configured
// console or JSON handler on stderr plus a per-run file under the log
// directory, with retention cleanup of older run logs.
func (c *commandContext) workflowLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		level := cfg.Logging.Level
		if c.verboseFlag != nil && *c.verboseFlag {
			level = "debug"
		}
		logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("galley-%s.log", time.Now().UTC().Format("20060102T150405")))
		logger, err := logging.New(logging.Options{
			Level:       level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stderr", logPath},
		})
		if err != nil {
			c.loggerErr = err
			return
		}
		logging.PruneOldLogs(logger, cfg.Logging.RetentionDays,
			logging.PruneTarget{Dir: cfg.Paths.LogDir, Pattern: logFilePattern, Exclude: []string{logPath}},
		)
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// withJournal opens the project journal for read-oriented commands and closes
// it when fn returns.
func (c *commandContext) withJournal(cmd *cobra.Command, fn func(context.Context, *journal.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmd.Context(), store)
}

// withRunner wires the full workflow stack for commands that execute runs:
// logger, journal (with interrupted-run reconciliation), and pipeline runner.
func (c *commandContext) withRunner(cmd *cobra.Command, fn func(context.Context, *pipeline.Runner) error) error {
	logger, err := c.workflowLogger()
	if err != nil {
		return err
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	reconcileJournal(cmd.Context(), store, logger)

	runner, err := pipeline.NewRunner(cfg, store, logger)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), runner)
}

// reconcileJournal marks runs left behind by interrupted invocations so the
// history never shows phantom in-flight work.
func reconcileJournal(ctx context.Context, store *journal.Store, logger *slog.Logger) {
	count, err := store.FailAbandoned(ctx)
	if err != nil {
		logger.Warn("failed to reconcile interrupted runs", logging.Error(err))
		return
	}
	if count > 0 {
		logger.Warn("marked interrupted runs as failed", logging.Int64("count", count))
	}
}

// skipsConfigLoad reports whether the command (or an ancestor) carries the
// skipConfigLoad annotation, meaning it runs without a resolved configuration.
func skipsConfigLoad(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
