package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneTarget names a directory whose matching log files age out.
type PruneTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// PruneOldLogs deletes files in each target older than retentionDays.
// Failures are logged and skipped; pruning is best-effort housekeeping.
func PruneOldLogs(logger *slog.Logger, retentionDays int, targets ...PruneTarget) {
	if retentionDays <= 0 {
		return
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	for _, target := range targets {
		if target.Dir == "" {
			continue
		}
		pattern := target.Pattern
		if pattern == "" {
			pattern = "*.log"
		}
		matches, err := filepath.Glob(filepath.Join(target.Dir, pattern))
		if err != nil {
			logger.Warn("log retention glob failed", String("dir", target.Dir), Error(err))
			continue
		}
		excluded := make(map[string]struct{}, len(target.Exclude))
		for _, path := range target.Exclude {
			excluded[path] = struct{}{}
		}
		for _, path := range matches {
			if _, skip := excluded[path]; skip {
				continue
			}
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				logger.Warn("failed to remove expired log", String("path", path), Error(err))
				continue
			}
			logger.Debug("removed expired log", String("path", path))
		}
	}
}
