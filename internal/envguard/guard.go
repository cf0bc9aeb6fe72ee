package envguard

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"galley/internal/logging"
	"galley/internal/services/rlang"
)

// Result records the outcome of one guard check.
type Result struct {
	// Checked is true when a marker was present and the runtime was probed.
	Checked bool
	// Match is true when the marker and the runtime agree exactly.
	Match bool
	// Expected is the version the marker file pins.
	Expected string
	// Observed is the version the runtime reported.
	Observed string
}

// Guard compares the project's pinned interpreter version against the
// installed runtime. It never fails a command: a mismatch produces a single
// warning and everything continues. The check is stateless, so repeated runs
// with unchanged inputs report the same outcome.
type Guard struct {
	prober rlang.Prober
	logger *slog.Logger
}

// New constructs a Guard. A nil logger is replaced with a no-op logger.
func New(prober rlang.Prober, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Guard{
		prober: prober,
		logger: logging.WithComponent(logger, "envguard"),
	}
}

// Run performs the version check against the marker at markerPath. A missing
// or empty marker means the project pins nothing, so the guard stays silent.
func (g *Guard) Run(ctx context.Context, markerPath string) Result {
	expected, ok := ReadMarker(markerPath)
	if !ok {
		g.logger.Debug("no version marker, skipping check", logging.String("path", markerPath))
		return Result{}
	}

	if g.prober == nil {
		return Result{Expected: expected}
	}
	version, err := g.prober.Version(ctx)
	if err != nil {
		g.logger.Debug("could not determine runtime version", logging.Error(err))
		return Result{Expected: expected}
	}

	observed := version.MajorMinor()
	result := Result{
		Checked:  true,
		Match:    observed == expected,
		Expected: expected,
		Observed: observed,
	}
	if result.Match {
		g.logger.Debug("runtime matches version marker", logging.String("version", observed))
		return result
	}

	g.logger.Warn("R version differs from the project marker",
		logging.String("expected", expected),
		logging.String("observed", observed),
	)
	return result
}

// ReadMarker returns the trimmed first line of the marker file. It reports
// false when the file is missing, unreadable, or blank, all of which mean
// "no version requirement".
func ReadMarker(path string) (string, bool) {
	if strings.TrimSpace(path) == "" {
		return "", false
	}
	contents, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return "", false
	}
	line, _, _ := strings.Cut(string(contents), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	return line, true
}
