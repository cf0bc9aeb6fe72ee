// Package version exposes build metadata injected at link time.
package version

import (
	"fmt"
	"runtime"
)

// Build metadata. Overridden via ldflags:
//
//	go build -ldflags "-X galley/internal/version.Version=1.2.0 -X galley/internal/version.Commit=abc1234 -X galley/internal/version.Date=2026-08-01"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the full version line shown by `galley version`.
func String() string {
	return fmt.Sprintf("galley %s (commit %s, built %s, %s/%s)", Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version identifier.
func Short() string {
	return Version
}
