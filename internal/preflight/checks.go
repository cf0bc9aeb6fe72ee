package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"galley/internal/config"
	"galley/internal/envguard"
	"galley/internal/services/rlang"
)

// minFreeBytes is the disk headroom a render is assumed to need for LaTeX
// intermediates and output files.
const minFreeBytes = 1 << 30

// CheckDirectoryAccess verifies that path names a directory this process can
// read, write, and traverse.
func CheckDirectoryAccess(name, path string) Result {
	res := Result{Name: name}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		res.Detail = path + ": does not exist"
	case err != nil:
		res.Detail = fmt.Sprintf("%s: %v", path, err)
	case !info.IsDir():
		res.Detail = path + ": not a directory"
	default:
		if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			res.Detail = fmt.Sprintf("%s: access denied (%v)", path, err)
		} else {
			res.Passed = true
			res.Detail = path + ": read/write ok"
		}
	}
	return res
}

// CheckDiskSpace verifies the filesystem holding path has at least minBytes free.
func CheckDiskSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: statfs: %v", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	freeGiB := float64(free) / float64(1<<30)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%.1f GiB free, low disk space)", path, freeGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%.1f GiB free)", path, freeGiB)}
}

// CheckNtfy verifies the notification topic is reachable.
func CheckNtfy(ctx context.Context, topicURL string) Result {
	const name = "Notifications"

	topic := strings.TrimSpace(topicURL)
	if topic == "" {
		return Result{Name: name, Detail: "missing topic"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, topic, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{Name: name, Passed: true, Detail: "topic reachable"}
	}
	return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%d)", resp.StatusCode)}
}

// CheckVersionMarker compares the project's pinned R version against the
// runtime. The render workflow treats a mismatch as a warning, not a failure;
// here it fails the check so doctor output makes drift obvious.
func CheckVersionMarker(ctx context.Context, cfg *config.Config, prober rlang.Prober) Result {
	const name = "R version marker"

	expected, ok := envguard.ReadMarker(cfg.MarkerPath())
	if !ok {
		return Result{Name: name, Passed: true, Detail: "no marker file (project pins nothing)"}
	}
	if prober == nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("marker %s (runtime not probed)", expected)}
	}
	version, err := prober.Version(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("marker %s (error: cannot probe runtime: %v)", expected, err)}
	}
	observed := version.MajorMinor()
	if observed != expected {
		return Result{Name: name, Detail: fmt.Sprintf("marker %s but runtime is %s", expected, observed)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("runtime matches marker (%s)", observed)}
}
