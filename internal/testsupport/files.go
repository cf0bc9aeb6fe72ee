package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteTextFile writes content to path, creating parent directories as needed.
func WriteTextFile(t testing.TB, path, content string) {
	t.Helper()
	writeBytes(t, path, []byte(content))
}

// WriteFile fills path with size bytes of filler so tests can check on-disk
// sizes. Sizes below one byte are rounded up to one.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	writeBytes(t, path, bytes.Repeat([]byte{'b'}, int(size)))
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
