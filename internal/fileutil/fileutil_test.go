package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestChecksumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.pdf")
	payload := []byte("rendered output")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ChecksumFile(path)
	if err != nil {
		t.Fatalf("ChecksumFile: %v", err)
	}
	sum := sha256.Sum256(payload)
	if want := hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("checksum mismatch: got %s want %s", got, want)
	}
}

func TestChecksumFileMissing(t *testing.T) {
	if _, err := ChecksumFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTreeSize(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), make([]byte, 100), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "nested", "b.txt"), make([]byte, 50), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	total, count, err := TreeSize(root)
	if err != nil {
		t.Fatalf("TreeSize: %v", err)
	}
	if total != 150 || count != 2 {
		t.Fatalf("got total=%d count=%d, want 150/2", total, count)
	}
}

func TestTreeSizeMissingRoot(t *testing.T) {
	total, count, err := TreeSize(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("TreeSize: %v", err)
	}
	if total != 0 || count != 0 {
		t.Fatalf("expected zero values, got %d/%d", total, count)
	}
}
