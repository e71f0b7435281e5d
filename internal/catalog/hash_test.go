package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestPartialFileHashConsistency(t *testing.T) {
	dir := t.TempDir()
	data := bytes.Repeat([]byte("abcdef0123"), 20000) // ~200KB, bigger than 2*chunk
	path := writeTempFile(t, dir, "song.mp3", data)

	h1, err := PartialFileHash(path)
	if err != nil {
		t.Fatalf("PartialFileHash() error = %v", err)
	}
	h2, err := PartialFileHash(path)
	if err != nil {
		t.Fatalf("PartialFileHash() error = %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash not consistent: %q != %q", h1, h2)
	}
}

func TestPartialFileHashDetectsTruncation(t *testing.T) {
	dir := t.TempDir()
	full := bytes.Repeat([]byte("x"), 200*1024)
	truncated := full[:150*1024]

	fullPath := writeTempFile(t, dir, "full.mp3", full)
	truncPath := writeTempFile(t, dir, "trunc.mp3", truncated)

	hFull, err := PartialFileHash(fullPath)
	if err != nil {
		t.Fatalf("PartialFileHash(full) error = %v", err)
	}
	hTrunc, err := PartialFileHash(truncPath)
	if err != nil {
		t.Fatalf("PartialFileHash(trunc) error = %v", err)
	}
	if hFull == hTrunc {
		t.Error("a truncated file should not hash the same as the full file")
	}
}

func TestPartialFileHashSmallFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "tiny.mp3", []byte("small content under 64KiB"))

	hash, err := PartialFileHash(path)
	if err != nil {
		t.Fatalf("PartialFileHash() error = %v", err)
	}
	if hash == "" {
		t.Error("expected a non-empty hash for a small file")
	}
}

func TestPartialFileHashMissingFile(t *testing.T) {
	_, err := PartialFileHash(filepath.Join(t.TempDir(), "does-not-exist.mp3"))
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestPartialFileHashDifferentContentSameSize(t *testing.T) {
	dir := t.TempDir()
	a := bytes.Repeat([]byte("a"), 200*1024)
	b := bytes.Repeat([]byte("b"), 200*1024)

	pathA := writeTempFile(t, dir, "a.mp3", a)
	pathB := writeTempFile(t, dir, "b.mp3", b)

	hA, err := PartialFileHash(pathA)
	if err != nil {
		t.Fatalf("PartialFileHash(a) error = %v", err)
	}
	hB, err := PartialFileHash(pathB)
	if err != nil {
		t.Fatalf("PartialFileHash(b) error = %v", err)
	}
	if hA == hB {
		t.Error("files with identical size but different content should hash differently")
	}
}
