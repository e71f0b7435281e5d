package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSizedFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestCalculateCacheStats(t *testing.T) {
	root := t.TempDir()
	songsDir := filepath.Join(root, "songs")
	coversDir := filepath.Join(root, "covers")
	require.NoError(t, os.MkdirAll(songsDir, 0o755))
	require.NoError(t, os.MkdirAll(coversDir, 0o755))

	writeSizedFile(t, songsDir, "1.mp3", 1000)
	writeSizedFile(t, songsDir, "2.mp3", 2000)
	writeSizedFile(t, coversDir, "cover_1.jpg", 500)

	stats := CalculateCacheStats(songsDir, coversDir)

	assert.EqualValues(t, 3000, stats.SongsBytes)
	assert.EqualValues(t, 500, stats.CoversBytes)
	assert.EqualValues(t, 3500, stats.TotalBytes)
	assert.Equal(t, 3, stats.FileCount)
}

func TestCalculateCacheStatsMissingDirs(t *testing.T) {
	root := t.TempDir()
	stats := CalculateCacheStats(filepath.Join(root, "missing-songs"), filepath.Join(root, "missing-covers"))

	assert.Zero(t, stats.TotalBytes)
	assert.Zero(t, stats.FileCount)
}

func TestClearAllCache(t *testing.T) {
	root := t.TempDir()
	songsDir := filepath.Join(root, "songs")
	coversDir := filepath.Join(root, "covers")
	require.NoError(t, os.MkdirAll(songsDir, 0o755))
	require.NoError(t, os.MkdirAll(coversDir, 0o755))

	writeSizedFile(t, songsDir, "1.mp3", 100)
	writeSizedFile(t, coversDir, "cover_1.jpg", 50)

	result := ClearAllCache(songsDir, coversDir)

	assert.Equal(t, 2, result.FilesDeleted)
	assert.EqualValues(t, 150, result.BytesFreed)

	stats := CalculateCacheStats(songsDir, coversDir)
	assert.Zero(t, stats.FileCount)
}

func TestEnforceCacheLimitDeletesOldestFirst(t *testing.T) {
	root := t.TempDir()
	songsDir := filepath.Join(root, "songs")
	require.NoError(t, os.MkdirAll(songsDir, 0o755))

	oldPath := writeSizedFile(t, songsDir, "old.mp3", 1024*1024)
	time.Sleep(10 * time.Millisecond)
	newPath := writeSizedFile(t, songsDir, "new.mp3", 1024*1024)

	result := EnforceCacheLimit(songsDir, filepath.Join(root, "covers"), 1)

	require.Equal(t, 1, result.FilesDeleted)

	_, err := os.Stat(oldPath)
	assert.True(t, os.IsNotExist(err), "the older file should have been deleted")

	_, err = os.Stat(newPath)
	assert.NoError(t, err, "the newer file should have been kept")
}

func TestEnforceCacheLimitNoOpWhenUnderLimit(t *testing.T) {
	root := t.TempDir()
	songsDir := filepath.Join(root, "songs")
	require.NoError(t, os.MkdirAll(songsDir, 0o755))
	writeSizedFile(t, songsDir, "small.mp3", 100)

	result := EnforceCacheLimit(songsDir, filepath.Join(root, "covers"), 100)

	assert.Zero(t, result.FilesDeleted)
}

func TestCleanupTempFilesRemovesOnlyTmpExtension(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(root, 0o755))

	writeSizedFile(t, root, "orphan.tmp", 10)
	writeSizedFile(t, root, "keep.mp3", 10)

	result := CleanupTempFiles(root)

	require.Equal(t, 1, result.FilesDeleted)

	_, err := os.Stat(filepath.Join(root, "orphan.tmp"))
	assert.True(t, os.IsNotExist(err), ".tmp file should have been removed")

	_, err = os.Stat(filepath.Join(root, "keep.mp3"))
	assert.NoError(t, err, "non-.tmp file should have been kept")
}

func TestCleanupTempFilesMissingDir(t *testing.T) {
	result := CleanupTempFiles(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Zero(t, result.FilesDeleted)
	assert.Zero(t, result.Errors)
}
