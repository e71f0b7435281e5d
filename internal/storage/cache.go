package storage

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// CacheStats summarizes the on-disk media cache, covering the songs/covers
// categories this player actually caches
// (no avatars/banners — those belong to the library-browsing surface this module
// doesn't implement).
type CacheStats struct {
	TotalBytes  int64
	FileCount   int
	SongsBytes  int64
	CoversBytes int64
}

func (s CacheStats) TotalMB() int64 { return s.TotalBytes / (1024 * 1024) }

// ClearResult reports the outcome of a cache-clearing operation.
type ClearResult struct {
	FilesDeleted int
	BytesFreed   int64
	Errors       int
}

func (r ClearResult) MBFreed() int64 { return r.BytesFreed / (1024 * 1024) }

type cacheEntry struct {
	path     string
	size     int64
	modified time.Time
}

func collectEntries(dir string) []cacheEntry {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to read cache directory %s: %v", dir, err)
		}
		return nil
	}

	out := make([]cacheEntry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, cacheEntry{
			path:     filepath.Join(dir, e.Name()),
			size:     info.Size(),
			modified: info.ModTime(),
		})
	}
	return out
}

// CalculateCacheStats walks the songs and covers cache directories and tallies
// their size.
func CalculateCacheStats(songsDir, coversDir string) CacheStats {
	var stats CacheStats

	for _, e := range collectEntries(songsDir) {
		stats.SongsBytes += e.size
		stats.FileCount++
	}
	for _, e := range collectEntries(coversDir) {
		stats.CoversBytes += e.size
		stats.FileCount++
	}

	stats.TotalBytes = stats.SongsBytes + stats.CoversBytes
	return stats
}

// ClearAllCache deletes every file under the songs and covers cache directories.
func ClearAllCache(songsDir, coversDir string) ClearResult {
	var result ClearResult

	for _, dir := range []string{songsDir, coversDir} {
		for _, e := range collectEntries(dir) {
			if err := os.Remove(e.path); err != nil {
				log.Printf("Failed to delete cache file %s: %v", e.path, err)
				result.Errors++
				continue
			}
			result.FilesDeleted++
			result.BytesFreed += e.size
		}
	}

	log.Printf("Cache cleared: %d files deleted, %d MB freed, %d errors",
		result.FilesDeleted, result.MBFreed(), result.Errors)

	return result
}

// EnforceCacheLimit deletes the oldest cached files until the combined songs+covers
// cache is back under maxCacheMB.
func EnforceCacheLimit(songsDir, coversDir string, maxCacheMB int64) ClearResult {
	maxBytes := maxCacheMB * 1024 * 1024
	var result ClearResult

	var all []cacheEntry
	all = append(all, collectEntries(songsDir)...)
	all = append(all, collectEntries(coversDir)...)

	var currentSize int64
	for _, e := range all {
		currentSize += e.size
	}

	if currentSize <= maxBytes {
		log.Printf("Cache size %d MB is within limit %d MB", currentSize/(1024*1024), maxCacheMB)
		return result
	}

	sort.Slice(all, func(i, j int) bool { return all[i].modified.Before(all[j].modified) })

	targetFree := currentSize - maxBytes
	var freed int64
	for _, e := range all {
		if freed >= targetFree {
			break
		}
		if err := os.Remove(e.path); err != nil {
			log.Printf("Failed to delete cache file %s: %v", e.path, err)
			result.Errors++
			continue
		}
		freed += e.size
		result.FilesDeleted++
		result.BytesFreed += e.size
	}

	log.Printf("Cache cleanup: %d files deleted, %d MB freed (target was %d MB)",
		result.FilesDeleted, result.MBFreed(), targetFree/(1024*1024))

	return result
}

// CleanupTempFiles removes orphaned .tmp files left behind by interrupted
// downloads. Meant to run once at startup.
func CleanupTempFiles(dirs ...string) ClearResult {
	var result ClearResult

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Failed to read cache directory %s: %v", dir, err)
			}
			continue
		}

		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".tmp" {
				continue
			}
			path := filepath.Join(dir, e.Name())
			info, _ := e.Info()
			var size int64
			if info != nil {
				size = info.Size()
			}
			if err := os.Remove(path); err != nil {
				log.Printf("Failed to delete temp file %s: %v", path, err)
				result.Errors++
				continue
			}
			log.Printf("Cleaned up orphan temp file: %s (%d bytes)", path, size)
			result.FilesDeleted++
			result.BytesFreed += size
		}
	}

	if result.FilesDeleted > 0 {
		log.Printf("Temp file cleanup: %d files deleted, %d bytes freed", result.FilesDeleted, result.BytesFreed)
	}

	return result
}
