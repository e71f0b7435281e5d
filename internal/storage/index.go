package storage

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// PartialHashIndex is a small sqlite-backed table mapping a remote song id to
// the partial-file hash (internal/catalog.PartialFileHash) of the file most
// recently verified at its cache path. It lets the resolver detect a corrupted
// or truncated cache file without re-reading and re-hashing every file on
// every resolve.
type PartialHashIndex struct {
	db *sql.DB
}

// NewPartialHashIndex opens (creating if needed) a sqlite database at dbPath
// holding the partial-hash index.
func NewPartialHashIndex(dbPath string) (*PartialHashIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %s: %w", p, err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS partial_hash_index (
			remote_id  INTEGER PRIMARY KEY,
			file_path  TEXT NOT NULL,
			hash       TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create partial_hash_index table: %w", err)
	}

	return &PartialHashIndex{db: db}, nil
}

// Verify reports whether currentHash matches the hash last recorded for
// remoteID, and whether any hash was recorded for remoteID at all.
func (idx *PartialHashIndex) Verify(remoteID int64, currentHash string) (matches bool, hadEntry bool) {
	var stored string
	err := idx.db.QueryRow("SELECT hash FROM partial_hash_index WHERE remote_id = ?", remoteID).Scan(&stored)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("partial hash lookup for %d: %v", remoteID, err)
		}
		return false, false
	}
	return stored == currentHash, true
}

// Record stores path's current partial hash for remoteID, overwriting any
// previous entry.
func (idx *PartialHashIndex) Record(remoteID int64, path, hash string) error {
	_, err := idx.db.Exec(
		`INSERT OR REPLACE INTO partial_hash_index (remote_id, file_path, hash, updated_at) VALUES (?, ?, ?, ?)`,
		remoteID, path, hash, time.Now(),
	)
	return err
}

func (idx *PartialHashIndex) Close() error {
	return idx.db.Close()
}
