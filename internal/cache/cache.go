// Package cache speeds up repeated artifact scans with a sqlite table of
// file digests and parsed metadata keyed by (path, size, mtime).
package cache

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
	"github.com/Neizinp/tracyfy-sub003/internal/fsio"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifact_cache (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mtime INTEGER NOT NULL,
	digest TEXT NOT NULL,
	meta TEXT NOT NULL DEFAULT ''
);
`

// Cache is a sqlite-backed scan cache. Entries are valid only while the
// file's size and mtime match; anything else is treated as a miss.
type Cache struct {
	db *sql.DB
}

// Entry is a cached scan result for one artifact file. Artifact is nil for
// digest-only entries written by status checks.
type Entry struct {
	Digest   string
	Artifact *artifact.Artifact
}

// HashHex computes the BLAKE3 digest of data as a hex string.
func HashHex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Open opens or creates the cache database at {baseDir}/.tracyfy/cache/files.db.
func Open(baseDir string) (*Cache, error) {
	cacheDir := filepath.Join(baseDir, ".tracyfy", "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(cacheDir, "files.db"))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// OpenMemory opens a private in-memory cache. Tests use it to exercise the
// real sqlite path without touching disk.
func OpenMemory() (*Cache, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Digest returns the BLAKE3 digest for a file, reusing the cached value
// when the stat still matches. On a miss it recomputes from content and
// updates the row; a failed update is not a failure of the scan.
func (c *Cache) Digest(path string, info fsio.FileInfo, content []byte) (string, error) {
	size := info.Size
	mtime := info.ModTime.UnixNano()

	var cachedSize, cachedMtime int64
	var cachedDigest string
	err := c.db.QueryRow(
		"SELECT size, mtime, digest FROM artifact_cache WHERE path = ?",
		path,
	).Scan(&cachedSize, &cachedMtime, &cachedDigest)
	if err == nil && cachedSize == size && cachedMtime == mtime {
		return cachedDigest, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	digest := HashHex(content)
	if _, err := c.db.Exec(
		`INSERT OR REPLACE INTO artifact_cache (path, size, mtime, digest, meta)
		 VALUES (?, ?, ?, ?, '')`,
		path, size, mtime, digest,
	); err != nil {
		logrus.Debugf("cache update for %s failed: %v", path, err)
	}
	return digest, nil
}

// Lookup returns the cached entry for a path when the stat still matches,
// nil on a miss or a stale row.
func (c *Cache) Lookup(path string, info fsio.FileInfo) (*Entry, error) {
	var cachedSize, cachedMtime int64
	var digest, meta string
	err := c.db.QueryRow(
		"SELECT size, mtime, digest, meta FROM artifact_cache WHERE path = ?",
		path,
	).Scan(&cachedSize, &cachedMtime, &digest, &meta)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cachedSize != info.Size || cachedMtime != info.ModTime.UnixNano() {
		return nil, nil
	}

	entry := &Entry{Digest: digest}
	if meta != "" {
		var a artifact.Artifact
		if err := json.Unmarshal([]byte(meta), &a); err != nil {
			// A row this cache wrote should always unmarshal; treat
			// anything else as a miss.
			logrus.Debugf("cache meta for %s unreadable: %v", path, err)
			return nil, nil
		}
		entry.Artifact = &a
	}
	return entry, nil
}

// Store writes a complete entry for a path.
func (c *Cache) Store(path string, info fsio.FileInfo, digest string, a *artifact.Artifact) error {
	meta := ""
	if a != nil {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encoding cache meta for %s: %w", path, err)
		}
		meta = string(data)
	}
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO artifact_cache (path, size, mtime, digest, meta)
		 VALUES (?, ?, ?, ?, ?)`,
		path, info.Size, info.ModTime.UnixNano(), digest, meta,
	)
	return err
}

// Remove drops the entry for a path.
func (c *Cache) Remove(path string) error {
	_, err := c.db.Exec("DELETE FROM artifact_cache WHERE path = ?", path)
	return err
}

// Clear drops every entry.
func (c *Cache) Clear() error {
	_, err := c.db.Exec("DELETE FROM artifact_cache")
	return err
}

// Count returns the number of cached entries.
func (c *Cache) Count() (int64, error) {
	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM artifact_cache").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
