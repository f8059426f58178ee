package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
)

// FileCache stores entries as JSON files in a directory.
//
// Each entry lives in its own file named "<key>.json". The directory is
// created on construction if it doesn't exist. Entries are never expired
// or removed by the cache itself; Delete and the CLI's cache clear are
// the only ways files disappear.
//
// Multiple instances may share a directory; concurrent writers to the
// same key race with last-writer-wins semantics, which is acceptable for
// local use.
type FileCache struct {
	dir string
}

// DefaultDir is the cache directory used when none is configured.
const DefaultDir = "cache"

// NewFileCache creates a file-based cache in dir, creating the directory
// if needed. An empty dir selects [DefaultDir].
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the directory entries are stored in.
func (c *FileCache) Dir() string { return c.dir }

// Get reads the entry for key. A missing file is a miss; a file that
// cannot be parsed is returned as an error so the caller can decide how
// to degrade.
func (c *FileCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Set writes the entry for key, overwriting any previous one. The cache
// directory is re-created if it was removed since construction.
func (c *FileCache) Set(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path(key), data, 0o644)
}

// Delete removes the entry for key. Deleting a missing entry is not an
// error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for the file cache.
func (c *FileCache) Close() error { return nil }

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

var _ Cache = (*FileCache)(nil)
