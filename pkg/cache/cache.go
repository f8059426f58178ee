// Package cache provides response caching backends for the scraper.
//
// A cache stores one [Entry] per request URL. Backends implement the
// [Cache] interface; the file backend is the default and stores each
// entry as a JSON object with timestamp, url, and data fields, one file
// per URL.
//
// Freshness is decided by the caller, not the backend: Get returns the
// stored entry together with its creation timestamp, and the scraper
// compares that timestamp against the per-call maximum age. Expired
// entries are ignored, never deleted, so a later call with a larger
// maximum age can still see them.
//
// Cache keys are derived with [Key], which combines the URL's host with
// a SHA-256 hash of the full URL string. The full hash makes collisions
// between distinct URLs practically impossible.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"
)

// Entry is a single cached response.
type Entry struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"` // creation time
	URL       string    `json:"url" bson:"url"`             // originating request URL
	Data      string    `json:"data" bson:"data"`           // raw response body
}

// Age returns how old the entry is relative to now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Cache is a key-value store for response entries.
//
// Get reports (entry, true, nil) on a hit and (Entry{}, false, nil) on a
// miss. Backend failures are returned as errors; callers that cannot
// tolerate them should degrade to a miss.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key derives the cache key for a URL.
//
// The key combines the URL's host with the hex SHA-256 of the full URL
// string, e.g. "example.com_9f86d0...". The same URL string always yields
// the same key. URLs that fail to parse still get a stable hash-only key.
func Key(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	digest := hex.EncodeToString(sum[:])
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return digest
	}
	return u.Host + "_" + digest
}
