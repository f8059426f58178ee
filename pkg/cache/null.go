package cache

import "context"

// NullCache is a no-op cache that never stores anything.
// Used when caching is disabled.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() *NullCache {
	return &NullCache{}
}

// Get always reports a miss.
func (c *NullCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	return Entry{}, false, nil
}

// Set does nothing.
func (c *NullCache) Set(ctx context.Context, key string, entry Entry) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error { return nil }

var _ Cache = (*NullCache)(nil)
