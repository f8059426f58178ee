package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries as JSON strings in Redis.
//
// No server-side TTL is applied: freshness is judged by the scraper from
// the entry timestamp, so stale entries remain readable with a larger
// maximum age, matching the file backend's behavior.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the Redis server at addr and verifies the
// connection with a ping. Keys are stored under the given prefix
// (e.g. "scrapekit:") to keep them apart from other users of the server.
func NewRedisCache(ctx context.Context, addr, prefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

// Get reads the entry for key.
func (c *RedisCache) Get(ctx context.Context, key string) (Entry, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
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

// Set writes the entry for key, overwriting any previous one.
func (c *RedisCache) Set(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, 0).Err()
}

// Delete removes the entry for key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }

var _ Cache = (*RedisCache)(nil)
