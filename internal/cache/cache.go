// Package cache keeps per-cell scrape results in Redis so a rerun on the same
// day does not hit the boards again.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"job-ingest-go/internal/models"
)

// KeyPrefix namespaces every key the cache writes.
const KeyPrefix = "jobingest:cells:"

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Cache provides Redis-backed caching for scraped cell tables.
type Cache struct {
	client redisClient
	ttl    time.Duration
}

// entry is the stored form of a table. Values come back as their JSON
// equivalents: dates as text, numbers as float64.
type entry struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// New connects to Redis at the given URL and returns a Cache.
// URL format: redis://localhost:6379
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Get returns the table stored under key. A missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) (models.Table, bool, error) {
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Table{}, false, nil
	}
	if err != nil {
		return models.Table{}, false, fmt.Errorf("cache: get %s: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return models.Table{}, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}

	table := models.Table{Columns: e.Columns, Rows: make([]models.Row, len(e.Rows))}
	for i, r := range e.Rows {
		table.Rows[i] = models.Row(r)
	}
	return table, true, nil
}

// Set stores table under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, table models.Table) error {
	e := entry{Columns: table.Columns, Rows: make([]map[string]any, len(table.Rows))}
	for i, r := range table.Rows {
		e.Rows[i] = r
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: marshal error: %w", err)
	}

	return c.client.Set(ctx, KeyPrefix+key, data, c.ttl).Err()
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
